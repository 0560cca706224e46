package prompts

import (
	"fmt"
	"strings"

	"sdragent/models"
)

const welcome = `Você é a {bot}, 24 anos, da {empresa}. Manda a primeira mensagem pro {nome} que tem {segmento}.

Escreve como você escreveria no WhatsApp pra alguém que acabou de conhecer. Simples, direto, natural.

Regras:
- Máximo 2-3 frases curtinhas
- Se apresenta ({bot}, da {empresa})
- Menciona o negócio da pessoa de forma natural
- Faz uma pergunta simples pra puxar papo
- Sem emoji, sem formalidade`

// Welcome builds the first-message prompt.
func Welcome(p Persona, lead Lead) string {
	return fill(welcome, p, lead.withDefaults(), nil)
}

// WelcomeFallback is sent when the model cannot write the first message.
func WelcomeFallback(p Persona, lead Lead) string {
	lead = lead.withDefaults()
	return fmt.Sprintf("Oie %s, tudo bem? me chamo %s, sou atendente aqui da %s\nvi que vc se interessou e, olhando aqui, vi que você atua no segmento de %s\né isso mesmo?",
		lead.Nome, p.Name, p.Company, lead.Segmento)
}

const followUp = `Você é a {bot}, consultora da {empresa}.

CONTEXTO:
Você já mandou mensagem pro {nome} que tem {segmento}, mas ele não respondeu ainda.
Esta é a tentativa #{tentativa} de contato (dia {dia}, período: {periodo}).

REGRAS CRÍTICAS:
1. Mensagem CURTA (máximo 2 frases)
2. NÃO seja insistente ou desesperada
3. NÃO repita a mensagem anterior
4. NÃO use emojis
5. Seja natural, como alguém real mandando mensagem

{estrategia}

PERÍODO: {periodo}
{contexto_periodo}

Gere APENAS a mensagem, nada mais.`

var strategies = map[int]string{
	1: "ESTRATÉGIA DIA 1 - Lembrete leve\n- Seja casual e não pressione\n- Tom: \"só passando pra ver se viu\"",
	2: "ESTRATÉGIA DIA 2 - Agregar valor\n- Mencione algo útil sobre finanças/negócio\n- Tom: \"lembrei de você porque...\"",
	3: "ESTRATÉGIA DIA 3 - Última tentativa\n- Seja direta mas não desesperada\n- Deixe a porta aberta",
}

var periodContexts = map[string]string{
	models.PERIOD_MORNING:   "MANHÃ - Início do dia\n- Tom mais energético\n- Pode mencionar \"bom dia\" de forma natural",
	models.PERIOD_AFTERNOON: "TARDE - Meio do dia\n- Tom mais direto\n- Mensagem objetiva",
	models.PERIOD_NIGHT:     "NOITE - Fim do dia\n- Tom mais tranquilo\n- Pode ser mais pessoal",
}

var periodNames = map[string]string{
	models.PERIOD_MORNING:   "manhã",
	models.PERIOD_AFTERNOON: "tarde",
	models.PERIOD_NIGHT:     "noite",
}

var followUpExamples = map[int][]string{
	1: {"Bom dia {nome}! Só passando pra ver se viu minha mensagem"},
	2: {"Oi {nome}! Imagino que tá corrido aí. Fica à vontade pra responder quando puder"},
	3: {"Oi {nome}! Sei que {segmento} é puxado. Quando tiver um tempinho me conta como tá"},
	4: {"Bom dia {nome}! Lembrei de você... como tá a correria aí no {segmento}?"},
	5: {"Oi {nome}! Muita gente de {segmento} me fala que essa época é bem puxada. É assim aí também?"},
	6: {"E aí {nome}, como foi o dia? Tô por aqui quando quiser conversar"},
	7: {"Oi {nome}! Olha, não quero ficar enchendo. Se não fizer sentido, de boa"},
	8: {"Oi {nome}, passando aqui pela última vez. Se não for o momento, entendo total"},
	9: {"Oi {nome}! Última mensagem, prometo rs. Se um dia quiser conversar, tô por aqui. Sucesso aí no {segmento}!"},
}

// PeriodName returns the Portuguese name of a send period.
func PeriodName(period string) string {
	if n, ok := periodNames[period]; ok {
		return n
	}
	return periodNames[models.PERIOD_AFTERNOON]
}

// FollowUp builds the nudge prompt for an attempt (1..9), its day (1..3) and period.
func FollowUp(p Persona, lead Lead, attempt, day int, period string) string {
	lead = lead.withDefaults()
	strategy, ok := strategies[day]
	if !ok {
		strategy = strategies[3]
	}
	periodContext, ok := periodContexts[period]
	if !ok {
		periodContext = periodContexts[models.PERIOD_AFTERNOON]
	}
	examples, ok := followUpExamples[attempt]
	if !ok {
		examples = followUpExamples[9]
	}

	text := fill(followUp, p, lead, map[string]string{
		"{tentativa}":        fmt.Sprint(attempt),
		"{dia}":              fmt.Sprint(day),
		"{periodo}":          PeriodName(period),
		"{estrategia}":       strategy,
		"{contexto_periodo}": periodContext,
	})

	var sb strings.Builder
	sb.WriteString(text)
	sb.WriteString("\n\nEXEMPLOS DE REFERÊNCIA (inspire-se, não copie):")
	for _, ex := range examples {
		sb.WriteString("\n- ")
		sb.WriteString(fill(ex, p, lead, nil))
	}
	return sb.String()
}
