package models

/************************************************
/**** MARK: SPIN STAGES ****/
/************************************************/
const SPIN_SITUACAO = "situacao"
const SPIN_PROBLEMA = "problema"
const SPIN_IMPLICACAO = "implicacao"
const SPIN_NECESSIDADE = "necessidade"
const SPIN_COMPLETO = "completo"

/************************************************
/**** MARK: QUALIFICATION ****/
/************************************************/
const QUALIFICACAO_QUENTE = "quente"
const QUALIFICACAO_FRIO = "frio"

// LeadState é o estado conversacional do lead guardado no Redis ({sender}_state).
// Comparável com == para detectar mudanças.
type LeadState struct {
	Nome            string `json:"nome,omitempty"`
	Segmento        string `json:"segmento,omitempty"`
	Origem          string `json:"origem,omitempty"`
	EtapaSpin       string `json:"etapa_spin,omitempty"`
	Qualificacao    string `json:"qualificacao,omitempty"`
	FollowUp        bool   `json:"follow_up,omitempty"`
	Transferir      bool   `json:"transferir,omitempty"`
	Audio           bool   `json:"audio,omitempty"`
	PrimeiroContato bool   `json:"primeiro_contato,omitempty"`
}

// Complete reports whether the record came from a lead capture.
func (s *LeadState) Complete() bool {
	return s != nil && s.Segmento != ""
}

/************************************************
/**** MARK: HISTORY ****/
/************************************************/
const ROLE_USER = "user"
const ROLE_ASSISTANT = "assistant"

// HistoryEntry é uma mensagem do histórico de conversa ({sender}_history).
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
