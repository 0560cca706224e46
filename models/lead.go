package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"sdragent/tools"
)

/************************************************
/**** MARK: LEAD STATUS ****/
/************************************************/
const LEAD_STATUS_NOVO = "novo"
const LEAD_STATUS_QUALIFICADO = "qualificado"
const LEAD_STATUS_PERDIDO = "perdido"
const LEAD_STATUS_CONVERTIDO = "convertido"

// Lead é o registro de CRM criado quando alguém preenche o formulário de captura.
type Lead struct {
	ID                      string     `gorm:"primary_key;type:varchar(36)" json:"id"`
	Nome                    string     `gorm:"not null" json:"nome"`
	Whatsapp                string     `gorm:"not null;unique_index" json:"whatsapp"`
	Segmento                string     `json:"segmento"`
	Origem                  string     `gorm:"not null;default:'formulario'" json:"origem"`
	Status                  string     `gorm:"not null;default:'novo';index" json:"status"`
	RemoteJID               string     `gorm:"column:remote_jid;unique_index" json:"remote_jid"`
	EtapaSpin               string     `gorm:"column:etapa_spin;default:'situacao'" json:"etapa_spin"`
	Qualificacao            string     `json:"qualificacao"`
	Objecoes                StringList `gorm:"type:text" json:"objecoes"`
	ResumoConversa          string     `gorm:"column:resumo_conversa;type:text" json:"resumo_conversa"`
	Respondeu               bool       `gorm:"not null;default:false" json:"respondeu"`
	PrimeiraRespostaAt      *time.Time `json:"primeira_resposta_at"`
	UltimaInteracaoAt       *time.Time `json:"ultima_interacao_at"`
	ConvertidoParaContatoID string     `gorm:"column:convertido_para_contato_id" json:"convertido_para_contato_id"`
	CreatedAt               *time.Time `json:"created_at"`
	UpdatedAt               *time.Time `json:"updated_at"`
}

// LeadCapture são os dados recebidos do formulário de captura.
type LeadCapture struct {
	Nome     string `json:"nome"`
	Whatsapp string `json:"whatsapp"`
	Segmento string `json:"segmento"`
	Origem   string `json:"origem"`
}

func (l LeadCapture) MissingFields() string {
	if tools.Digits(l.Whatsapp) == "" {
		return "whatsapp"
	}
	return ""
}

// Phone returns the lead phone with country code, digits only.
func (l LeadCapture) Phone() string {
	return tools.PhoneWithCountryCode(l.Whatsapp)
}

// RemoteJID returns the WhatsApp chat identifier for the lead.
func (l LeadCapture) RemoteJID() string {
	return tools.RemoteJID(l.Whatsapp)
}

// StringList is stored as a JSON array in a text column.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("StringList: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*s = out
	return nil
}
