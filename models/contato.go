package models

import "time"

const CONTATO_STATUS_POTENCIAL = "potencial_contato"

// Contato é um lead que respondeu ou pediu para falar com um vendedor.
type Contato struct {
	ID            string     `gorm:"primary_key;type:varchar(36)" json:"id"`
	Nome          string     `gorm:"not null" json:"nome"`
	Whatsapp      string     `gorm:"not null" json:"whatsapp"`
	Empresa       string     `json:"empresa"`
	Origem        string     `json:"origem"`
	Status        string     `gorm:"not null;default:'potencial_contato';index" json:"status"`
	RemoteJID     string     `gorm:"column:remote_jid;index" json:"remote_jid"`
	LeadOrigemID  string     `gorm:"column:lead_origem_id;index" json:"lead_origem_id"`
	Objecoes      StringList `gorm:"type:text" json:"objecoes"`
	ResumoCliente string     `gorm:"column:resumo_cliente;type:text" json:"resumo_cliente"`
	CreatedAt     *time.Time `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}
