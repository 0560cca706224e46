package crm

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/gorm"

	"sdragent/logger"
	"sdragent/models"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// Client persiste leads e contatos. Com db nil o CRM fica desabilitado e
// toda chamada vira no-op.
type Client struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func New(db *gorm.DB, log *logger.Logger) *Client {
	return &Client{db: db, log: log.With("service", "CRM"), now: time.Now}
}

func (c *Client) Enabled() bool {
	return c != nil && c.db != nil
}

/************************************************
/**** MARK: LEADS ****/
/************************************************/

// CreateLead inserts a new lead. A lead with the same whatsapp is returned as is.
func (c *Client) CreateLead(capture models.LeadCapture) (*models.Lead, error) {
	if !c.Enabled() {
		return nil, nil
	}

	phone := capture.Phone()
	var existing models.Lead
	err := c.db.Where("whatsapp = ?", phone).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !gorm.IsRecordNotFoundError(err) {
		return nil, err
	}

	origem := capture.Origem
	if origem == "" {
		origem = "formulario"
	}
	lead := models.Lead{
		ID:        uuid.NewString(),
		Nome:      capture.Nome,
		Whatsapp:  phone,
		Segmento:  capture.Segmento,
		Origem:    origem,
		Status:    models.LEAD_STATUS_NOVO,
		RemoteJID: capture.RemoteJID(),
		EtapaSpin: models.SPIN_SITUACAO,
	}
	if err := c.db.Create(&lead).Error; err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}
	c.log.Info("lead criado", "nome", lead.Nome, "sender", lead.RemoteJID)
	return &lead, nil
}

// LeadByRemoteJID returns nil, nil when no lead matches.
func (c *Client) LeadByRemoteJID(remoteJID string) (*models.Lead, error) {
	if !c.Enabled() {
		return nil, nil
	}
	var lead models.Lead
	err := c.db.Where("remote_jid = ?", remoteJID).First(&lead).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// MarkResponded records a reply. The first reply converts the lead to a contact.
func (c *Client) MarkResponded(remoteJID string) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	lead, err := c.LeadByRemoteJID(remoteJID)
	if err != nil {
		return false, err
	}
	if lead == nil {
		c.log.Warn("lead não encontrado para marcar resposta", "sender", remoteJID)
		return false, nil
	}

	now := c.now()
	if lead.Respondeu {
		return true, c.updateLead(lead.ID, map[string]interface{}{"ultima_interacao_at": now})
	}

	c.log.Info("primeira resposta, convertendo para contato", "sender", remoteJID)
	err = c.updateLead(lead.ID, map[string]interface{}{
		"respondeu":            true,
		"primeira_resposta_at": now,
		"ultima_interacao_at":  now,
	})
	if err != nil {
		return false, err
	}
	if _, err := c.ConvertToContact(remoteJID, ""); err != nil {
		return true, err
	}
	return true, nil
}

// UpdateQualification stores the qualification level ("quente" qualifies,
// anything else loses the lead) and the conversation summary.
func (c *Client) UpdateQualification(remoteJID, level, summary string) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	status := models.LEAD_STATUS_PERDIDO
	if level == models.QUALIFICACAO_QUENTE {
		status = models.LEAD_STATUS_QUALIFICADO
	}
	updates := map[string]interface{}{"qualificacao": level, "status": status}
	if summary != "" {
		updates["resumo_conversa"] = summary
	}
	res := c.db.Model(&models.Lead{}).Where("remote_jid = ?", remoteJID).Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	c.log.Info("lead qualificado", "sender", remoteJID, "qualificacao", level)
	return res.RowsAffected > 0, nil
}

// AddObjection appends an objection unless an equal one (trimmed, case
// folded) is already recorded.
func (c *Client) AddObjection(remoteJID, objection string) (bool, error) {
	lead, err := c.LeadByRemoteJID(remoteJID)
	if err != nil || lead == nil {
		return false, err
	}

	objection = strings.TrimSpace(objection)
	if objection == "" {
		return false, nil
	}
	for _, o := range lead.Objecoes {
		if strings.EqualFold(strings.TrimSpace(o), objection) {
			c.log.Debug("objeção já registrada", "sender", remoteJID, "objecao", objection)
			return true, nil
		}
	}

	list := append(models.StringList{}, lead.Objecoes...)
	list = append(list, objection)
	if err := c.updateLead(lead.ID, map[string]interface{}{"objecoes": list}); err != nil {
		return false, err
	}
	c.log.Info("objeção adicionada", "sender", remoteJID, "objecao", objection)
	return true, nil
}

func (c *Client) updateLead(id string, updates map[string]interface{}) error {
	return c.db.Model(&models.Lead{}).Where("id = ?", id).Updates(updates).Error
}

/************************************************
/**** MARK: CONTATOS ****/
/************************************************/

// ConvertToContact creates a contact from the lead and marks the lead as
// converted. An empty summary keeps the lead's own summary.
func (c *Client) ConvertToContact(remoteJID, summary string) (*models.Contato, error) {
	lead, err := c.LeadByRemoteJID(remoteJID)
	if err != nil || lead == nil {
		return nil, err
	}

	if summary == "" {
		summary = lead.ResumoConversa
	}
	contato := models.Contato{
		ID:            uuid.NewString(),
		Nome:          lead.Nome,
		Whatsapp:      lead.Whatsapp,
		Empresa:       lead.Segmento,
		Origem:        lead.Origem,
		Status:        models.CONTATO_STATUS_POTENCIAL,
		RemoteJID:     remoteJID,
		LeadOrigemID:  lead.ID,
		Objecoes:      lead.Objecoes,
		ResumoCliente: summary,
	}

	tx := c.db.Begin()
	if err := tx.Create(&contato).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("create contato: %w", err)
	}
	err = tx.Model(&models.Lead{}).Where("id = ?", lead.ID).Updates(map[string]interface{}{
		"status":                     models.LEAD_STATUS_CONVERTIDO,
		"convertido_para_contato_id": contato.ID,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	c.log.Info("lead convertido para contato", "nome", lead.Nome, "sender", remoteJID)
	return &contato, nil
}

func (c *Client) ContatoByRemoteJID(remoteJID string) (*models.Contato, error) {
	if !c.Enabled() {
		return nil, nil
	}
	var contato models.Contato
	err := c.db.Where("remote_jid = ?", remoteJID).Order("created_at desc").First(&contato).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contato, nil
}

/************************************************
/**** MARK: LISTING ****/
/************************************************/

// ListFilter pagina as listagens. Limit fora de 1..100 vira 50.
type ListFilter struct {
	Status string
	Limit  int
	Offset int
}

func (f ListFilter) normalized() ListFilter {
	if f.Limit < 1 || f.Limit > MaxListLimit {
		f.Limit = DefaultListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func (c *Client) ListLeads(f ListFilter) ([]models.Lead, int, error) {
	leads := []models.Lead{}
	if !c.Enabled() {
		return leads, 0, nil
	}
	total, err := c.list(&models.Lead{}, &leads, f)
	return leads, total, err
}

func (c *Client) ListContatos(f ListFilter) ([]models.Contato, int, error) {
	contatos := []models.Contato{}
	if !c.Enabled() {
		return contatos, 0, nil
	}
	total, err := c.list(&models.Contato{}, &contatos, f)
	return contatos, total, err
}

func (c *Client) list(model interface{}, out interface{}, f ListFilter) (int, error) {
	f = f.normalized()
	q := c.db.Model(model)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int
	if err := q.Count(&total).Error; err != nil {
		return 0, err
	}
	err := q.Order("created_at desc").Limit(f.Limit).Offset(f.Offset).Find(out).Error
	return total, err
}
