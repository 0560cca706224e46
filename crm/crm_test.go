package crm

import (
	"fmt"
	"testing"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdragent/db"
	"sdragent/logger"
	"sdragent/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	database, err := gorm.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	database.DB().SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(database))
	return New(database, logger.Nop())
}

const jid = "5511999998888@s.whatsapp.net"

func createLead(t *testing.T, c *Client) *models.Lead {
	t.Helper()
	lead, err := c.CreateLead(models.LeadCapture{Nome: "Ana", Whatsapp: "(11) 99999-8888", Segmento: "Varejo"})
	require.NoError(t, err)
	require.NotNil(t, lead)
	return lead
}

func TestCreateLeadDeduplicates(t *testing.T) {
	c := newTestClient(t)

	first := createLead(t, c)
	assert.Equal(t, "5511999998888", first.Whatsapp)
	assert.Equal(t, jid, first.RemoteJID)
	assert.Equal(t, "formulario", first.Origem)
	assert.Equal(t, models.LEAD_STATUS_NOVO, first.Status)
	assert.Equal(t, models.SPIN_SITUACAO, first.EtapaSpin)

	second := createLead(t, c)
	assert.Equal(t, first.ID, second.ID)

	_, total, err := c.ListLeads(ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestAddObjectionDeduplicates(t *testing.T) {
	c := newTestClient(t)
	createLead(t, c)

	ok, err := c.AddObjection(jid, "Preço/Orçamento")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AddObjection(jid, "  preço/orçamento ")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = c.AddObjection(jid, "Tempo")
	require.NoError(t, err)

	lead, err := c.LeadByRemoteJID(jid)
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"Preço/Orçamento", "Tempo"}, lead.Objecoes)

	ok, err = c.AddObjection("000@s.whatsapp.net", "Preço")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateQualification(t *testing.T) {
	c := newTestClient(t)
	createLead(t, c)

	ok, err := c.UpdateQualification(jid, models.QUALIFICACAO_QUENTE, "- quer automatizar vendas")
	require.NoError(t, err)
	assert.True(t, ok)

	lead, _ := c.LeadByRemoteJID(jid)
	assert.Equal(t, models.LEAD_STATUS_QUALIFICADO, lead.Status)
	assert.Equal(t, models.QUALIFICACAO_QUENTE, lead.Qualificacao)
	assert.Equal(t, "- quer automatizar vendas", lead.ResumoConversa)

	_, err = c.UpdateQualification(jid, models.QUALIFICACAO_FRIO, "")
	require.NoError(t, err)
	lead, _ = c.LeadByRemoteJID(jid)
	assert.Equal(t, models.LEAD_STATUS_PERDIDO, lead.Status)
	assert.Equal(t, "- quer automatizar vendas", lead.ResumoConversa)
}

func TestMarkRespondedConvertsOnFirstReply(t *testing.T) {
	c := newTestClient(t)
	createLead(t, c)
	_, _ = c.AddObjection(jid, "Preço")

	ok, err := c.MarkResponded(jid)
	require.NoError(t, err)
	assert.True(t, ok)

	lead, _ := c.LeadByRemoteJID(jid)
	assert.True(t, lead.Respondeu)
	assert.NotNil(t, lead.PrimeiraRespostaAt)
	assert.Equal(t, models.LEAD_STATUS_CONVERTIDO, lead.Status)

	contato, err := c.ContatoByRemoteJID(jid)
	require.NoError(t, err)
	require.NotNil(t, contato)
	assert.Equal(t, lead.ID, contato.LeadOrigemID)
	assert.Equal(t, lead.ConvertidoParaContatoID, contato.ID)
	assert.Equal(t, "Varejo", contato.Empresa)
	assert.Equal(t, models.CONTATO_STATUS_POTENCIAL, contato.Status)
	assert.Equal(t, models.StringList{"Preço"}, contato.Objecoes)

	ok, err = c.MarkResponded(jid)
	require.NoError(t, err)
	assert.True(t, ok)
	_, total, _ := c.ListContatos(ListFilter{})
	assert.Equal(t, 1, total)

	ok, err = c.MarkResponded("000@s.whatsapp.net")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConvertToContactUsesSummary(t *testing.T) {
	c := newTestClient(t)
	createLead(t, c)

	contato, err := c.ConvertToContact(jid, "resumo novo")
	require.NoError(t, err)
	require.NotNil(t, contato)
	assert.Equal(t, "resumo novo", contato.ResumoCliente)

	missing, err := c.ConvertToContact("000@s.whatsapp.net", "")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListPagination(t *testing.T) {
	c := newTestClient(t)
	for i := 0; i < 5; i++ {
		_, err := c.CreateLead(models.LeadCapture{Nome: fmt.Sprintf("L%d", i), Whatsapp: fmt.Sprintf("119999900%02d", i)})
		require.NoError(t, err)
	}
	_, err := c.UpdateQualification("5511999990001@s.whatsapp.net", models.QUALIFICACAO_QUENTE, "")
	require.NoError(t, err)

	leads, total, err := c.ListLeads(ListFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, leads, 2)

	leads, total, err = c.ListLeads(ListFilter{Status: models.LEAD_STATUS_QUALIFICADO, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, leads, 1)
	assert.Equal(t, "L1", leads[0].Nome)
}

func TestDisabledCRM(t *testing.T) {
	c := New(nil, logger.Nop())
	assert.False(t, c.Enabled())

	lead, err := c.CreateLead(models.LeadCapture{Whatsapp: "11999998888"})
	assert.NoError(t, err)
	assert.Nil(t, lead)

	ok, err := c.AddObjection(jid, "Preço")
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.MarkResponded(jid)
	assert.NoError(t, err)
	assert.False(t, ok)

	leads, total, err := c.ListLeads(ListFilter{})
	assert.NoError(t, err)
	assert.Empty(t, leads)
	assert.Zero(t, total)
}

func TestListFilterNormalized(t *testing.T) {
	assert.Equal(t, 50, ListFilter{Limit: 0}.normalized().Limit)
	assert.Equal(t, 50, ListFilter{Limit: 101}.normalized().Limit)
	assert.Equal(t, 100, ListFilter{Limit: 100}.normalized().Limit)
	assert.Equal(t, 0, ListFilter{Offset: -3}.normalized().Offset)
}
