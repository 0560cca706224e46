package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sdragent/crm"
)

// GET /api/leads?status=&limit=&offset=
func GetLeads(c *gin.Context) {
	s, ok := ServicesInstance(c)
	if !ok {
		return
	}
	f, ok := listFilter(c)
	if !ok {
		return
	}

	leads, total, err := s.CRM.ListLeads(f)
	if err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{"leads": leads, "total": total, "limit": f.Limit, "offset": f.Offset})
}

// GET /api/leads/:remote_jid
func GetLead(c *gin.Context) {
	s, ok := ServicesInstance(c)
	if !ok {
		return
	}
	jid, ok := ParamSender(c, "remote_jid")
	if !ok {
		return
	}

	lead, err := s.CRM.LeadByRemoteJID(jid)
	if err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	if lead == nil {
		RespondError(c, "Lead não encontrado", http.StatusNotFound)
		return
	}
	RespondSuccess(c, gin.H{"lead": lead})
}

// GET /api/contatos?status=&limit=&offset=
func GetContatos(c *gin.Context) {
	s, ok := ServicesInstance(c)
	if !ok {
		return
	}
	f, ok := listFilter(c)
	if !ok {
		return
	}

	contatos, total, err := s.CRM.ListContatos(f)
	if err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{"contatos": contatos, "total": total, "limit": f.Limit, "offset": f.Offset})
}

// GET /api/contatos/:remote_jid
func GetContato(c *gin.Context) {
	s, ok := ServicesInstance(c)
	if !ok {
		return
	}
	jid, ok := ParamSender(c, "remote_jid")
	if !ok {
		return
	}

	contato, err := s.CRM.ContatoByRemoteJID(jid)
	if err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	if contato == nil {
		RespondError(c, "Contato não encontrado", http.StatusNotFound)
		return
	}
	RespondSuccess(c, gin.H{"contato": contato})
}

// listFilter rejects limit outside 1..100 and negative offsets.
func listFilter(c *gin.Context) (crm.ListFilter, bool) {
	limit, ok := QueryInt(c, "limit", crm.DefaultListLimit)
	if !ok {
		return crm.ListFilter{}, false
	}
	if limit < 1 || limit > crm.MaxListLimit {
		RespondError(c, "limit deve estar entre 1 e 100", http.StatusBadRequest)
		return crm.ListFilter{}, false
	}
	offset, ok := QueryInt(c, "offset", 0)
	if !ok {
		return crm.ListFilter{}, false
	}
	if offset < 0 {
		RespondError(c, "offset não pode ser negativo", http.StatusBadRequest)
		return crm.ListFilter{}, false
	}
	return crm.ListFilter{Status: c.Query("status"), Limit: limit, Offset: offset}, true
}
