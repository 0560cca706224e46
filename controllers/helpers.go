package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// ParamSender reads a required chat identifier from the path.
func ParamSender(c *gin.Context, name string) (string, bool) {
	v := strings.TrimSpace(c.Param(name))
	if v == "" {
		RespondError(c, name+" é obrigatório", http.StatusBadRequest)
		return "", false
	}
	return v, true
}

// QueryInt parses an integer query parameter, def when absent.
func QueryInt(c *gin.Context, name string, def int) (int, bool) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		RespondError(c, name+" inválido", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}
