package router

import (
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"

	"sdragent/config"
	"sdragent/controllers"
	"sdragent/db"
	"sdragent/logger"
	"sdragent/middleware"
)

/************************************************
/**** MARK: RATE LIMITS (requests/minute/IP) ****/
/************************************************/
const CAPTURE_RATE_LIMIT = 30
const WHATSAPP_RATE_LIMIT = 60

// Initialize wires all routes and middlewares: public webhooks, admin routes
// and the CRM API (both behind the API key).
func Initialize(r *gin.Engine, cfg config.Configuration, services *controllers.Services, database *gorm.DB) {
	log := services.Log
	if log == nil {
		log = logger.Nop()
	}

	r.Use(RequestID())
	r.Use(gin.CustomRecovery(func(c *gin.Context, err any) {
		log.Error("panic no handler", "path", c.Request.URL.Path, "panic", err)
		c.AbortWithStatusJSON(500, gin.H{"error": "erro interno"})
	}))
	r.Use(middleware.CORSMiddleware())
	r.Use(controllers.SetServices(services))
	r.Use(db.SetDBtoContext(database))

	r.GET("/", controllers.Root)
	r.GET("/health", controllers.Health)

	// Webhooks
	webhook := r.Group("/webhook")
	webhook.POST("/captura", Logger(log), middleware.RateLimit(CAPTURE_RATE_LIMIT), controllers.CaptureLead)
	webhook.POST("/whatsapp",
		Logger(log),
		middleware.RateLimit(WHATSAPP_RATE_LIMIT),
		middleware.WebhookSignature(cfg.Security.WebhookSecret),
		controllers.WhatsAppWebhook,
	)

	// Admin (X-API-Key)
	admin := r.Group("/admin")
	admin.Use(Logger(log), middleware.APIKey(cfg.Security.AdminAPIKey))
	admin.POST("/block/:sender", controllers.BlockChat)
	admin.POST("/unblock/:sender", controllers.UnblockChat)
	admin.GET("/lead/:sender", controllers.GetLeadState)
	admin.GET("/summary/:sender", controllers.GetConversationSummary)
	admin.GET("/followup/:sender", controllers.GetFollowUpStatus)
	admin.POST("/followup/:sender/cancel", controllers.CancelFollowUp)
	admin.POST("/followup/:sender/trigger", controllers.TriggerFollowUp)

	// CRM (X-API-Key)
	api := r.Group("/api")
	api.Use(Logger(log), middleware.APIKey(cfg.Security.AdminAPIKey))
	api.GET("/leads", controllers.GetLeads)
	api.GET("/leads/:remote_jid", controllers.GetLead)
	api.GET("/contatos", controllers.GetContatos)
	api.GET("/contatos/:remote_jid", controllers.GetContato)

	if cfg.Security.AdminAPIKey == "" {
		log.Warn("ADMIN_API_KEY não configurada: rotas /admin e /api estão abertas")
	}
	if cfg.Security.WebhookSecret == "" {
		log.Warn("WEBHOOK_SECRET não configurado: assinatura do webhook não será validada")
	}
	log.Info("Routes initialized")
}
