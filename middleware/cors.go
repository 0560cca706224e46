package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware libera CORS básico (útil para testes locais e painéis internos).
// Se/Quando precisar endurecer isso, troque AllowAllOrigins por AllowOrigins.
func CORSMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", HEADER_API_KEY, HEADER_WEBHOOK_SIGNATURE},
		ExposeHeaders:    []string{HEADER_REQUEST_ID},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}
