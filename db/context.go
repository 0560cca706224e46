package db

import (
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

const dbKey = "db"

// Use este middleware no setup do gin. Com o CRM desabilitado nada é registrado.
func SetDBtoContext(database *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if database != nil {
			c.Set(dbKey, database)
		}
		c.Next()
	}
}

// DBInstance returns the CRM connection of the request, nil when disabled.
func DBInstance(c *gin.Context) *gorm.DB {
	v, ok := c.Get(dbKey)
	if !ok {
		return nil
	}
	db, _ := v.(*gorm.DB)
	return db
}
