package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sdragent/config"
	"sdragent/logger"
	"sdragent/models"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

// Connect abre a conexão do CRM e faz o automigrate de leads/contatos.
// Retorna nil, nil quando nenhum banco está configurado (CRM desabilitado).
func Connect(conf config.Configuration, log *logger.Logger) (*gorm.DB, error) {
	database := strings.ToLower(strings.TrimSpace(conf.Database))

	var (
		db  *gorm.DB
		err error
	)

	switch database {
	case "":
		log.Warn("CRM desabilitado: nenhum banco configurado")
		return nil, nil
	case "postgres", "postgresql":
		log.Info("Utilizando conexão com o postgresql...")
		path := "host=" + conf.DbHost + " port=" + conf.DbPort
		path += " user=" + conf.DbUser + " dbname=" + conf.DbName
		path += " password=" + conf.DbPass
		db, err = gorm.Open("postgres", path)
	case "sqlite3", "sqlite":
		log.Info("Utilizando conexão com o sqlite3...")
		file := conf.DbPath
		if file == "" {
			file = "db/database.db"
		}
		if dir := filepath.Dir(file); dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		db, err = gorm.Open("sqlite3", file)
	default:
		return nil, fmt.Errorf("database não suportado: %s", conf.Database)
	}

	if err != nil {
		log.Error("Got error when connect database", "error", err)
		return nil, err
	}

	db.LogMode(conf.LogMode != "prod")

	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the CRM tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Lead{},
		&models.Contato{},
	).Error
}
