package repo

import (
	"github.com/KNICEX/crypto-scout/internal/entity"
	"gorm.io/gorm"
)

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(&entity.AlertRecord{})
}
