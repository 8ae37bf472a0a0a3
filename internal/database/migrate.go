package database

import (
	historyrepo "github.com/seslichat/sesli/internal/repository/history"
	"gorm.io/gorm"
)

func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&historyrepo.UserEntity{},
		&historyrepo.ChannelEntity{},
	)
}
