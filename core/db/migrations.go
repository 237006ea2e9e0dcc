package db

import (
	"github.com/jinzhu/gorm"
	"gopkg.in/gormigrate.v1"

	"github.com/upcrm/forms-transport/core/db/models"
)

func init() {
	Migrations().Add(&gormigrate.Migration{
		ID: "202401150001",
		Migrate: func(db *gorm.DB) error {
			return db.AutoMigrate(
				&models.FormConnector{},
				&models.Contact{},
				&models.FacebookConnection{},
				&models.FacebookForm{},
				&models.Lead{},
			).Error
		},
		Rollback: func(db *gorm.DB) error {
			return db.DropTableIfExists(
				&models.Lead{},
				&models.FacebookForm{},
				&models.FacebookConnection{},
				&models.Contact{},
				&models.FormConnector{},
			).Error
		},
	})

	Migrations().Add(&gormigrate.Migration{
		ID: "202401150002",
		Migrate: func(db *gorm.DB) error {
			return db.Model(&models.FacebookForm{}).
				AddIndex("idx_facebook_form_form_id", "form_id").Error
		},
		Rollback: func(db *gorm.DB) error {
			return db.Model(&models.FacebookForm{}).
				RemoveIndex("idx_facebook_form_form_id").Error
		},
	})
}
