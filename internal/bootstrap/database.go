package bootstrap

import (
	"fmt"

	"gorm.io/gorm"

	"edupay/internal/models"
)

// Migrate ensures the payment subsystem tables exist.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.StudentProfile{},
		&models.Payment{},
		&models.TopUpLog{},
	); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}
