package database

import (
	"fmt"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate runs database schema migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.Category{},
		&models.Transaction{},
		&models.Budget{},
		&models.Goal{},
		&models.Rule{},
		&models.InstallmentPlan{},
		&models.Installment{},
		&models.Notification{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
