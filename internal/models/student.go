package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StudentProfile maps to the `student_profiles` table. Balance is the
// single mutable aggregate in the payment subsystem; it is only changed
// through relative updates inside a transaction.
type StudentProfile struct {
	ID        uuid.UUID       `gorm:"column:id;type:char(36);primaryKey" json:"id"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:char(36);uniqueIndex" json:"user_id"`
	Balance   decimal.Decimal `gorm:"column:balance;type:decimal(12,2);default:0" json:"balance"`
	CreatedAt time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (StudentProfile) TableName() string {
	return "student_profiles"
}

func (s *StudentProfile) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
