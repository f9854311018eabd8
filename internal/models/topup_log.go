package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TopUpLog maps to the `student_topup_logs` table: the append-only audit
// trail of balance credits. NewBalance is a snapshot taken atomically with
// the credit, so each entry is self-describing. ActorID is nil for credits
// applied by the payment engine.
type TopUpLog struct {
	ID         uint            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	StudentID  uuid.UUID       `gorm:"column:student_id;type:char(36);index" json:"student_id"`
	Amount     decimal.Decimal `gorm:"column:amount;type:decimal(12,2)" json:"amount"`
	NewBalance decimal.Decimal `gorm:"column:new_balance;type:decimal(12,2)" json:"new_balance"`
	ActorID    *uuid.UUID      `gorm:"column:actor_id;type:char(36)" json:"actor_id"`
	Note       string          `gorm:"column:note;size:255;index" json:"note"`
	CreatedAt  time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (TopUpLog) TableName() string {
	return "student_topup_logs"
}
