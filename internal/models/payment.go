package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentProvider identifies the payment gateway.
type PaymentProvider string

const (
	ProviderClick PaymentProvider = "click"
)

// PaymentStatus is the payment lifecycle status.
type PaymentStatus string

const (
	StatusCreated  PaymentStatus = "created"
	StatusPending  PaymentStatus = "pending"
	StatusPaid     PaymentStatus = "paid"
	StatusFailed   PaymentStatus = "failed"
	StatusCanceled PaymentStatus = "canceled"
)

// JSON stores an opaque provider payload as a json column.
type JSON map[string]interface{}

// Value implements driver.Valuer.
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner.
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("invalid scan source for JSON column")
	}
	return json.Unmarshal(raw, j)
}

// Payment maps to the `payments` table. The payment ID doubles as the
// provider-facing transaction reference. Rows are never deleted, only
// transitioned.
type Payment struct {
	ID                uuid.UUID       `gorm:"column:id;type:char(36);primaryKey" json:"id"`
	StudentID         uuid.UUID       `gorm:"column:student_id;type:char(36);index" json:"student_id"`
	Provider          PaymentProvider `gorm:"column:provider;size:20" json:"provider"`
	Status            PaymentStatus   `gorm:"column:status;size:20;index" json:"status"`
	Amount            decimal.Decimal `gorm:"column:amount;type:decimal(12,2)" json:"amount"`
	Currency          string          `gorm:"column:currency;size:3" json:"currency"`
	ProviderInvoiceID string          `gorm:"column:provider_invoice_id;size:64" json:"provider_invoice_id"`
	ProviderTxnID     string          `gorm:"column:provider_txn_id;size:64" json:"provider_txn_id"`
	ProviderPayload   JSON            `gorm:"column:provider_payload;type:json" json:"provider_payload"`
	ErrorCode         string          `gorm:"column:error_code;size:32" json:"error_code"`
	ErrorNote         string          `gorm:"column:error_note;size:255" json:"error_note"`
	CreatedAt         time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at" json:"updated_at"`
	CompletedAt       *time.Time      `gorm:"column:completed_at" json:"completed_at"`
}

func (Payment) TableName() string {
	return "payments"
}

// BeforeCreate assigns the payment ID when the caller did not.
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsPaid reports whether the payment reached its terminal paid state.
func (p *Payment) IsPaid() bool {
	return p.Status == StatusPaid
}

// IsReattemptable reports whether prepare/check may move the payment
// back into pending.
func (p *Payment) IsReattemptable() bool {
	switch p.Status {
	case StatusCreated, StatusFailed, StatusCanceled:
		return true
	}
	return false
}
