package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"edupay/internal/models"
)

// PaymentRepository handles payment database operations.
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a new payment intent.
func (r *PaymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// FindByID returns a payment by its ID.
func (r *PaymentRepository) FindByID(id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByIDForUpdate loads a payment inside tx under an exclusive row lock,
// serializing concurrent webhook deliveries for the same payment. SQLite has
// a single writer and no FOR UPDATE syntax, so the clause is skipped there.
func (r *PaymentRepository) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*models.Payment, error) {
	q := tx
	if tx.Dialector.Name() != "sqlite" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var payment models.Payment
	if err := q.Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByIDForUser returns a payment only if it belongs to the student
// profile owned by userID.
func (r *PaymentRepository) FindByIDForUser(id, userID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.
		Joins("JOIN student_profiles ON student_profiles.id = payments.student_id").
		Where("payments.id = ? AND student_profiles.user_id = ?", id, userID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindStale returns non-terminal payments not touched since cutoff.
func (r *PaymentRepository) FindStale(cutoff time.Time, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.
		Where("status IN ? AND updated_at < ?", []models.PaymentStatus{models.StatusCreated, models.StatusPending}, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}

// FindPaidSince returns payments completed after t, for audit sweeps.
func (r *PaymentRepository) FindPaidSince(t time.Time, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.
		Where("status = ? AND completed_at >= ?", models.StatusPaid, t).
		Order("completed_at DESC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}
