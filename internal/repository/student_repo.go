package repository

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"edupay/internal/models"
)

// StudentRepository handles student profile database operations.
type StudentRepository struct {
	db *gorm.DB
}

func NewStudentRepository(db *gorm.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student profile by its ID.
func (r *StudentRepository) FindByID(id uuid.UUID) (*models.StudentProfile, error) {
	var sp models.StudentProfile
	if err := r.db.Where("id = ?", id).First(&sp).Error; err != nil {
		return nil, err
	}
	return &sp, nil
}

// FindByUserID returns the student profile owned by a user account.
func (r *StudentRepository) FindByUserID(userID uuid.UUID) (*models.StudentProfile, error) {
	var sp models.StudentProfile
	if err := r.db.Where("user_id = ?", userID).First(&sp).Error; err != nil {
		return nil, err
	}
	return &sp, nil
}

// CreditTx adds amount to the student balance inside tx as a relative
// update, so no concurrent change to balance is lost, and returns the
// resulting balance snapshot.
func (r *StudentRepository) CreditTx(tx *gorm.DB, studentID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	res := tx.Model(&models.StudentProfile{}).
		Where("id = ?", studentID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, fmt.Errorf("student profile %s not found", studentID)
	}

	var sp models.StudentProfile
	if err := tx.Where("id = ?", studentID).First(&sp).Error; err != nil {
		return decimal.Zero, err
	}
	return sp.Balance, nil
}
