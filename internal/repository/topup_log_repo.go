package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"edupay/internal/models"
)

// TopUpLogRepository handles the append-only balance audit trail.
// Entries are never updated or deleted.
type TopUpLogRepository struct {
	db *gorm.DB
}

func NewTopUpLogRepository(db *gorm.DB) *TopUpLogRepository {
	return &TopUpLogRepository{db: db}
}

// CreateTx appends a ledger entry inside tx.
func (r *TopUpLogRepository) CreateTx(tx *gorm.DB, entry *models.TopUpLog) error {
	return tx.Create(entry).Error
}

// CountByNote counts entries with an exact note, used to tie a paid
// payment to its single ledger entry.
func (r *TopUpLogRepository) CountByNote(note string) (int64, error) {
	var count int64
	err := r.db.Model(&models.TopUpLog{}).Where("note = ?", note).Count(&count).Error
	return count, err
}

// FindByStudent returns a student's credit history, newest first.
func (r *TopUpLogRepository) FindByStudent(studentID uuid.UUID, limit int) ([]models.TopUpLog, error) {
	var entries []models.TopUpLog
	err := r.db.Where("student_id = ?", studentID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
