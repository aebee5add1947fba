package repository

import (
	"fmt"

	"gorm.io/gorm"

	"rulebook-assistant/internal/model"
)

type QARecordRepository struct {
	db *gorm.DB
}

func NewQARecordRepository(db *gorm.DB) *QARecordRepository {
	return &QARecordRepository{db: db}
}

func (r *QARecordRepository) Create(record *model.QARecord) error {
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("create qa record failed: %w", err)
	}
	return nil
}

func (r *QARecordRepository) ListByUserID(userID uint, limit int) ([]model.QARecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var records []model.QARecord
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list qa records failed: %w", err)
	}
	return records, nil
}
