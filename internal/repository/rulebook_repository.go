package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"rulebook-assistant/internal/model"
)

type RulebookRepository struct {
	db *gorm.DB
}

func NewRulebookRepository(db *gorm.DB) *RulebookRepository {
	return &RulebookRepository{db: db}
}

func (r *RulebookRepository) Create(book *model.Rulebook) error {
	if err := r.db.Create(book).Error; err != nil {
		return fmt.Errorf("create rulebook failed: %w", err)
	}
	return nil
}

// ListVisible returns the user's own rulebooks plus shared preloaded ones
// (user_id 0).
func (r *RulebookRepository) ListVisible(userID uint) ([]model.Rulebook, error) {
	var list []model.Rulebook
	if err := r.db.Where("user_id = ? OR user_id = 0", userID).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list rulebooks failed: %w", err)
	}
	return list, nil
}

// GetVisible returns the rulebook if the user owns it or it is shared.
func (r *RulebookRepository) GetVisible(id, userID uint) (*model.Rulebook, error) {
	var book model.Rulebook
	if err := r.db.Where("id = ? AND (user_id = ? OR user_id = 0)", id, userID).First(&book).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get rulebook failed: %w", err)
	}
	return &book, nil
}

func (r *RulebookRepository) GetByNameAndUserID(name string, userID uint) (*model.Rulebook, error) {
	var book model.Rulebook
	if err := r.db.Where("name = ? AND user_id = ?", name, userID).First(&book).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get rulebook by name failed: %w", err)
	}
	return &book, nil
}

func (r *RulebookRepository) DeleteByIDAndUserID(id, userID uint) error {
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Rulebook{}).Error; err != nil {
		return fmt.Errorf("delete rulebook failed: %w", err)
	}
	return nil
}
