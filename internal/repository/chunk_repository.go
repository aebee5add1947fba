package repository

import (
	"fmt"

	"gorm.io/gorm"

	"rulebook-assistant/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) CreateBatch(chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.db.Create(&chunks).Error; err != nil {
		return fmt.Errorf("create chunks batch failed: %w", err)
	}
	return nil
}

// ListByRulebookID returns the chunks of one rulebook in ingest order.
// Stable ordering keeps retrieval deterministic when scores tie.
func (r *ChunkRepository) ListByRulebookID(rulebookID uint) ([]model.Chunk, error) {
	var chunks []model.Chunk
	if err := r.db.Where("rulebook_id = ?", rulebookID).Order("seq ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks by rulebook failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) DeleteByRulebookID(rulebookID uint) error {
	if err := r.db.Where("rulebook_id = ?", rulebookID).Delete(&model.Chunk{}).Error; err != nil {
		return fmt.Errorf("delete chunks by rulebook failed: %w", err)
	}
	return nil
}
