package model

import (
	"encoding/json"
	"time"
)

// Chunk stores one text window of a rulebook and its embedding for retrieval.
// Embedding is stored as a JSON array of float32 for portability.
type Chunk struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RulebookID uint      `gorm:"not null;index" json:"rulebook_id"`
	Seq        int       `gorm:"not null" json:"seq"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Embedding  string    `gorm:"type:text" json:"-"` // JSON array of float32
	CreatedAt  time.Time `json:"created_at"`
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (c *Chunk) EmbeddingVector() []float32 {
	if c.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(c.Embedding), &v)
	return v
}

// SetEmbedding stores the embedding as JSON.
func (c *Chunk) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		c.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}
