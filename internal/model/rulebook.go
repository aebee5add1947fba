package model

import "time"

// Rulebook is one ingested PDF (a board-game rulebook or any document).
// The extracted text itself lives in the chunks; CharCount/Pages are kept
// for display.
type Rulebook struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Name       string    `gorm:"size:256;not null" json:"name"`
	Pages      int       `json:"pages"`
	CharCount  int       `json:"char_count"`
	ChunkCount int       `json:"chunk_count"`
	Preloaded  bool      `json:"preloaded"`
	CreatedAt  time.Time `json:"created_at"`
}
