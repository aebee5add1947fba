package model

import (
	"encoding/json"
	"time"
)

// QARecord is one answered question, persisted asynchronously for history.
type QARecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Provider    string    `gorm:"size:32;not null" json:"provider"`
	Question    string    `gorm:"type:text;not null" json:"question"`
	Answer      string    `gorm:"type:text;not null" json:"answer"`
	RulebookIDs string    `gorm:"size:512" json:"-"` // JSON array of uint
	CreatedAt   time.Time `json:"created_at"`
}

// RulebookIDList returns the parsed rulebook id list; empty on parse error.
func (r *QARecord) RulebookIDList() []uint {
	if r.RulebookIDs == "" {
		return nil
	}
	var ids []uint
	_ = json.Unmarshal([]byte(r.RulebookIDs), &ids)
	return ids
}

// SetRulebookIDs stores the rulebook id list as JSON.
func (r *QARecord) SetRulebookIDs(ids []uint) {
	if len(ids) == 0 {
		r.RulebookIDs = "[]"
		return
	}
	b, _ := json.Marshal(ids)
	r.RulebookIDs = string(b)
}
