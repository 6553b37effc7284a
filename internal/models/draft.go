package models

import "time"

// Draft is a generated reply persisted for the dashboard. The orchestrator
// itself stays stateless; the API layer writes these after generation.
type Draft struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SenderID     string    `gorm:"index" json:"sender_id"`
	SenderName   string    `json:"sender_name,omitzero"`
	Message      string    `json:"message"`
	Tone         Tone      `gorm:"index" json:"tone"`
	Text         string    `json:"text"`
	Model        string    `json:"model"`
	Confidence   float64   `json:"confidence"`
	FromCache    bool      `json:"from_cache"`
	IsFallback   bool      `json:"is_fallback"`
	ResponseTime int64     `json:"response_time_ms"`
	CreatedAt    time.Time `json:"created_at"`
}
