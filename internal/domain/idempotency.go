package domain

import "time"

// Idempotency records the outcome of a completed transcript import, keyed by
// (client_id, key). A retried import with the same key replays the stored
// chat instead of importing the transcript a second time.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	ClientID  string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_client_key,priority:1"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_client_key,priority:2"`
	ChatID    string    `gorm:"type:TEXT NOT NULL"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
