package models

import "time"

// OutboxEvent records a committed state change for an external notifier to
// consume. The engine appends events after the entity writes succeed; the
// notifier polls undelivered rows and acks them, keeping notification I/O out
// of the matching engine.
type OutboxEvent struct {
	ID            string `gorm:"primaryKey;size:36"`
	CreatedAt     time.Time
	Kind          string  `gorm:"size:32;not null;index"`
	ApplicationID string  `gorm:"size:36;not null;index"`
	DepositID     string  `gorm:"size:36;not null"`
	MatchID       string  `gorm:"size:36;not null"`
	DeliveredAt   *time.Time
}
