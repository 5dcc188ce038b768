package models

import "time"

type DepositStatus string

const (
	DepositPending DepositStatus = "pending"
	DepositMatched DepositStatus = "matched"
	DepositExpired DepositStatus = "expired"
)

// Deposit represents a parsed bank-payment notification awaiting attribution.
// Amount is whole currency units (the notifications carry no minor units).
type Deposit struct {
	ID                  string `gorm:"primaryKey;size:36"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DepositorNameRaw    string        `gorm:"size:255;not null"`
	Amount              int64         `gorm:"not null"`
	Timestamp           time.Time     `gorm:"not null;index"`
	Status              DepositStatus `gorm:"size:16;not null;index;default:pending"`
	RawNotificationText string        `gorm:"size:2048"`
	MatchedSubmissionID *string       `gorm:"size:36;index"`
	MatchedAt           *time.Time
}
