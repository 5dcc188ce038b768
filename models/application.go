package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type ApplicationStatus string

const (
	ApplicationPending ApplicationStatus = "pending"
	ApplicationMatched ApplicationStatus = "matched"
	ApplicationInvited ApplicationStatus = "invited"
	ApplicationJoined  ApplicationStatus = "joined"
)

// Metadata preserves extra submitted form fields verbatim. Stored as JSONB.
type Metadata map[string]string

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}
	return fmt.Errorf("unsupported metadata source type %T", src)
}

// Application represents a membership form submission awaiting payment confirmation.
// MatchedDepositID is set if and only if Status is matched/invited/joined; status
// only advances forward except via an explicit unmatch which resets it to pending.
type Application struct {
	ID               string `gorm:"primaryKey;size:36"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Name             string            `gorm:"size:255;not null"`
	StudentID        string            `gorm:"size:64;not null;index"`
	Email            string            `gorm:"size:255"`
	Department       string            `gorm:"size:255"`
	Phone            string            `gorm:"size:64"`
	Status           ApplicationStatus `gorm:"size:16;not null;index;default:pending"`
	SubmittedAt      time.Time         `gorm:"not null"`
	MatchedDepositID *string           `gorm:"size:36;index"`
	MatchedAt        *time.Time
	InvitedAt        *time.Time
	JoinedAt         *time.Time
	Metadata         Metadata `gorm:"type:jsonb"`
}
