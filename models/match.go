package models

import "time"

// ResultType classifies ledger rows. auto/manual are real matches; unmatch and
// void are terminal markers appended instead of mutating or deleting history.
type ResultType string

const (
	ResultAuto    ResultType = "auto"
	ResultManual  ResultType = "manual"
	ResultUnmatch ResultType = "unmatch"
	ResultVoid    ResultType = "void"
)

// Match is an append-only ledger entry binding one Application to one Deposit.
// Rows are never updated or deleted; an unmatch or a lost commit race appends a
// marker row whose SupersedesID points at the row it retires. A row is active
// when its ResultType is auto or manual and no later row supersedes it.
type Match struct {
	ID                    string `gorm:"primaryKey;size:36"`
	CreatedAt             time.Time
	SubmissionID          string     `gorm:"size:36;not null;index"`
	DepositID             string     `gorm:"size:36;not null;index"`
	ResultType            ResultType `gorm:"size:16;not null;index"`
	Confidence            int        `gorm:"not null"`
	Reason                string     `gorm:"size:512"`
	TimeDifferenceMinutes int64      `gorm:"not null"`
	MatchedBy             string     `gorm:"size:64"`
	SupersedesID          *string    `gorm:"size:36;index"`
}
