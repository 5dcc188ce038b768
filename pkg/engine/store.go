package engine

import (
	"context"
	"errors"

	"github.com/dyseo521/baepdoongi-bot-sub000/models"
)

var (
	// ErrNotFound is returned when a referenced id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an entity is no longer in the status a
	// write expected, i.e. a concurrent commit got there first.
	ErrConflict = errors.New("already processed")
)

// Store is the persistence collaborator. Implementations provide per-entity
// reads and writes keyed by opaque string ids; no multi-key transaction is
// assumed. Transition writes are conditional: they persist the entity only if
// the stored row still carries the expected status, and return ErrConflict
// otherwise. Match and OutboxEvent writes are append-only.
type Store interface {
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	PutApplication(ctx context.Context, app *models.Application) error
	TransitionApplication(ctx context.Context, app *models.Application, expect models.ApplicationStatus) error
	// ListApplications returns applications with the given status; empty
	// status means all.
	ListApplications(ctx context.Context, status models.ApplicationStatus) ([]models.Application, error)
	DeleteApplicationIfPending(ctx context.Context, id string) error

	GetDeposit(ctx context.Context, id string) (*models.Deposit, error)
	PutDeposit(ctx context.Context, dep *models.Deposit) error
	TransitionDeposit(ctx context.Context, dep *models.Deposit, expect models.DepositStatus) error
	ListDeposits(ctx context.Context, status models.DepositStatus) ([]models.Deposit, error)
	DeleteDepositIfPending(ctx context.Context, id string) error

	AppendMatch(ctx context.Context, m *models.Match) error
	// ListMatches returns ledger rows in creation order.
	ListMatches(ctx context.Context) ([]models.Match, error)

	AppendEvent(ctx context.Context, ev *models.OutboxEvent) error
	ListUndeliveredEvents(ctx context.Context) ([]models.OutboxEvent, error)
	// MarkEventDelivered is idempotent; acking a delivered event is a no-op.
	MarkEventDelivered(ctx context.Context, id string) error
}
