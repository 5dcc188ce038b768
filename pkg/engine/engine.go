package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dyseo521/baepdoongi-bot-sub000/models"
	"github.com/dyseo521/baepdoongi-bot-sub000/pkg/ingest"
	"github.com/dyseo521/baepdoongi-bot-sub000/pkg/match"
)

// Engine is the matching engine: it owns entity creation, the scoring pass
// over the pending pools, and the commit path. Each call is an independent
// invocation; all coordination goes through the Store.
type Engine struct {
	store Store
}

func New(store Store) *Engine {
	return &Engine{store: store}
}

// IngestDeposit persists a parsed deposit notification and runs a matching
// pass against the pool of pending applications.
func (e *Engine) IngestDeposit(ctx context.Context, n ingest.Notification, raw string, at time.Time) (*models.Deposit, match.Outcome, error) {
	dep := &models.Deposit{
		ID:                  uuid.NewString(),
		DepositorNameRaw:    n.DepositorName,
		Amount:              n.Amount,
		Timestamp:           at,
		Status:              models.DepositPending,
		RawNotificationText: raw,
	}
	if err := e.store.PutDeposit(ctx, dep); err != nil {
		return nil, match.Outcome{}, fmt.Errorf("persist deposit: %w", err)
	}
	out, err := e.OnDepositIngested(ctx, dep)
	return dep, out, err
}

// IngestApplication persists a validated submission and runs a matching pass
// against the pool of pending deposits.
func (e *Engine) IngestApplication(ctx context.Context, sub ingest.Submission, at time.Time) (*models.Application, match.Outcome, error) {
	app := &models.Application{
		ID:          uuid.NewString(),
		Name:        sub.Name,
		StudentID:   sub.StudentID,
		Email:       sub.Email,
		Department:  sub.Department,
		Phone:       sub.Phone,
		Status:      models.ApplicationPending,
		SubmittedAt: at,
		Metadata:    sub.Extra,
	}
	if err := e.store.PutApplication(ctx, app); err != nil {
		return nil, match.Outcome{}, fmt.Errorf("persist application: %w", err)
	}
	out, err := e.OnApplicationIngested(ctx, app)
	return app, out, err
}

// OnDepositIngested ranks the deposit against every pending application and
// commits when the ranker decides auto. A commit lost to a concurrent writer
// is logged and discarded; the ranker outcome is returned either way.
func (e *Engine) OnDepositIngested(ctx context.Context, dep *models.Deposit) (match.Outcome, error) {
	apps, err := e.store.ListApplications(ctx, models.ApplicationPending)
	if err != nil {
		return match.Outcome{}, fmt.Errorf("list pending applications: %w", err)
	}
	var cands []match.Candidate
	for _, app := range apps {
		res, ok := match.Score(dep.DepositorNameRaw, app.Name, dep.Timestamp, app.SubmittedAt)
		if !ok {
			continue
		}
		cands = append(cands, match.Candidate{ApplicationID: app.ID, DepositID: dep.ID, Result: res})
	}
	return e.applyOutcome(ctx, match.Rank(cands))
}

// OnApplicationIngested is the mirrored entry point: the application is ranked
// against every pending deposit with the same scorer, roles swapped.
func (e *Engine) OnApplicationIngested(ctx context.Context, app *models.Application) (match.Outcome, error) {
	deps, err := e.store.ListDeposits(ctx, models.DepositPending)
	if err != nil {
		return match.Outcome{}, fmt.Errorf("list pending deposits: %w", err)
	}
	var cands []match.Candidate
	for _, dep := range deps {
		res, ok := match.Score(dep.DepositorNameRaw, app.Name, dep.Timestamp, app.SubmittedAt)
		if !ok {
			continue
		}
		cands = append(cands, match.Candidate{ApplicationID: app.ID, DepositID: dep.ID, Result: res})
	}
	return e.applyOutcome(ctx, match.Rank(cands))
}

func (e *Engine) applyOutcome(ctx context.Context, out match.Outcome) (match.Outcome, error) {
	if out.Decision != match.DecisionAuto {
		return out, nil
	}
	best := out.Candidates[0]
	_, err := e.Commit(ctx, best.ApplicationID, best.DepositID, models.ResultAuto,
		best.Confidence, best.Reason, best.TimeDiffMinutes, "")
	if err != nil {
		if errors.Is(err, ErrConflict) {
			// a concurrent commit beat this one; discard the proposal
			log.Printf("SKIP auto match app=%s dep=%s: %v", best.ApplicationID, best.DepositID, err)
			return out, nil
		}
		return out, err
	}
	return out, nil
}
