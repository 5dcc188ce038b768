package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dyseo521/baepdoongi-bot-sub000/models"
)

// Commit is the single funnel for all matching outcomes, auto or manual.
// Preconditions are re-checked here, at commit time, to close the race window
// between scoring and writing: both entities must still be pending. The ledger
// row is appended first, then each entity transitions with a conditional
// write. A transition lost to a concurrent writer voids the ledger row and
// returns ErrConflict.
func (e *Engine) Commit(ctx context.Context, applicationID, depositID string, resultType models.ResultType, confidence int, reason string, timeDiffMinutes int64, matchedBy string) (*models.Match, error) {
	app, err := e.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("application %s: %w", applicationID, err)
	}
	dep, err := e.store.GetDeposit(ctx, depositID)
	if err != nil {
		return nil, fmt.Errorf("deposit %s: %w", depositID, err)
	}
	if app.Status != models.ApplicationPending {
		return nil, fmt.Errorf("application %s: %w", applicationID, ErrConflict)
	}
	if dep.Status != models.DepositPending {
		return nil, fmt.Errorf("deposit %s: %w", depositID, ErrConflict)
	}

	m := &models.Match{
		ID:                    uuid.NewString(),
		SubmissionID:          applicationID,
		DepositID:             depositID,
		ResultType:            resultType,
		Confidence:            confidence,
		Reason:                reason,
		TimeDifferenceMinutes: timeDiffMinutes,
		MatchedBy:             matchedBy,
	}
	if err := e.store.AppendMatch(ctx, m); err != nil {
		return nil, fmt.Errorf("append match: %w", err)
	}

	now := time.Now().UTC()
	app.Status = models.ApplicationMatched
	app.MatchedDepositID = &depositID
	app.MatchedAt = &now
	if err := e.store.TransitionApplication(ctx, app, models.ApplicationPending); err != nil {
		if errors.Is(err, ErrConflict) {
			e.void(ctx, m, "application no longer pending at write time")
			return nil, fmt.Errorf("application %s: %w", applicationID, ErrConflict)
		}
		return nil, fmt.Errorf("transition application: %w", err)
	}

	dep.Status = models.DepositMatched
	dep.MatchedSubmissionID = &applicationID
	dep.MatchedAt = &now
	if err := e.store.TransitionDeposit(ctx, dep, models.DepositPending); err != nil {
		if errors.Is(err, ErrConflict) {
			// roll the application back before voiding so it stays matchable
			app.Status = models.ApplicationPending
			app.MatchedDepositID = nil
			app.MatchedAt = nil
			if rbErr := e.store.TransitionApplication(ctx, app, models.ApplicationMatched); rbErr != nil {
				log.Printf("WARN rollback application %s failed: %v", applicationID, rbErr)
			}
			e.void(ctx, m, "deposit no longer pending at write time")
			return nil, fmt.Errorf("deposit %s: %w", depositID, ErrConflict)
		}
		return nil, fmt.Errorf("transition deposit: %w", err)
	}

	ev := &models.OutboxEvent{
		ID:            uuid.NewString(),
		Kind:          "matched",
		ApplicationID: applicationID,
		DepositID:     depositID,
		MatchID:       m.ID,
	}
	if err := e.store.AppendEvent(ctx, ev); err != nil {
		// the commit itself is durable; the notifier catches up via re-reads
		log.Printf("WARN append matched event for app=%s failed: %v", applicationID, err)
	}
	return m, nil
}

// void appends a terminal marker retiring a ledger row whose entity writes did
// not complete. The ledger itself is never mutated in place.
func (e *Engine) void(ctx context.Context, m *models.Match, why string) {
	marker := &models.Match{
		ID:           uuid.NewString(),
		SubmissionID: m.SubmissionID,
		DepositID:    m.DepositID,
		ResultType:   models.ResultVoid,
		Reason:       why,
		SupersedesID: &m.ID,
	}
	if err := e.store.AppendMatch(ctx, marker); err != nil {
		log.Printf("WARN void marker for match %s failed: %v", m.ID, err)
	}
}
