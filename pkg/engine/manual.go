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

// ManualMatch is the operator-driven path. It validates both entities are
// still pending, distinguishing not-found from already-processed so the
// operator gets a specific reason, then reuses Commit with forced full
// confidence.
func (e *Engine) ManualMatch(ctx context.Context, applicationID, depositID, operatorID string) (*models.Match, error) {
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
	diff := dep.Timestamp.Sub(app.SubmittedAt)
	if diff < 0 {
		diff = -diff
	}
	return e.Commit(ctx, applicationID, depositID, models.ResultManual, 100,
		"manual override by "+operatorID, int64(diff/time.Minute), operatorID)
}

// Unmatch reverts a matched application and its linked deposit to pending and
// clears their cross-references. The historical ledger row stays; an unmatch
// marker superseding it is appended instead.
func (e *Engine) Unmatch(ctx context.Context, applicationID, operatorID string) error {
	app, err := e.store.GetApplication(ctx, applicationID)
	if err != nil {
		return fmt.Errorf("application %s: %w", applicationID, err)
	}
	if app.MatchedDepositID == nil || app.Status == models.ApplicationPending {
		return fmt.Errorf("application %s is not matched: %w", applicationID, ErrConflict)
	}
	depositID := *app.MatchedDepositID
	dep, err := e.store.GetDeposit(ctx, depositID)
	if err != nil {
		return fmt.Errorf("deposit %s: %w", depositID, err)
	}

	active, err := e.activeMatchFor(ctx, applicationID)
	if err != nil {
		return err
	}
	marker := &models.Match{
		ID:           uuid.NewString(),
		SubmissionID: applicationID,
		DepositID:    depositID,
		ResultType:   models.ResultUnmatch,
		Reason:       "unmatched by " + operatorID,
		MatchedBy:    operatorID,
	}
	if active != nil {
		marker.SupersedesID = &active.ID
	}
	if err := e.store.AppendMatch(ctx, marker); err != nil {
		return fmt.Errorf("append unmatch marker: %w", err)
	}

	prev := app.Status
	app.Status = models.ApplicationPending
	app.MatchedDepositID = nil
	app.MatchedAt = nil
	app.InvitedAt = nil
	app.JoinedAt = nil
	if err := e.store.TransitionApplication(ctx, app, prev); err != nil {
		if errors.Is(err, ErrConflict) {
			// a concurrent writer moved the application; retire the marker so
			// the original match stays active alongside the entity state
			e.void(ctx, marker, "application changed state during unmatch")
			return fmt.Errorf("application %s: %w", applicationID, ErrConflict)
		}
		return fmt.Errorf("revert application %s: %w", applicationID, err)
	}

	if dep.Status == models.DepositMatched {
		dep.Status = models.DepositPending
		dep.MatchedSubmissionID = nil
		dep.MatchedAt = nil
		if err := e.store.TransitionDeposit(ctx, dep, models.DepositMatched); err != nil {
			// only unmatch moves a matched deposit, so ErrConflict means a
			// concurrent unmatch already reverted it
			if !errors.Is(err, ErrConflict) {
				return fmt.Errorf("revert deposit %s: %w", depositID, err)
			}
			log.Printf("SKIP deposit %s already reverted during unmatch", depositID)
		}
	}
	return nil
}

// supersededSet maps ledger row ids retired by a later marker. Void markers
// are terminal; an unmatch marker only retires its target while it is not
// itself voided.
func supersededSet(rows []models.Match) map[string]bool {
	retired := make(map[string]bool)
	for _, m := range rows {
		if m.ResultType == models.ResultVoid && m.SupersedesID != nil {
			retired[*m.SupersedesID] = true
		}
	}
	for _, m := range rows {
		if m.ResultType == models.ResultUnmatch && m.SupersedesID != nil && !retired[m.ID] {
			retired[*m.SupersedesID] = true
		}
	}
	return retired
}

// activeMatchFor finds the latest auto/manual ledger row for an application
// that no later marker supersedes.
func (e *Engine) activeMatchFor(ctx context.Context, applicationID string) (*models.Match, error) {
	rows, err := e.store.ListMatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	superseded := supersededSet(rows)
	var active *models.Match
	for i := range rows {
		m := rows[i]
		if m.SubmissionID != applicationID || superseded[m.ID] {
			continue
		}
		if m.ResultType == models.ResultAuto || m.ResultType == models.ResultManual {
			active = &m
		}
	}
	return active, nil
}

// MarkInvited advances a matched application after the external notifier sent
// the invitation. Transitions are forward-only.
func (e *Engine) MarkInvited(ctx context.Context, applicationID string) (*models.Application, error) {
	app, err := e.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("application %s: %w", applicationID, err)
	}
	if app.Status != models.ApplicationMatched {
		return nil, fmt.Errorf("application %s is %s: %w", applicationID, app.Status, ErrConflict)
	}
	now := time.Now().UTC()
	app.Status = models.ApplicationInvited
	app.InvitedAt = &now
	if err := e.store.TransitionApplication(ctx, app, models.ApplicationMatched); err != nil {
		return nil, fmt.Errorf("transition application: %w", err)
	}
	return app, nil
}

// MarkJoined records that an invited member completed joining.
func (e *Engine) MarkJoined(ctx context.Context, applicationID string) (*models.Application, error) {
	app, err := e.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("application %s: %w", applicationID, err)
	}
	if app.Status != models.ApplicationInvited {
		return nil, fmt.Errorf("application %s is %s: %w", applicationID, app.Status, ErrConflict)
	}
	now := time.Now().UTC()
	app.Status = models.ApplicationJoined
	app.JoinedAt = &now
	if err := e.store.TransitionApplication(ctx, app, models.ApplicationInvited); err != nil {
		return nil, fmt.Errorf("transition application: %w", err)
	}
	return app, nil
}

// DeleteApplication removes an application; guarded to pending only.
func (e *Engine) DeleteApplication(ctx context.Context, id string) error {
	return e.store.DeleteApplicationIfPending(ctx, id)
}

// DeleteDeposit removes a deposit; guarded to pending only.
func (e *Engine) DeleteDeposit(ctx context.Context, id string) error {
	return e.store.DeleteDepositIfPending(ctx, id)
}
