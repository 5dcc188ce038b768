package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dyseo521/baepdoongi-bot-sub000/models"
	"github.com/dyseo521/baepdoongi-bot-sub000/pkg/match"
)

// Reconcile repairs the one unsafe window of the commit group: a crash between
// the ledger append and the entity writes. Any non-superseded auto/manual row
// whose referenced entities are still pending is either completed (the entity
// writes are reapplied) or voided when another commit took an entity in the
// meantime. Returns how many rows were retried and voided.
func (e *Engine) Reconcile(ctx context.Context) (retried, voided int, err error) {
	rows, err := e.store.ListMatches(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list matches: %w", err)
	}
	superseded := supersededSet(rows)
	for i := range rows {
		m := rows[i]
		if superseded[m.ID] || (m.ResultType != models.ResultAuto && m.ResultType != models.ResultManual) {
			continue
		}
		app, err := e.store.GetApplication(ctx, m.SubmissionID)
		if err != nil {
			log.Printf("WARN reconcile match %s: application %s: %v", m.ID, m.SubmissionID, err)
			continue
		}
		dep, err := e.store.GetDeposit(ctx, m.DepositID)
		if err != nil {
			log.Printf("WARN reconcile match %s: deposit %s: %v", m.ID, m.DepositID, err)
			continue
		}
		appDone := app.Status != models.ApplicationPending
		depDone := dep.Status != models.DepositPending
		if appDone && depDone {
			continue
		}

		// an entity taken by a different pairing means this commit lost
		if appDone && (app.MatchedDepositID == nil || *app.MatchedDepositID != m.DepositID) {
			e.void(ctx, &m, "application taken by another match")
			voided++
			continue
		}
		if depDone && (dep.MatchedSubmissionID == nil || *dep.MatchedSubmissionID != m.SubmissionID) {
			e.void(ctx, &m, "deposit taken by another match")
			voided++
			continue
		}

		now := time.Now().UTC()
		lost := false
		if !appDone {
			app.Status = models.ApplicationMatched
			app.MatchedDepositID = &m.DepositID
			app.MatchedAt = &now
			if err := e.store.TransitionApplication(ctx, app, models.ApplicationPending); err != nil {
				if !errors.Is(err, ErrConflict) {
					return retried, voided, fmt.Errorf("reapply application %s: %w", app.ID, err)
				}
				lost = true
			}
		}
		if !lost && !depDone {
			dep.Status = models.DepositMatched
			dep.MatchedSubmissionID = &m.SubmissionID
			dep.MatchedAt = &now
			if err := e.store.TransitionDeposit(ctx, dep, models.DepositPending); err != nil {
				if !errors.Is(err, ErrConflict) {
					return retried, voided, fmt.Errorf("reapply deposit %s: %w", dep.ID, err)
				}
				lost = true
			}
		}
		if lost {
			e.void(ctx, &m, "lost race during reconciliation")
			voided++
			continue
		}
		retried++
	}
	return retried, voided, nil
}

// ExpireDeposits transitions pending deposits older than the freshness bound
// to expired so they stop appearing in candidate pools. Returns the count.
func (e *Engine) ExpireDeposits(ctx context.Context, now time.Time) (int, error) {
	deps, err := e.store.ListDeposits(ctx, models.DepositPending)
	if err != nil {
		return 0, fmt.Errorf("list pending deposits: %w", err)
	}
	cutoff := now.Add(-time.Duration(match.ExclusionWindowMinutes) * time.Minute)
	expired := 0
	for i := range deps {
		dep := deps[i]
		if !dep.Timestamp.Before(cutoff) {
			continue
		}
		dep.Status = models.DepositExpired
		if err := e.store.TransitionDeposit(ctx, &dep, models.DepositPending); err != nil {
			if errors.Is(err, ErrConflict) {
				continue // matched meanwhile, leave it
			}
			return expired, fmt.Errorf("expire deposit %s: %w", dep.ID, err)
		}
		expired++
	}
	return expired, nil
}
