package engine

import (
	"context"
	"fmt"

	"github.com/dyseo521/baepdoongi-bot-sub000/models"
)

// Read-only surface for dashboards and the external notifier.

func (e *Engine) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	return e.store.GetApplication(ctx, id)
}

func (e *Engine) GetDeposit(ctx context.Context, id string) (*models.Deposit, error) {
	return e.store.GetDeposit(ctx, id)
}

// ListApplications returns applications, optionally filtered by status.
func (e *Engine) ListApplications(ctx context.Context, status models.ApplicationStatus) ([]models.Application, error) {
	return e.store.ListApplications(ctx, status)
}

// ListDeposits returns deposits, optionally filtered by status.
func (e *Engine) ListDeposits(ctx context.Context, status models.DepositStatus) ([]models.Deposit, error) {
	return e.store.ListDeposits(ctx, status)
}

// ListMatches returns the full ledger history in creation order.
func (e *Engine) ListMatches(ctx context.Context) ([]models.Match, error) {
	return e.store.ListMatches(ctx)
}

// PendingEvents returns undelivered outbox events for the notifier.
func (e *Engine) PendingEvents(ctx context.Context) ([]models.OutboxEvent, error) {
	return e.store.ListUndeliveredEvents(ctx)
}

// AckEvent marks an outbox event delivered. Safe to call twice.
func (e *Engine) AckEvent(ctx context.Context, id string) error {
	return e.store.MarkEventDelivered(ctx, id)
}

// Stats aggregates entity counts, deposited amounts and the auto-match rate.
type Stats struct {
	Applications         map[models.ApplicationStatus]int `json:"applications"`
	Deposits             map[models.DepositStatus]int     `json:"deposits"`
	TotalDepositedAmount int64                            `json:"total_deposited_amount"`
	AutoMatched          int                              `json:"auto_matched"`
	ManualMatched        int                              `json:"manual_matched"`
	AutoMatchRate        float64                          `json:"auto_match_rate"`
}

// ComputeStats aggregates over the store. The auto-match rate counts committed
// rows only: void-superseded rows never committed and are skipped, while rows
// later unmatched did commit and still count.
func (e *Engine) ComputeStats(ctx context.Context) (Stats, error) {
	stats := Stats{
		Applications: make(map[models.ApplicationStatus]int),
		Deposits:     make(map[models.DepositStatus]int),
	}
	apps, err := e.store.ListApplications(ctx, "")
	if err != nil {
		return Stats{}, fmt.Errorf("list applications: %w", err)
	}
	for _, a := range apps {
		stats.Applications[a.Status]++
	}
	deps, err := e.store.ListDeposits(ctx, "")
	if err != nil {
		return Stats{}, fmt.Errorf("list deposits: %w", err)
	}
	for _, d := range deps {
		stats.Deposits[d.Status]++
		stats.TotalDepositedAmount += d.Amount
	}
	rows, err := e.store.ListMatches(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list matches: %w", err)
	}
	voided := make(map[string]bool)
	for _, m := range rows {
		if m.ResultType == models.ResultVoid && m.SupersedesID != nil {
			voided[*m.SupersedesID] = true
		}
	}
	for _, m := range rows {
		if voided[m.ID] {
			continue
		}
		switch m.ResultType {
		case models.ResultAuto:
			stats.AutoMatched++
		case models.ResultManual:
			stats.ManualMatched++
		}
	}
	if total := stats.AutoMatched + stats.ManualMatched; total > 0 {
		stats.AutoMatchRate = float64(stats.AutoMatched) / float64(total)
	}
	return stats, nil
}
