package main

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/dyseo521/baepdoongi-bot-sub000/models"
	"github.com/dyseo521/baepdoongi-bot-sub000/pkg/engine"
)

// gormStore implements engine.Store on postgres. Transition writes are guarded
// UPDATEs on the stored status: losing the guard surfaces engine.ErrConflict,
// which is the engine's sole concurrency-safety mechanism.
type gormStore struct {
	db *gorm.DB
}

func newGormStore(db *gorm.DB) *gormStore {
	return &gormStore{db: db}
}

func (s *gormStore) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	if err := s.db.WithContext(ctx).First(&app, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, engine.ErrNotFound
		}
		return nil, err
	}
	return &app, nil
}

func (s *gormStore) PutApplication(ctx context.Context, app *models.Application) error {
	return s.db.WithContext(ctx).Save(app).Error
}

func (s *gormStore) TransitionApplication(ctx context.Context, app *models.Application, expect models.ApplicationStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Application{}).
		Where("id = ? AND status = ?", app.ID, expect).
		Updates(map[string]any{
			"status":             app.Status,
			"matched_deposit_id": app.MatchedDepositID,
			"matched_at":         app.MatchedAt,
			"invited_at":         app.InvitedAt,
			"joined_at":          app.JoinedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return engine.ErrConflict
	}
	return nil
}

func (s *gormStore) ListApplications(ctx context.Context, status models.ApplicationStatus) ([]models.Application, error) {
	var apps []models.Application
	q := s.db.WithContext(ctx).Model(&models.Application{}).Order("created_at asc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

func (s *gormStore) DeleteApplicationIfPending(ctx context.Context, id string) error {
	var app models.Application
	if err := s.db.WithContext(ctx).First(&app, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return engine.ErrNotFound
		}
		return err
	}
	res := s.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.ApplicationPending).
		Delete(&models.Application{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return engine.ErrConflict
	}
	return nil
}

func (s *gormStore) GetDeposit(ctx context.Context, id string) (*models.Deposit, error) {
	var dep models.Deposit
	if err := s.db.WithContext(ctx).First(&dep, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, engine.ErrNotFound
		}
		return nil, err
	}
	return &dep, nil
}

func (s *gormStore) PutDeposit(ctx context.Context, dep *models.Deposit) error {
	return s.db.WithContext(ctx).Save(dep).Error
}

func (s *gormStore) TransitionDeposit(ctx context.Context, dep *models.Deposit, expect models.DepositStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Deposit{}).
		Where("id = ? AND status = ?", dep.ID, expect).
		Updates(map[string]any{
			"status":                dep.Status,
			"matched_submission_id": dep.MatchedSubmissionID,
			"matched_at":            dep.MatchedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return engine.ErrConflict
	}
	return nil
}

func (s *gormStore) ListDeposits(ctx context.Context, status models.DepositStatus) ([]models.Deposit, error) {
	var deps []models.Deposit
	q := s.db.WithContext(ctx).Model(&models.Deposit{}).Order("created_at asc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&deps).Error; err != nil {
		return nil, err
	}
	return deps, nil
}

func (s *gormStore) DeleteDepositIfPending(ctx context.Context, id string) error {
	var dep models.Deposit
	if err := s.db.WithContext(ctx).First(&dep, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return engine.ErrNotFound
		}
		return err
	}
	res := s.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.DepositPending).
		Delete(&models.Deposit{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return engine.ErrConflict
	}
	return nil
}

func (s *gormStore) AppendMatch(ctx context.Context, m *models.Match) error {
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *gormStore) ListMatches(ctx context.Context) ([]models.Match, error) {
	var rows []models.Match
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *gormStore) AppendEvent(ctx context.Context, ev *models.OutboxEvent) error {
	return s.db.WithContext(ctx).Create(ev).Error
}

func (s *gormStore) ListUndeliveredEvents(ctx context.Context) ([]models.OutboxEvent, error) {
	var events []models.OutboxEvent
	if err := s.db.WithContext(ctx).
		Where("delivered_at IS NULL").Order("created_at asc").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (s *gormStore) MarkEventDelivered(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ? AND delivered_at IS NULL", id).
		Update("delivered_at", gorm.Expr("now()"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// delivered already is fine; a missing id is not
		var cnt int64
		if err := s.db.WithContext(ctx).Model(&models.OutboxEvent{}).Where("id = ?", id).Count(&cnt).Error; err != nil {
			return err
		}
		if cnt == 0 {
			return engine.ErrNotFound
		}
	}
	return nil
}
