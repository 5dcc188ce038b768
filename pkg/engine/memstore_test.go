package engine

import (
	"context"
	"sync"
	"time"

	"github.com/dyseo521/baepdoongi-bot-sub000/models"
)

// memStore is an in-memory Store for engine tests. Conditional transitions
// behave like the real store's guarded UPDATE: the write only lands when the
// stored status still matches the expectation. The one-shot fail* hooks let
// tests simulate a concurrent writer stealing an entity between the commit's
// precondition read and its write.
type memStore struct {
	mu      sync.Mutex
	apps    map[string]models.Application
	deps    map[string]models.Deposit
	matches []models.Match
	events  []models.OutboxEvent

	failNextAppTransition bool
	failNextDepTransition bool
}

func newMemStore() *memStore {
	return &memStore{
		apps: make(map[string]models.Application),
		deps: make(map[string]models.Deposit),
	}
}

func (s *memStore) GetApplication(_ context.Context, id string) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := a
	return &cp, nil
}

func (s *memStore) PutApplication(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps[app.ID] = *app
	return nil
}

func (s *memStore) TransitionApplication(_ context.Context, app *models.Application, expect models.ApplicationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNextAppTransition {
		s.failNextAppTransition = false
		return ErrConflict
	}
	stored, ok := s.apps[app.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != expect {
		return ErrConflict
	}
	s.apps[app.ID] = *app
	return nil
}

func (s *memStore) ListApplications(_ context.Context, status models.ApplicationStatus) ([]models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Application
	for _, a := range s.apps {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memStore) DeleteApplicationIfPending(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[id]
	if !ok {
		return ErrNotFound
	}
	if a.Status != models.ApplicationPending {
		return ErrConflict
	}
	delete(s.apps, id)
	return nil
}

func (s *memStore) GetDeposit(_ context.Context, id string) (*models.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deps[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := d
	return &cp, nil
}

func (s *memStore) PutDeposit(_ context.Context, dep *models.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deps[dep.ID] = *dep
	return nil
}

func (s *memStore) TransitionDeposit(_ context.Context, dep *models.Deposit, expect models.DepositStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNextDepTransition {
		s.failNextDepTransition = false
		return ErrConflict
	}
	stored, ok := s.deps[dep.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != expect {
		return ErrConflict
	}
	s.deps[dep.ID] = *dep
	return nil
}

func (s *memStore) ListDeposits(_ context.Context, status models.DepositStatus) ([]models.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Deposit
	for _, d := range s.deps {
		if status == "" || d.Status == status {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *memStore) DeleteDepositIfPending(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deps[id]
	if !ok {
		return ErrNotFound
	}
	if d.Status != models.DepositPending {
		return ErrConflict
	}
	delete(s.deps, id)
	return nil
}

func (s *memStore) AppendMatch(_ context.Context, m *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.matches = append(s.matches, cp)
	return nil
}

func (s *memStore) ListMatches(_ context.Context) ([]models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Match, len(s.matches))
	copy(out, s.matches)
	return out, nil
}

func (s *memStore) AppendEvent(_ context.Context, ev *models.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *ev)
	return nil
}

func (s *memStore) ListUndeliveredEvents(_ context.Context) ([]models.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.OutboxEvent
	for _, ev := range s.events {
		if ev.DeliveredAt == nil {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *memStore) MarkEventDelivered(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == id {
			if s.events[i].DeliveredAt == nil {
				now := time.Now().UTC()
				s.events[i].DeliveredAt = &now
			}
			return nil
		}
	}
	return ErrNotFound
}
