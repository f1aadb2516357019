package gamification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/skillforge/backend/internal/models"
)

// memStore is an in-memory ProfileStore with per-user locking.
type memStore struct {
	mu         sync.Mutex
	locks      map[int64]*sync.Mutex
	profiles   map[int64]*models.Profile
	activities []models.Activity
	events     []models.XPEvent
	failWrites bool
	writes     int
}

func newMemStore(profiles ...*models.Profile) *memStore {
	s := &memStore{locks: map[int64]*sync.Mutex{}, profiles: map[int64]*models.Profile{}}
	for _, p := range profiles {
		s.profiles[p.UserID] = p
	}
	return s
}

func (s *memStore) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

func (s *memStore) snapshot(userID int64) (*models.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, false
	}
	return cloneProfile(p), true
}

func (s *memStore) Get(ctx context.Context, userID int64) (*models.Profile, error) {
	p, ok := s.snapshot(userID)
	if !ok {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

func (s *memStore) Transact(ctx context.Context, userID int64, fn func(p *models.Profile) (*models.ProfileUpdate, error)) (*models.Profile, error) {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	p, ok := s.snapshot(userID)
	if !ok {
		return nil, ErrProfileNotFound
	}
	upd, err := fn(p)
	if err != nil {
		return nil, err
	}
	if upd == nil || (upd.Empty() && upd.Activity == nil && upd.XPEvent == nil) {
		return p, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return nil, fmt.Errorf("update profile: %w: connection reset", ErrPersistence)
	}
	upd.Apply(p, time.Now())
	s.profiles[userID] = cloneProfile(p)
	s.writes++
	if upd.Activity != nil {
		s.activities = append(s.activities, *upd.Activity)
	}
	if upd.XPEvent != nil {
		s.events = append(s.events, *upd.XPEvent)
	}
	return p, nil
}

func cloneProfile(p *models.Profile) *models.Profile {
	c := *p
	c.Badges = append([]string(nil), p.Badges...)
	c.Competences = append([]string(nil), p.Competences...)
	c.Recommendations = append([]string(nil), p.Recommendations...)
	c.DetailedAnalysis = append([]models.AnalysisEntry(nil), p.DetailedAnalysis...)
	if p.LastActivityAt != nil {
		t := *p.LastActivityAt
		c.LastActivityAt = &t
	}
	return &c
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []int64
}

func (n *recordingNotifier) ProfileChanged(ctx context.Context, userID int64, xpChanged bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, userID)
}
