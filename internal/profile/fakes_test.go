package profile

import (
	"context"
	"sync"
	"time"

	"github.com/skillforge/backend/internal/gamification"
	"github.com/skillforge/backend/internal/models"
)

type fakeRepo struct {
	mu          sync.Mutex
	onGet       func()
	profiles    map[int64]*models.Profile
	activities  []models.Activity
	events      []models.XPEvent
	leaderboard []models.LeaderboardEntry
	boardReads  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{profiles: map[int64]*models.Profile{}}
}

func (r *fakeRepo) Get(ctx context.Context, userID int64) (*models.Profile, error) {
	r.mu.Lock()
	p, ok := r.profiles[userID]
	var c models.Profile
	if ok {
		c = *p
	}
	hook := r.onGet
	r.mu.Unlock()

	// hook runs after the row was read, standing in for a concurrent writer
	if hook != nil {
		hook()
	}
	if !ok {
		return nil, gamification.ErrProfileNotFound
	}
	return &c, nil
}

func (r *fakeRepo) Transact(ctx context.Context, userID int64, fn func(p *models.Profile) (*models.ProfileUpdate, error)) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.profiles[userID]
	if !ok {
		return nil, gamification.ErrProfileNotFound
	}
	p := *stored
	upd, err := fn(&p)
	if err != nil {
		return nil, err
	}
	if upd == nil {
		return &p, nil
	}
	upd.Apply(&p, time.Now())
	saved := p
	r.profiles[userID] = &saved
	if upd.Activity != nil {
		r.activities = append([]models.Activity{*upd.Activity}, r.activities...)
	}
	if upd.XPEvent != nil {
		r.events = append(r.events, *upd.XPEvent)
	}
	return &p, nil
}

func (r *fakeRepo) Create(ctx context.Context, p *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.UserID]; ok {
		return ErrProfileExists
	}
	c := *p
	r.profiles[p.UserID] = &c
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[userID]; !ok {
		return gamification.ErrProfileNotFound
	}
	delete(r.profiles, userID)
	return nil
}

func (r *fakeRepo) Activities(ctx context.Context, userID int64, limit int) ([]models.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Activity{}
	for _, a := range r.activities {
		if a.UserID == userID && len(out) < limit {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boardReads++
	if len(r.leaderboard) > limit {
		return r.leaderboard[:limit], nil
	}
	return r.leaderboard, nil
}

type changeCall struct {
	userID    int64
	xpChanged bool
}

type fakeCache struct {
	mu       sync.Mutex
	profiles map[int64]*models.Profile
	versions map[int64]int64
	boards   map[int][]models.LeaderboardEntry
	changes  []changeCall
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		profiles: map[int64]*models.Profile{},
		versions: map[int64]int64{},
		boards:   map[int][]models.LeaderboardEntry{},
	}
}

func (c *fakeCache) GetProfile(ctx context.Context, userID int64) (*models.Profile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.profiles[userID]
	return p, ok
}

func (c *fakeCache) ProfileVersion(ctx context.Context, userID int64) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[userID], true
}

func (c *fakeCache) SetProfile(ctx context.Context, p *models.Profile, version int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[p.UserID] == version {
		c.profiles[p.UserID] = p
	}
}

func (c *fakeCache) GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.boards[limit]
	return b, ok
}

func (c *fakeCache) SetLeaderboard(ctx context.Context, limit int, entries []models.LeaderboardEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boards[limit] = entries
}

func (c *fakeCache) ProfileChanged(ctx context.Context, userID int64, xpChanged bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[userID]++
	delete(c.profiles, userID)
	if xpChanged {
		c.boards = map[int][]models.LeaderboardEntry{}
	}
	c.changes = append(c.changes, changeCall{userID, xpChanged})
}
