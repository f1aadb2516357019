package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/skillforge/backend/internal/gamification"
	"github.com/skillforge/backend/internal/logger"
	"github.com/skillforge/backend/internal/models"
)

// maxTxAttempts bounds retries of a transaction aborted by a serialization
// failure or deadlock.
const maxTxAttempts = 3

const profileColumns = `user_id, level, xp, badges, competences, preferences, objectives, motivation,
	energy, current_streak, best_streak, last_activity_at, quiz_completed_count, perfect_quiz_count,
	total_xp_earned, statistics, recommendations, detailed_analysis, created_at, updated_at`

// Store is the Postgres profile store. Every mutation runs in one
// transaction holding the profile row lock.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

func NewStore(db *sql.DB, log *logger.Logger) *Store {
	return &Store{db: db, log: log.With("component", "profile_store")}
}

// ── Profiles ────────────────────────────────────────────

func (s *Store) Get(ctx context.Context, userID int64) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gamification.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// Create inserts p. It returns ErrProfileExists when the row is already there.
func (s *Store) Create(ctx context.Context, p *models.Profile) error {
	badges, _ := json.Marshal(nonNilStrings(p.Badges))
	competences, _ := json.Marshal(nonNilStrings(p.Competences))
	preferences, _ := json.Marshal(nonNilMap(p.Preferences))
	statistics, _ := json.Marshal(p.Statistics)
	recs, _ := json.Marshal(nonNilStrings(p.Recommendations))

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, level, xp, badges, competences, preferences, objectives, motivation,
			energy, statistics, recommendations, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (user_id) DO NOTHING`,
		p.UserID, p.Level, p.XP, string(badges), string(competences), string(preferences),
		p.Objectives, p.Motivation, p.Energy, string(statistics), string(recs), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProfileExists
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return gamification.ErrProfileNotFound
	}
	return nil
}

// Transact implements gamification.ProfileStore. The whole transaction is
// retried on serialization failures and deadlocks, so fn may run more than
// once; nothing is retried after a successful commit.
func (s *Store) Transact(ctx context.Context, userID int64, fn func(p *models.Profile) (*models.ProfileUpdate, error)) (*models.Profile, error) {
	for attempt := 1; ; attempt++ {
		p, err := s.transactOnce(ctx, userID, fn)
		if err == nil {
			return p, nil
		}
		if attempt >= maxTxAttempts || !isRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
		s.log.Warn("retrying profile transaction", "user_id", userID, "attempt", attempt, "error", err)
	}
}

func (s *Store) transactOnce(ctx context.Context, userID int64, fn func(p *models.Profile) (*models.ProfileUpdate, error)) (*models.Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistenceError("begin", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1 FOR UPDATE`, userID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gamification.ErrProfileNotFound
	}
	if err != nil {
		return nil, persistenceError("lock profile", err)
	}

	upd, err := fn(p)
	if err != nil {
		return nil, err
	}
	if upd == nil || (upd.Empty() && upd.Activity == nil && upd.XPEvent == nil) {
		return p, nil
	}

	now := time.Now().UTC()
	if !upd.Empty() {
		query, args, err := buildUpdate(userID, upd, now)
		if err != nil {
			return nil, fmt.Errorf("build update: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, persistenceError("update profile", err)
		}
	}

	if a := upd.Activity; a != nil {
		details, _ := json.Marshal(nonNilMap(a.Details))
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO profile_activities (user_id, type, details, created_at) VALUES ($1, $2, $3, $4)`,
			userID, a.Type, string(details), createdAt(a.CreatedAt, now),
		); err != nil {
			return nil, persistenceError("insert activity", err)
		}
	}

	if e := upd.XPEvent; e != nil {
		metadata, _ := json.Marshal(nonNilMap(e.Metadata))
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO xp_events (user_id, event_type, xp_amount, metadata, created_at) VALUES ($1, $2, $3, $4, $5)`,
			userID, e.EventType, e.XPAmount, string(metadata), createdAt(e.CreatedAt, now),
		); err != nil {
			return nil, persistenceError("insert xp event", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, persistenceError("commit", err)
	}

	upd.Apply(p, now)
	return p, nil
}

// ── Lists ───────────────────────────────────────────────

// Activities returns the most recent activities first.
func (s *Store) Activities(ctx context.Context, userID int64, limit int) ([]models.Activity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, type, details, created_at
		 FROM profile_activities
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	activities := []models.Activity{}
	for rows.Next() {
		var a models.Activity
		var details []byte
		if err := rows.Scan(&a.ID, &a.UserID, &a.Type, &details, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if len(details) > 0 {
			_ = json.Unmarshal(details, &a.Details)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// Leaderboard ranks profiles by XP.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(u.username, ''), p.level, p.xp, jsonb_array_length(p.badges)
		 FROM profiles p
		 JOIN users u ON u.id = p.user_id
		 ORDER BY p.xp DESC, p.user_id ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		e := models.LeaderboardEntry{Rank: len(entries) + 1}
		if err := rows.Scan(&e.Username, &e.Level, &e.XP, &e.BadgeCount); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ── Helpers ─────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	var p models.Profile
	var badges, competences, preferences, statistics, recs, analysis []byte
	var objectives, motivation sql.NullString
	var lastActivity sql.NullTime

	err := row.Scan(
		&p.UserID, &p.Level, &p.XP, &badges, &competences, &preferences, &objectives, &motivation,
		&p.Energy, &p.CurrentStreak, &p.BestStreak, &lastActivity, &p.QuizCompletedCount, &p.PerfectQuizCount,
		&p.TotalXPEarned, &statistics, &recs, &analysis, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if objectives.Valid {
		p.Objectives = &objectives.String
	}
	if motivation.Valid {
		p.Motivation = &motivation.String
	}
	if lastActivity.Valid {
		t := lastActivity.Time
		p.LastActivityAt = &t
	}

	for _, col := range []struct {
		raw  []byte
		dest any
	}{
		{badges, &p.Badges},
		{competences, &p.Competences},
		{preferences, &p.Preferences},
		{statistics, &p.Statistics},
		{recs, &p.Recommendations},
		{analysis, &p.DetailedAnalysis},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dest); err != nil {
			return nil, fmt.Errorf("decode profile column: %w", err)
		}
	}
	return &p, nil
}

type setList struct {
	cols []string
	args []any
}

func (s *setList) add(col string, v any) {
	s.args = append(s.args, v)
	s.cols = append(s.cols, fmt.Sprintf("%s = $%d", col, len(s.args)))
}

func (s *setList) addJSON(col string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.add(col, string(raw))
	return nil
}

// buildUpdate renders one UPDATE statement covering every set field of upd.
func buildUpdate(userID int64, upd *models.ProfileUpdate, now time.Time) (string, []any, error) {
	var s setList
	if upd.Level != nil {
		s.add("level", *upd.Level)
	}
	if upd.XP != nil {
		s.add("xp", *upd.XP)
	}
	if upd.Energy != nil {
		s.add("energy", *upd.Energy)
	}
	if upd.Objectives != nil {
		s.add("objectives", *upd.Objectives)
	}
	if upd.Motivation != nil {
		s.add("motivation", *upd.Motivation)
	}
	if upd.CurrentStreak != nil {
		s.add("current_streak", *upd.CurrentStreak)
	}
	if upd.BestStreak != nil {
		s.add("best_streak", *upd.BestStreak)
	}
	if upd.LastActivityAt != nil {
		s.add("last_activity_at", *upd.LastActivityAt)
	}
	if upd.QuizCompletedCount != nil {
		s.add("quiz_completed_count", *upd.QuizCompletedCount)
	}
	if upd.PerfectQuizCount != nil {
		s.add("perfect_quiz_count", *upd.PerfectQuizCount)
	}
	if upd.TotalXPEarned != nil {
		s.add("total_xp_earned", *upd.TotalXPEarned)
	}

	jsonCols := []struct {
		col string
		set bool
		v   any
	}{
		{"badges", upd.Badges != nil, upd.Badges},
		{"competences", upd.Competences != nil, upd.Competences},
		{"preferences", upd.Preferences != nil, upd.Preferences},
		{"statistics", upd.Statistics != nil, upd.Statistics},
		{"recommendations", upd.Recommendations != nil, upd.Recommendations},
		{"detailed_analysis", upd.DetailedAnalysis != nil, upd.DetailedAnalysis},
	}
	for _, c := range jsonCols {
		if !c.set {
			continue
		}
		if err := s.addJSON(c.col, c.v); err != nil {
			return "", nil, fmt.Errorf("encode %s: %w", c.col, err)
		}
	}

	s.add("updated_at", now)
	s.args = append(s.args, userID)
	query := fmt.Sprintf("UPDATE profiles SET %s WHERE user_id = $%d", strings.Join(s.cols, ", "), len(s.args))
	return query, s.args, nil
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, gamification.ErrPersistence, err)
}

func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

func createdAt(t, fallback time.Time) time.Time {
	if t.IsZero() {
		return fallback
	}
	return t
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
