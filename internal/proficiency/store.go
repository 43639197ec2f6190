package proficiency

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pinpoint-prep/backend/internal/adaptive"
	"github.com/pinpoint-prep/backend/internal/database"
	"github.com/pinpoint-prep/backend/internal/models"
)

type Store struct {
	db       database.DBTX
	initial  float64
	nowFunc  func() time.Time
	lockRows bool
}

// NewStore returns a Store that seeds new users at initial in both subjects.
func NewStore(db *sql.DB, initial float64) *Store {
	return &Store{db: db, initial: adaptive.Clamp(initial), nowFunc: time.Now}
}

// WithTx returns a copy of s bound to tx. With lockRows set, ReadEstimates
// holds the user's row until tx ends (SELECT ... FOR UPDATE, postgres only).
func (s *Store) WithTx(tx *sql.Tx, lockRows bool) *Store {
	c := *s
	c.db = tx
	c.lockRows = lockRows
	return &c
}

// ReadEstimates returns the user's persisted estimates, creating the row at the
// initial estimate on first use.
func (s *Store) ReadEstimates(ctx context.Context, userID int64) (*models.UserProficiency, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_proficiency (user_id, math, ebrw, overall, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, s.initial, s.initial, s.initial, s.nowFunc().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert proficiency: %w", err)
	}

	query := `SELECT user_id, math, ebrw, overall, updated_at
		 FROM user_proficiency WHERE user_id = $1`
	if s.lockRows {
		query += ` FOR UPDATE`
	}

	var p models.UserProficiency
	var updated int64
	err = s.db.QueryRowContext(ctx, query, userID).Scan(&p.UserID, &p.Math, &p.EBRW, &p.Overall, &updated)
	if err != nil {
		return nil, fmt.Errorf("get proficiency: %w", err)
	}
	p.UpdatedAt = time.Unix(updated, 0).UTC()
	return &p, nil
}

// ReadEstimate returns one subject's estimate.
func (s *Store) ReadEstimate(ctx context.Context, userID int64, subject models.Subject) (float64, error) {
	p, err := s.ReadEstimates(ctx, userID)
	if err != nil {
		return 0, err
	}
	return p.For(subject), nil
}

// WriteEstimates replaces the user's estimates.
func (s *Store) WriteEstimates(ctx context.Context, userID int64, est adaptive.Estimates) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_proficiency (user_id, math, ebrw, overall, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE
		 SET math = excluded.math, ebrw = excluded.ebrw,
		     overall = excluded.overall, updated_at = excluded.updated_at`,
		userID, est.Math, est.EBRW, est.Overall, s.nowFunc().Unix(),
	)
	if err != nil {
		return fmt.Errorf("write proficiency: %w", err)
	}
	return nil
}
