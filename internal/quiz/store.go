package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pinpoint-prep/backend/internal/database"
	"github.com/pinpoint-prep/backend/internal/models"
)

type Store struct {
	db database.DBTX
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a Store whose queries run in tx.
func (s *Store) WithTx(tx *sql.Tx) *Store {
	return &Store{db: tx}
}

var _ SessionStore = (*Store)(nil)

// ── Sessions ────────────────────────────────────────────

func (s *Store) CreateSession(ctx context.Context, st *State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quiz_sessions (id, user_id, state, updated_at) VALUES ($1, $2, $3, $4)`,
		st.ID, st.UserID, string(data), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*State, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM quiz_sessions WHERE id = $1`, id,
	).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var st State
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &st, nil
}

func (s *Store) SaveSession(ctx context.Context, st *State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE quiz_sessions SET state = $1, updated_at = $2 WHERE id = $3`,
		string(data), time.Now().Unix(), st.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes a session, returning ErrSessionNotFound when it is
// already gone.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quiz_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteStaleSessions removes sessions untouched since before cutoff and
// reports how many went.
func (s *Store) DeleteStaleSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM quiz_sessions WHERE updated_at < $1`, cutoff.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete stale sessions: %w", err)
	}
	return res.RowsAffected()
}

// ── Results ─────────────────────────────────────────────

const resultCols = `id, user_id, local_math, local_ebrw, local_overall,
	actual_math, actual_ebrw, actual_overall,
	math_correct, ebrw_correct, math_total, ebrw_total,
	retake, mode, started_at, ended_at, questions`

func (s *Store) SaveResult(ctx context.Context, r *models.QuizResult) (int64, error) {
	questions, err := json.Marshal(r.Questions)
	if err != nil {
		return 0, fmt.Errorf("marshal questions: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO quiz_results
		 (user_id, local_math, local_ebrw, local_overall,
		  actual_math, actual_ebrw, actual_overall,
		  math_correct, ebrw_correct, math_total, ebrw_total,
		  retake, mode, started_at, ended_at, questions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 RETURNING id`,
		r.UserID, r.LocalMath, r.LocalEBRW, r.LocalOverall,
		r.ActualMath, r.ActualEBRW, r.ActualOverall,
		r.MathCorrect, r.EBRWCorrect, r.MathTotal, r.EBRWTotal,
		r.Retake, r.Mode, r.StartedAt.Unix(), r.EndedAt.Unix(), string(questions),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert result: %w", err)
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (*models.QuizResult, error) {
	var r models.QuizResult
	var started, ended int64
	var questions string
	if err := row.Scan(&r.ID, &r.UserID, &r.LocalMath, &r.LocalEBRW, &r.LocalOverall,
		&r.ActualMath, &r.ActualEBRW, &r.ActualOverall,
		&r.MathCorrect, &r.EBRWCorrect, &r.MathTotal, &r.EBRWTotal,
		&r.Retake, &r.Mode, &started, &ended, &questions); err != nil {
		return nil, err
	}
	r.StartedAt = time.Unix(started, 0).UTC()
	r.EndedAt = time.Unix(ended, 0).UTC()
	r.ElapsedSeconds = float64(ended - started)
	if err := json.Unmarshal([]byte(questions), &r.Questions); err != nil {
		return nil, fmt.Errorf("decode result %d questions: %w", r.ID, err)
	}
	return &r, nil
}

func (s *Store) GetResult(ctx context.Context, id int64) (*models.QuizResult, error) {
	r, err := scanResult(s.db.QueryRowContext(ctx,
		`SELECT `+resultCols+` FROM quiz_results WHERE id = $1`, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get result: %w", err)
	}
	return r, nil
}

func (s *Store) LatestResult(ctx context.Context, userID int64) (*models.QuizResult, error) {
	r, err := scanResult(s.db.QueryRowContext(ctx,
		`SELECT `+resultCols+` FROM quiz_results WHERE user_id = $1 ORDER BY id DESC LIMIT 1`, userID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("latest result: %w", err)
	}
	return r, nil
}

// ListResults returns up to limit results, newest first.
func (s *Store) ListResults(ctx context.Context, userID int64, limit int) ([]models.QuizResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resultCols+` FROM quiz_results WHERE user_id = $1 ORDER BY id DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []models.QuizResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

func (s *Store) CountResults(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quiz_results WHERE user_id = $1`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return n, nil
}
