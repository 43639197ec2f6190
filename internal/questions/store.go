package questions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pinpoint-prep/backend/internal/adaptive"
	"github.com/pinpoint-prep/backend/internal/models"
)

var ErrQuestionNotFound = errors.New("question not found")

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ adaptive.QuestionRepository = (*Store)(nil)

const questionCols = `id, subject, difficulty, prompt, correct_answer,
	wrong_answer1, wrong_answer2, wrong_answer3, explanation`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*models.Question, error) {
	var q models.Question
	var subject string
	var w1, w2, w3 string
	if err := row.Scan(&q.ID, &subject, &q.Difficulty, &q.Prompt, &q.CorrectAnswer,
		&w1, &w2, &w3, &q.Explanation); err != nil {
		return nil, err
	}
	q.Subject = models.Subject(subject)
	for _, w := range []string{w1, w2, w3} {
		if w != "" {
			q.WrongAnswers = append(q.WrongAnswers, w)
		}
	}
	return &q, nil
}

// ── Adaptive Serving ────────────────────────────────────

// FindExact returns one question of subject at difficulty, chosen by pick
// when several exist, or nil when none do.
func (s *Store) FindExact(ctx context.Context, subject models.Subject, difficulty int, pick adaptive.Picker) (*models.Question, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM questions WHERE subject = $1 AND difficulty = $2`,
		string(subject), difficulty,
	).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	q, err := scanQuestion(s.db.QueryRowContext(ctx,
		`SELECT `+questionCols+` FROM questions
		 WHERE subject = $1 AND difficulty = $2
		 ORDER BY id LIMIT 1 OFFSET $3`,
		string(subject), difficulty, pick.Intn(count),
	))
	if err != nil {
		// Rows deleted between the two queries.
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find exact question: %w", err)
	}
	return q, nil
}

// FindRandom returns any question of subject, or nil when the subject has none.
func (s *Store) FindRandom(ctx context.Context, subject models.Subject, pick adaptive.Picker) (*models.Question, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM questions WHERE subject = $1`,
		string(subject),
	).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	q, err := scanQuestion(s.db.QueryRowContext(ctx,
		`SELECT `+questionCols+` FROM questions
		 WHERE subject = $1
		 ORDER BY id LIMIT 1 OFFSET $2`,
		string(subject), pick.Intn(count),
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find random question: %w", err)
	}
	return q, nil
}

// ── Lookup ──────────────────────────────────────────────

func (s *Store) GetQuestion(ctx context.Context, id int64) (*models.Question, error) {
	q, err := scanQuestion(s.db.QueryRowContext(ctx,
		`SELECT `+questionCols+` FROM questions WHERE id = $1`, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

// ── Reports ─────────────────────────────────────────────

// ReportQuestion records a learner's complaint about a question.
func (s *Store) ReportQuestion(ctx context.Context, userID, questionID int64, reason string) (*models.QuestionReport, error) {
	if _, err := s.GetQuestion(ctx, questionID); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Second)
	report := &models.QuestionReport{
		UserID:     userID,
		QuestionID: questionID,
		Reason:     reason,
		CreatedAt:  now,
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO question_reports (user_id, question_id, reason, created_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		userID, questionID, reason, now.Unix(),
	).Scan(&report.ID)
	if err != nil {
		return nil, fmt.Errorf("insert question report: %w", err)
	}
	return report, nil
}

// ListReports returns the reports userID filed against a question, oldest
// first.
func (s *Store) ListReports(ctx context.Context, userID, questionID int64) ([]models.QuestionReport, error) {
	if _, err := s.GetQuestion(ctx, questionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, question_id, reason, created_at
		 FROM question_reports WHERE user_id = $1 AND question_id = $2 ORDER BY id`,
		userID, questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list question reports: %w", err)
	}
	defer rows.Close()

	var reports []models.QuestionReport
	for rows.Next() {
		var r models.QuestionReport
		var created int64
		if err := rows.Scan(&r.ID, &r.UserID, &r.QuestionID, &r.Reason, &created); err != nil {
			return nil, fmt.Errorf("scan question report: %w", err)
		}
		r.CreatedAt = time.Unix(created, 0).UTC()
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
