// Package dbtest opens migrated sqlite databases for tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/pinpoint-prep/backend/internal/config"
	"github.com/pinpoint-prep/backend/internal/database"
)

// Open returns a migrated sqlite database in t's temp dir, closed on cleanup.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, config.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(ctx, db, config.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// InsertQuestion adds a question row and returns its ID.
func InsertQuestion(t testing.TB, db *sql.DB, subject string, difficulty int, prompt, correct string, wrong ...string) int64 {
	t.Helper()
	w := make([]string, 3)
	copy(w, wrong)
	var id int64
	err := db.QueryRow(
		`INSERT INTO questions (subject, difficulty, prompt, correct_answer, wrong_answer1, wrong_answer2, wrong_answer3, explanation)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		subject, difficulty, prompt, correct, w[0], w[1], w[2], "because "+correct,
	).Scan(&id)
	if err != nil {
		t.Fatalf("insert question: %v", err)
	}
	return id
}
