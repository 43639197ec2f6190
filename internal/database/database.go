package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/pinpoint-prep/backend/internal/config"
)

// Connect opens and pings the database named by cfg.
func Connect(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	return Open(ctx, cfg.DBDriver, cfg.DSN())
}

// Open opens a postgres (lib/pq) or sqlite (modernc) database.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case config.DriverPostgres, config.DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == config.DriverSQLite {
		// One writer at a time; sqlite serialises writes anyway.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure sqlite: %w", err)
		}
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	return db, nil
}

// Migrate creates any missing tables. It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	schema := schemaPostgres
	if driver == config.DriverSQLite {
		schema = schemaSQLite
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Timestamps are unix seconds so both drivers share one set of queries.

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS user_proficiency (
	user_id     BIGINT PRIMARY KEY,
	math        DOUBLE PRECISION NOT NULL,
	ebrw        DOUBLE PRECISION NOT NULL,
	overall     DOUBLE PRECISION NOT NULL,
	updated_at  BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
	id              BIGSERIAL PRIMARY KEY,
	subject         VARCHAR(10) NOT NULL,
	difficulty      INTEGER NOT NULL CHECK (difficulty BETWEEN 1 AND 10),
	prompt          TEXT NOT NULL,
	correct_answer  TEXT NOT NULL,
	wrong_answer1   TEXT NOT NULL DEFAULT '',
	wrong_answer2   TEXT NOT NULL DEFAULT '',
	wrong_answer3   TEXT NOT NULL DEFAULT '',
	explanation     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_questions_subject_difficulty ON questions(subject, difficulty);

CREATE TABLE IF NOT EXISTS question_reports (
	id           BIGSERIAL PRIMARY KEY,
	user_id      BIGINT NOT NULL,
	question_id  BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	reason       TEXT NOT NULL,
	created_at   BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS quiz_sessions (
	id          TEXT PRIMARY KEY,
	user_id     BIGINT NOT NULL,
	state       TEXT NOT NULL,
	updated_at  BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quiz_sessions_user ON quiz_sessions(user_id);

CREATE TABLE IF NOT EXISTS quiz_results (
	id              BIGSERIAL PRIMARY KEY,
	user_id         BIGINT NOT NULL,
	local_math      DOUBLE PRECISION NOT NULL,
	local_ebrw      DOUBLE PRECISION NOT NULL,
	local_overall   DOUBLE PRECISION NOT NULL,
	actual_math     DOUBLE PRECISION NOT NULL,
	actual_ebrw     DOUBLE PRECISION NOT NULL,
	actual_overall  DOUBLE PRECISION NOT NULL,
	math_correct    INTEGER NOT NULL,
	ebrw_correct    INTEGER NOT NULL,
	math_total      INTEGER NOT NULL,
	ebrw_total      INTEGER NOT NULL,
	retake          BOOLEAN NOT NULL DEFAULT FALSE,
	mode            VARCHAR(10) NOT NULL,
	started_at      BIGINT NOT NULL,
	ended_at        BIGINT NOT NULL,
	questions       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quiz_results_user ON quiz_results(user_id, id DESC);
`

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS user_proficiency (
	user_id     INTEGER PRIMARY KEY,
	math        REAL NOT NULL,
	ebrw        REAL NOT NULL,
	overall     REAL NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	subject         TEXT NOT NULL,
	difficulty      INTEGER NOT NULL CHECK (difficulty BETWEEN 1 AND 10),
	prompt          TEXT NOT NULL,
	correct_answer  TEXT NOT NULL,
	wrong_answer1   TEXT NOT NULL DEFAULT '',
	wrong_answer2   TEXT NOT NULL DEFAULT '',
	wrong_answer3   TEXT NOT NULL DEFAULT '',
	explanation     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_questions_subject_difficulty ON questions(subject, difficulty);

CREATE TABLE IF NOT EXISTS question_reports (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id      INTEGER NOT NULL,
	question_id  INTEGER NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	reason       TEXT NOT NULL,
	created_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS quiz_sessions (
	id          TEXT PRIMARY KEY,
	user_id     INTEGER NOT NULL,
	state       TEXT NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quiz_sessions_user ON quiz_sessions(user_id);

CREATE TABLE IF NOT EXISTS quiz_results (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id         INTEGER NOT NULL,
	local_math      REAL NOT NULL,
	local_ebrw      REAL NOT NULL,
	local_overall   REAL NOT NULL,
	actual_math     REAL NOT NULL,
	actual_ebrw     REAL NOT NULL,
	actual_overall  REAL NOT NULL,
	math_correct    INTEGER NOT NULL,
	ebrw_correct    INTEGER NOT NULL,
	math_total      INTEGER NOT NULL,
	ebrw_total      INTEGER NOT NULL,
	retake          INTEGER NOT NULL DEFAULT 0,
	mode            TEXT NOT NULL,
	started_at      INTEGER NOT NULL,
	ended_at        INTEGER NOT NULL,
	questions       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quiz_results_user ON quiz_results(user_id, id DESC);
`
