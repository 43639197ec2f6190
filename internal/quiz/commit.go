package quiz

import (
	"context"
	"database/sql"

	"github.com/pinpoint-prep/backend/internal/database"
)

// Committer runs fn against stores that commit or roll back together.
type Committer interface {
	Commit(ctx context.Context, fn func(sessions SessionStore, proficiency ProficiencyStore) error) error
}

// SQLCommitter binds both stores to one database transaction.
type SQLCommitter struct {
	db            *sql.DB
	sessions      *Store
	proficiencyTx func(tx *sql.Tx) ProficiencyStore
}

func NewSQLCommitter(db *sql.DB, sessions *Store, proficiencyTx func(tx *sql.Tx) ProficiencyStore) *SQLCommitter {
	return &SQLCommitter{db: db, sessions: sessions, proficiencyTx: proficiencyTx}
}

var _ Committer = (*SQLCommitter)(nil)

func (c *SQLCommitter) Commit(ctx context.Context, fn func(SessionStore, ProficiencyStore) error) error {
	return database.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		return fn(c.sessions.WithTx(tx), c.proficiencyTx(tx))
	})
}
