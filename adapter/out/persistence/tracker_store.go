package persistence

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"tracker_server/core/port/out"
)

// Store implements out.Store on PostgreSQL. The zero transaction mode runs
// every call on the pool; WithinTx hands callbacks a Store bound to one
// transaction, so a whole pipeline invocation commits or rolls back as a
// unit.
type Store struct {
	db           *sqlx.DB
	applications *ApplicationAdapter
	events       *EventAdapter
}

// NewStore creates the store over a connected pool.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:           db,
		applications: NewApplicationAdapter(db),
		events:       NewEventAdapter(db),
	}
}

func (s *Store) Applications() out.ApplicationRepository { return s.applications }
func (s *Store) Events() out.EventRepository             { return s.events }

// WithinTx runs fn against a transaction-scoped store. A nil error commits;
// any error rolls back and is returned unchanged.
func (s *Store) WithinTx(ctx context.Context, fn func(tx out.Store) error) error {
	dbTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return translate("begin transaction", err)
	}

	txStore := &Store{
		db:           s.db,
		applications: NewApplicationAdapter(dbTx),
		events:       NewEventAdapter(dbTx),
	}

	if err := fn(txStore); err != nil {
		if rbErr := dbTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return translate("commit transaction", err)
	}
	return nil
}
