package dummydb

import (
	"context"
	"sync"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/abstract"
	"github.com/confhub/backend/core/conference"
	"github.com/confhub/backend/core/review"
	"github.com/confhub/backend/core/reviewer"
	"github.com/confhub/backend/core/user"
)

type (
	// DB is an in-memory store. Transactions are serialized; a failed one restores the tables it started with.
	DB struct {
		txMu sync.Mutex
		mu   sync.RWMutex
		tables
	}

	tables struct {
		users       []user.User
		conferences []conference.Conference
		abstracts   []abstract.Abstract
		members     []reviewer.Membership
		assignments []reviewer.Assignment
		invitations []reviewer.Invitation
		reviews     []review.Review
	}
)

var _ core.Transactor = (*DB)(nil)

func Open() (*DB, error) {
	return &DB{}, nil
}

func (t tables) snapshot() tables {
	return tables{
		users:       append([]user.User(nil), t.users...),
		conferences: append([]conference.Conference(nil), t.conferences...),
		abstracts:   append([]abstract.Abstract(nil), t.abstracts...),
		members:     append([]reviewer.Membership(nil), t.members...),
		assignments: append([]reviewer.Assignment(nil), t.assignments...),
		invitations: append([]reviewer.Invitation(nil), t.invitations...),
		reviews:     append([]review.Review(nil), t.reviews...),
	}
}

// InTx runs fn alone against the store. The executor handed to fn is nil; the repositories do not need one.
func (db *DB) InTx(ctx context.Context, fn func(exec core.DBExecutor) error) (err error) {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	if err = ctx.Err(); err != nil {
		return err
	}

	db.mu.RLock()
	saved := db.tables.snapshot()
	db.mu.RUnlock()

	restore := func() {
		db.mu.Lock()
		db.tables = saved
		db.mu.Unlock()
	}

	defer func() {
		if p := recover(); p != nil {
			restore()
			panic(p)
		}
		if err != nil {
			restore()
		}
	}()

	return fn(nil)
}

// Reset empties every table.
func (db *DB) Reset() {
	db.txMu.Lock()
	defer db.txMu.Unlock()
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tables = tables{}
}
