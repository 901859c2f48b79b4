package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/recurator/tram/internal/model"
)

const (
	maxTxAttempts  = 5
	initialBackoff = 10 * time.Millisecond
)

// txKey is the context key the transaction-scoped *sql.Tx is stashed under
// so memory/vector/audit/etc. helpers can participate in WithTx without
// each call threading a *sql.Tx parameter explicitly.
type txKey struct{}

// WithTx runs fn inside a transaction, retrying with exponential backoff on
// SQLITE_BUSY/SQLITE_LOCKED, surfacing a ContentionError once the attempt
// budget is exhausted.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	backoff := initialBackoff
	var lastErr error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		err = fn(context.WithValue(ctx, txKey{}, tx))
		if err == nil {
			if cerr := tx.Commit(); cerr != nil {
				lastErr = cerr
				if isBusy(cerr) {
					time.Sleep(backoff)
					backoff *= 2
					continue
				}
				return cerr
			}
			return nil
		}
		tx.Rollback()
		if !isBusy(err) {
			return err
		}
		lastErr = err
		time.Sleep(backoff)
		backoff *= 2
	}
	return &model.ContentionError{Attempts: maxTxAttempts, Cause: lastErr}
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

func isConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the active transaction from ctx if WithTx is in progress,
// otherwise the Store's own *sql.DB for standalone (auto-committing) calls.
func (s *Store) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}
