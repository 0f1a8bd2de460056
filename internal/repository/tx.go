package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Sentinel errors translated from PostgreSQL constraint violations.
var (
	// ErrDuplicate reports a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")
	// ErrOverlap reports an exclusion constraint violation (overlapping session).
	ErrOverlap = errors.New("overlapping record")
	// ErrStaleStatus reports a conditional update that matched no row.
	ErrStaleStatus = errors.New("row changed concurrently")
)

const (
	pqUniqueViolation    = "23505"
	pqExclusionViolation = "23P01"
)

type txKey struct{}

// Transactor runs a function inside a database transaction carried on the context.
// Repositories constructed from the same *sqlx.DB pick the transaction up automatically.
type Transactor struct {
	db        *sqlx.DB
	isolation sql.IsolationLevel
}

// NewTransactor builds a read-committed transactor.
func NewTransactor(db *sqlx.DB) *Transactor {
	return &Transactor{db: db, isolation: sql.LevelReadCommitted}
}

// WithinTransaction commits when fn returns nil and rolls back otherwise.
// Nested calls join the outer transaction.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTxx(ctx, &sql.TxOptions{Isolation: t.isolation})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// executor returns the transaction bound to ctx, falling back to db.
func executor(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

// classify maps constraint violations to repository sentinels.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
		case pqExclusionViolation:
			return fmt.Errorf("%w: %s", ErrOverlap, pqErr.Constraint)
		}
	}
	return err
}
