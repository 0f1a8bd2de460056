package service

import "context"

// Transactor runs fn as one atomic unit of work. Repositories invoked with the ctx passed to fn
// join that unit.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
