package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"fishbox/internal/core"
)

const defaultSideEffectTimeout = 10 * time.Second

// Background runs fire-and-forget side effects. Each task gets a context
// detached from the caller's cancellation and bounded by a timeout; Wait
// blocks until every started task has returned.
type Background struct {
	wg      sync.WaitGroup
	timeout time.Duration
}

func NewBackground(timeout time.Duration) *Background {
	if timeout <= 0 {
		timeout = defaultSideEffectTimeout
	}
	return &Background{timeout: timeout}
}

func (b *Background) Go(ctx context.Context, fn func(context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (b *Background) Wait() {
	b.wg.Wait()
}

// asFetch keeps typed repository errors and wraps anything else.
func asFetch(op string, err error) error {
	var fe *core.FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &core.FetchError{Op: op, Err: err}
}

func asPersistence(op string, err error) error {
	var pe *core.PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &core.PersistenceError{Op: op, Err: err}
}
