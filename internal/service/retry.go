package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/patricesweeney/analysis-jobs/internal/store"
)

const (
	writeAttempts        = 3
	writeInitialInterval = 200 * time.Millisecond
	writeMaxInterval     = 2 * time.Second
)

// BackOffFactory builds a fresh backoff policy for a single write.
type BackOffFactory func() backoff.BackOff

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = writeInitialInterval
	b.MaxInterval = writeMaxInterval
	return b
}

// retryWrite runs op up to writeAttempts times. Store answers that another
// attempt cannot change are not retried.
func retryWrite(ctx context.Context, newBackOff BackOffFactory, op func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), writeAttempts-1), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, store.ErrStatusConflict) || errors.Is(err, store.ErrRecordNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
