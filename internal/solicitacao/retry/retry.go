// Package retry re-runs read-modify-write cycles that lost an optimistic version race.
package retry

import (
	"context"
	"errors"

	"beneficios_backend/internal/solicitacao/domain"
)

// DefaultAttempts bounds OnConflict when the caller passes a non-positive value.
const DefaultAttempts = 3

// OnConflict calls fn until it returns something other than a concurrent
// modification, or attempts runs out. fn must re-read its entities on every call.
// The last error is returned unchanged so callers can still match it.
func OnConflict(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = DefaultAttempts
	}

	var err error
	for range attempts {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn(ctx)
		if err == nil || !errors.Is(err, domain.ErrConcurrentModification) {
			return err
		}
	}
	return err
}
