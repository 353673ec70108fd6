package retry

import (
	"context"
	"errors"
	"testing"

	"beneficios_backend/internal/solicitacao/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestOnConflictRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := OnConflict(context.Background(), 3, func(context.Context) error {
		calls++
		if calls < 3 {
			return domain.ConcurrentModification("solicitacao", uuid.New(), calls)
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestOnConflictGivesUp(t *testing.T) {
	calls := 0
	err := OnConflict(context.Background(), 2, func(context.Context) error {
		calls++
		return domain.ConcurrentModification("pendencia", uuid.New(), 1)
	})
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.Equal(t, 2, calls)
}

func TestOnConflictDoesNotRetryOtherErrors(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := OnConflict(context.Background(), 5, func(context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestOnConflictHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := OnConflict(ctx, 3, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
