package uow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kirinyoku/staydesk/internal/repository"
	"github.com/kirinyoku/staydesk/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRunsHooksOnlyAfterCommit(t *testing.T) {
	u := NewUoW(memory.NewStore())
	ran := 0

	err := u.Do(context.Background(), func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error {
		after(func(context.Context) { ran++ })
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ran)

	err = u.Do(context.Background(), func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error {
		after(func(context.Context) { ran++ })
		return errors.New("rollback")
	})
	require.Error(t, err)
	assert.Equal(t, 1, ran)
}

func TestDoRetryRetriesSerializationFailures(t *testing.T) {
	u := NewUoW(memory.NewStore())
	calls := 0

	err := u.DoRetry(context.Background(), 2, func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error {
		calls++
		if calls == 1 {
			return fmt.Errorf("commit: %w", repository.ErrSerialization)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = u.DoRetry(context.Background(), 2, func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error {
		calls++
		return repository.ErrSerialization
	})
	assert.ErrorIs(t, err, repository.ErrSerialization)
	assert.Equal(t, 2, calls)

	calls = 0
	err = u.DoRetry(context.Background(), 2, func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error {
		calls++
		return repository.ErrOverlap
	})
	assert.ErrorIs(t, err, repository.ErrOverlap)
	assert.Equal(t, 1, calls)
}
