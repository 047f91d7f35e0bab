package retrier

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	r := New(time.Millisecond, 5*time.Millisecond, 3)

	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ReturnsLastErrorWhenExhausted(t *testing.T) {
	r := New(time.Millisecond, 5*time.Millisecond, 2)

	sentinel := errors.New("still broken")
	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return sentinel
	})

	assert.Equal(t, 2, calls)
	assert.True(t, errors.Is(err, sentinel))
}

func TestDo_StopsOnContextCancel(t *testing.T) {
	r := New(50*time.Millisecond, time.Second, 10)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := r.Do(ctx, func(ctx context.Context) error {
		calls++
		return errors.New("transient")
	})

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
}

func TestDo_PermanentStopsRetrying(t *testing.T) {
	r := New(time.Millisecond, 5*time.Millisecond, 5)

	sentinel := errors.New("gone for good")
	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(sentinel)
	})

	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, sentinel))
}

func TestPermanent_NilStaysNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}

func TestDoWithData(t *testing.T) {
	r := New(time.Millisecond, 5*time.Millisecond, 3)

	calls := 0
	got, err := DoWithData(r, context.Background(), func(ctx context.Context) (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
}
