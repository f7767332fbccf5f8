package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponential(t *testing.T) {
	b := NewExponential(time.Millisecond, 4*time.Millisecond)
	got := []time.Duration{}
	for i := 0; i < 4; i++ {
		got = append(got, b.NextDuration)
		require.NoError(t, b.Wait(context.Background()))
	}
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond, 4 * time.Millisecond}, got)
	assert.Equal(t, 4, b.Count())

	b.Reset()
	assert.Equal(t, time.Millisecond, b.NextDuration)
	assert.Zero(t, b.LastDuration)
}

func TestLinear(t *testing.T) {
	b := NewLinear(time.Millisecond, 0)
	require.NoError(t, b.Wait(context.Background()))
	require.NoError(t, b.Wait(context.Background()))
	assert.Equal(t, 3*time.Millisecond, b.NextDuration)
}

func TestJitter(t *testing.T) {
	b := NewExponential(10*time.Millisecond, 0).WithJitter(0.5)
	assert.GreaterOrEqual(t, b.NextDuration, 10*time.Millisecond)
	assert.Less(t, b.NextDuration, 15*time.Millisecond)
}

func TestWaitCanceled(t *testing.T) {
	b := NewExponential(time.Hour, 0)
	c, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Wait(c), context.Canceled)
	assert.Equal(t, 0, b.Count())
}

func TestRetry(t *testing.T) {
	errDial := errors.New("dial")
	calls, seen := 0, 0
	err := Retry(context.Background(), NewLinear(time.Millisecond, 0), 3, func() error {
		calls++
		if calls < 3 {
			return errDial
		}
		return nil
	}, func(int, error) { seen++ })
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, seen)

	calls = 0
	err = Retry(context.Background(), NewLinear(time.Millisecond, 0), 2, func() error {
		calls++
		return errDial
	}, nil)
	assert.ErrorIs(t, err, errDial)
	assert.Equal(t, 2, calls)
}
