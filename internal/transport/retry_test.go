package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryDelay(t *testing.T) {
	require.Equal(t, 200*time.Millisecond, RetryDelay(-1))
	require.Equal(t, 200*time.Millisecond, RetryDelay(0))
	require.Equal(t, 800*time.Millisecond, RetryDelay(2))
	require.Equal(t, 5*time.Second, RetryDelay(5))
	require.Equal(t, 5*time.Second, RetryDelay(60))
}

func TestSleepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	require.NoError(t, Sleep(context.Background(), time.Millisecond))
}
