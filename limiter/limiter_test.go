package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNew(t *testing.T) {
	assert.Nil(t, New())
	assert.Nil(t, New(Config{EventCount: 0, EventDur: 1}))

	l := New(
		Config{EventCount: 10, EventDur: 1},
		Config{EventCount: 1, EventDur: 2},
	)
	require.NotNil(t, l)
	// 最严格的规则排在最前
	assert.Equal(t, Per(1, 2*time.Second), l.Limit())
}

func TestMultiWait(t *testing.T) {
	l := Multi(rate.NewLimiter(rate.Inf, 1), rate.NewLimiter(rate.Inf, 1))
	require.NoError(t, l.Wait(context.Background()))

	slow := Multi(rate.NewLimiter(Per(1, time.Hour), 1))
	require.NoError(t, slow.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, slow.Wait(ctx))
}
