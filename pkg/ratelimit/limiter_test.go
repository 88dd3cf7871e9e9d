package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucket(t *testing.T) {
	tb := NewTokenBucket(time.Hour, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow(), "token %d should be available", i+1)
	}
	assert.False(t, tb.Allow())

	tb.Reset()
	assert.True(t, tb.Allow())
}

func TestTokenBucketRefill(t *testing.T) {
	tb := NewTokenBucket(20*time.Millisecond, 1)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, tb.Wait(ctx))
}

func TestTokenBucketWaitCancelled(t *testing.T) {
	tb := NewTokenBucket(time.Hour, 1)
	assert.True(t, tb.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, tb.Wait(ctx))
}

func TestPerMinute(t *testing.T) {
	_, ok := PerMinute(0).(Unlimited)
	assert.True(t, ok)

	l := PerMinute(60)
	for i := 0; i < 60; i++ {
		assert.True(t, l.Allow())
	}
	assert.False(t, l.Allow())
}

func TestUnlimited(t *testing.T) {
	var u Unlimited
	assert.True(t, u.Allow())
	assert.NoError(t, u.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, u.Wait(ctx), context.Canceled)
}
