package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimiterAllowsUnderLimit(t *testing.T) {
	l := NewLimiter(NewMemoryStore(), LimitRule{Scope: ScopeUser, Window: WindowMinute, Limit: 3})
	for i := 0; i < 3; i++ {
		result := l.CheckAndRecord(context.Background(), "u1")
		assert.True(t, result.Allowed)
	}
}

func TestLimiterDeniesOverLimit(t *testing.T) {
	l := NewLimiter(NewMemoryStore(), LimitRule{Scope: ScopeUser, Window: WindowMinute, Limit: 1})
	first := l.CheckAndRecord(context.Background(), "u1")
	assert.True(t, first.Allowed)

	second := l.CheckAndRecord(context.Background(), "u1")
	assert.False(t, second.Allowed)
	assert.Greater(t, second.RetryAfter.Seconds(), 0.0)
}

func TestLimiterTracksIdentifiersIndependently(t *testing.T) {
	l := NewLimiter(NewMemoryStore(), LimitRule{Scope: ScopeUser, Window: WindowMinute, Limit: 1})
	assert.True(t, l.CheckAndRecord(context.Background(), "u1").Allowed)
	assert.True(t, l.CheckAndRecord(context.Background(), "u2").Allowed)
}

func TestLimiterWithNoRulesAlwaysAllows(t *testing.T) {
	l := NewLimiter(NewMemoryStore())
	result := l.CheckAndRecord(context.Background(), "u1")
	assert.True(t, result.Allowed)
}
