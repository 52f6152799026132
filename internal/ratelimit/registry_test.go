package ratelimit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_OrdersTiersByCost(t *testing.T) {
	r, err := NewRegistry(DefaultTiers(), "balanced")
	require.NoError(t, err)

	var names []string
	for _, tier := range r.Tiers() {
		names = append(names, tier.Name)
	}
	assert.Equal(t, []string{"fast", "balanced", "accurate"}, names)
	assert.Equal(t, "balanced", r.Default())

	l, err := r.Limiter("")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", l.Tier().Model)

	_, err = r.Limiter("turbo")
	assert.Error(t, err)
}

func TestNewRegistry_RejectsBadConfig(t *testing.T) {
	_, err := NewRegistry(nil, "")
	assert.Error(t, err)

	_, err = NewRegistry(DefaultTiers(), "turbo")
	assert.Error(t, err)

	dup := append(DefaultTiers(), Tier{Name: "fast", RPM: 1, RPD: 1})
	_, err = NewRegistry(dup, "")
	assert.Error(t, err)
}

func TestRegistry_ExhaustedTierSuggestsCheaperTiers(t *testing.T) {
	clock := newFakeClock(epoch)
	tiers := []Tier{
		{Name: "fast", RPM: 10, RPD: 1, CostPerPage: 0.001},
		{Name: "balanced", RPM: 10, RPD: 5, CostPerPage: 0.002},
		{Name: "accurate", RPM: 10, RPD: 1, CostPerPage: 0.01},
	}
	r, err := NewRegistry(tiers, "", WithClock(clock))
	require.NoError(t, err)
	ctx := context.Background()

	fast, _ := r.Limiter("fast")
	accurate, _ := r.Limiter("accurate")

	require.NoError(t, accurate.Acquire(ctx))
	err = accurate.Acquire(ctx)
	var qe *QuotaExhaustedError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, []string{"fast", "balanced"}, qe.Alternatives)
	assert.Contains(t, err.Error(), "fast, balanced")

	require.NoError(t, fast.Acquire(ctx))
	err = accurate.Acquire(ctx)
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, []string{"balanced"}, qe.Alternatives)

	err = fast.Acquire(ctx)
	require.True(t, errors.As(err, &qe))
	assert.Empty(t, qe.Alternatives)
}
