package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	clk := New()
	require.NotNil(t, clk)

	before := time.Now().UTC().Add(-time.Second)
	got := clk.Now()
	after := time.Now().UTC().Add(time.Second)

	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.After(before) && got.Before(after), "expected %v between %v and %v", got, before, after)
}

func TestFixedClock(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	clk := NewFixed(start)
	assert.Equal(t, start, clk.Now())

	clk.Advance(24 * time.Hour)
	assert.Equal(t, start.AddDate(0, 0, 1), clk.Now())

	clk.Set(start)
	assert.Equal(t, start, clk.Now())
}
