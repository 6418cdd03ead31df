package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreaks_Record(t *testing.T) {
	s := NewStreaks(DefaultK, DefaultStreakWeight)

	assert.Equal(t, 0, s.Get("x"), "unseen items have no streak")

	assert.InDelta(t, 35.2, s.Record("x", "a"), 1e-9)
	assert.InDelta(t, 38.4, s.Record("x", "b"), 1e-9)
	assert.InDelta(t, 41.6, s.Record("x", "c"), 1e-9)
	assert.Equal(t, 3, s.Get("x"))

	s.Record("y", "x")
	assert.Equal(t, 0, s.Get("x"), "a loss resets the streak")
	assert.Equal(t, 1, s.Get("y"))
}

func TestStreaks_FiveWinsMultiplier(t *testing.T) {
	s := NewStreaks(DefaultK, DefaultStreakWeight)
	var k float64
	for _, opp := range []string{"a", "b", "c", "d", "e"} {
		k = s.Record("hot", opp)
	}
	assert.InDelta(t, DefaultK*1.5, k, 1e-9)
}

func TestStreaks_Snapshot(t *testing.T) {
	s := NewStreaks(20, 0.5)
	s.Record("a", "b")
	s.Record("a", "c")

	assert.Equal(t, map[string]int{"a": 2}, s.Snapshot())
	assert.InDelta(t, 40.0, s.K(2), 1e-9)
}
