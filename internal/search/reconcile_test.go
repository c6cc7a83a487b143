package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidatesWithScores(scores ...float64) []*Candidate {
	out := make([]*Candidate, len(scores))
	for i, s := range scores {
		out[i] = &Candidate{DocKey: string(rune('a' + i)), Score: s, Rank: i + 1}
	}
	return out
}

func TestReconcile_MapsOntoUnitInterval(t *testing.T) {
	// Lexical-style unbounded scores.
	norm := Reconcile(candidatesWithScores(80, 40, 0))

	require.Len(t, norm, 3)
	assert.Equal(t, 1.0, norm[0])
	assert.Equal(t, 0.5, norm[1])
	assert.Equal(t, 0.0, norm[2])
}

func TestReconcile_FloorAndCeilingPolicy(t *testing.T) {
	// Scores inside [0,1] keep their absolute position: the floor stays
	// 0 and the ceiling stays 1 rather than stretching the observed range.
	norm := Reconcile(candidatesWithScores(0.8, 0.4))

	assert.Equal(t, 0.8, norm[0])
	assert.Equal(t, 0.4, norm[1])
}

func TestReconcile_NegativeScoresClampAtZero(t *testing.T) {
	norm := Reconcile(candidatesWithScores(3, -1))

	assert.Equal(t, 1.0, norm[0])
	assert.Equal(t, 0.0, norm[1])
}

func TestReconcile_AllEqualScoresYieldOne(t *testing.T) {
	// Equal scores must come out exactly 1.0, never NaN.
	norm := Reconcile(candidatesWithScores(7.2, 7.2, 7.2))

	for _, n := range norm {
		assert.Equal(t, 1.0, n)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	once := Reconcile(candidatesWithScores(80, 40, 10))

	again := make([]*Candidate, len(once))
	for i, s := range once {
		again[i] = &Candidate{DocKey: string(rune('a' + i)), Score: s}
	}
	twice := Reconcile(again)

	assert.Equal(t, once, twice)
}

func TestReconcile_Empty(t *testing.T) {
	assert.Nil(t, Reconcile(nil))
}
