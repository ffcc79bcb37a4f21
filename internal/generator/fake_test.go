package generator

import (
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/chatseed/internal/storage"
	"github.com/xaenox/chatseed/internal/taxonomy"
	"go.uber.org/zap"
)

func TestBothifyPattern(t *testing.T) {
	f := newFaker(taxonomy.LocaleEN, rand.New(rand.NewSource(1)))

	for i := 0; i < 100; i++ {
		v := f.bothify("?####")
		require.Len(t, v, 5)
		assert.GreaterOrEqual(t, v[0], byte('A'))
		assert.LessOrEqual(t, v[0], byte('Z'))
		for _, c := range v[1:] {
			assert.GreaterOrEqual(t, byte(c), byte('0'))
			assert.LessOrEqual(t, byte(c), byte('9'))
		}
	}

	assert.Equal(t, "-", f.bothify("-"))
}

func TestUniqueSetClaim(t *testing.T) {
	s := newUniqueSet()
	assert.True(t, s.claim("alpha"))
	assert.False(t, s.claim("alpha"))
	assert.True(t, s.claim("beta"))
	assert.Equal(t, 2, s.len())

	s.seed([]string{"gamma", "delta"})
	assert.False(t, s.claim("gamma"))
	assert.Equal(t, 4, s.len())
}

func TestCoverageSamplerCoversBeforeRepeating(t *testing.T) {
	sampler := newCoverageSampler(5, rand.New(rand.NewSource(7)))

	seen := make(map[int]bool)
	for i := 0; i < 5; i++ {
		idx := sampler.next()
		assert.False(t, seen[idx], "index %d repeated during coverage pass", idx)
		seen[idx] = true
	}
	assert.Len(t, seen, 5)

	// After coverage the sampler keeps serving valid indexes.
	for i := 0; i < 20; i++ {
		idx := sampler.next()
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 5)
	}
}

func TestUniqueValueSuffixProgression(t *testing.T) {
	g := New(storage.NewMemoryStorage(), Config{Seed: 1, RetryCeiling: 20}, zap.NewNop())

	gen := func() string { return "sato.tanaka" }
	first, err := g.uniqueValue(g.usernames, gen)
	require.NoError(t, err)
	assert.Equal(t, "sato.tanaka", first)

	// Collisions walk through the counter suffixes first.
	for i := 1; i <= suffixAttempts; i++ {
		v, err := g.uniqueValue(g.usernames, gen)
		require.NoError(t, err)
		assert.Equal(t, "sato.tanaka_"+strconv.Itoa(i), v)
	}

	// Then random suffixes take over, still unique.
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		v, err := g.uniqueValue(g.usernames, gen)
		require.NoError(t, err)
		assert.False(t, seen[v])
		seen[v] = true
	}
}

func TestUniqueValueRetryCeiling(t *testing.T) {
	g := New(storage.NewMemoryStorage(), Config{Seed: 1, RetryCeiling: 3}, zap.NewNop())

	// Exhaust the pattern space for a single-digit pattern base.
	g.usernames.seed([]string{"x"})
	for i := 1; i <= suffixAttempts; i++ {
		g.usernames.seed([]string{"x_" + strconv.Itoa(i)})
	}
	for n := 1000; n < 10000; n++ {
		g.usernames.seed([]string{"x_" + strconv.Itoa(n)})
	}

	_, err := g.uniqueValue(g.usernames, func() string { return "x" })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no unique value")
}

func TestDateTimeBetweenStaysInRange(t *testing.T) {
	f := newFaker(taxonomy.LocaleJA, rand.New(rand.NewSource(3)))

	lo := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	hi := lo.AddDate(0, 0, 7)
	for i := 0; i < 50; i++ {
		v := f.dateTimeBetween(lo, hi)
		assert.False(t, v.Before(lo))
		assert.True(t, v.Before(hi))
	}

	// Degenerate range collapses to the start.
	assert.Equal(t, lo, f.dateTimeBetween(lo, lo))
}
