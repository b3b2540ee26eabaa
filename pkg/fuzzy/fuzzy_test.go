package fuzzy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clovererrors "github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/matchcache"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// countingScorer wraps LevenshteinRatio and counts comparisons so tests can
// prove the cache short-circuits scoring.
type countingScorer struct {
	mu    sync.Mutex
	calls int
}

func (c *countingScorer) score(a, b string) int {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return LevenshteinRatio(a, b)
}

func newTestMatcher(store matchcache.Store, scorer Scorer) *Matcher {
	return NewMatcherWithConfig(Config{
		Scorer:         scorer,
		SaveRetryDelay: time.Millisecond,
	}, store, testLogger())
}

func TestLevenshteinRatio(t *testing.T) {
	assert.Equal(t, 100, LevenshteinRatio("same", "same"))
	assert.Equal(t, 0, LevenshteinRatio("abc", "xyz"))

	score := LevenshteinRatio("newproductlaunch", "newproductlaunchday")
	assert.Greater(t, score, 80)
	assert.Less(t, score, 100)
}

func TestBestMatchAll_Validation(t *testing.T) {
	m := NewMatcher(matchcache.NewMemoryStore(), testLogger())
	ctx := context.Background()

	_, err := m.BestMatchAll(ctx, []string{"a"}, []string{"b"}, -1, matchcache.NoStore)
	require.Error(t, err)
	assert.True(t, clovererrors.IsMatchConfigError(err))

	_, err = m.BestMatchAll(ctx, []string{"a"}, []string{"b"}, 101, matchcache.NoStore)
	require.Error(t, err)

	_, err = m.BestMatchAll(ctx, []string{"a"}, []string{"b"}, 80, "")
	require.Error(t, err)
	assert.True(t, clovererrors.IsMatchConfigError(err))
}

func TestBestMatchAll_EmptyStringResolvesToNoMatch(t *testing.T) {
	m := NewMatcher(matchcache.NewMemoryStore(), testLogger())

	resolved, err := m.BestMatchAll(context.Background(), []string{""}, []string{"anything"}, 80, matchcache.NoStore)
	require.NoError(t, err)
	assert.Equal(t, NoMatch, resolved[""])
}

func TestBestMatchAll_VerbatimShortCircuit(t *testing.T) {
	scorer := &countingScorer{}
	m := newTestMatcher(matchcache.NewMemoryStore(), scorer.score)

	resolved, err := m.BestMatchAll(context.Background(), []string{"exact"}, []string{"exact", "other"}, 80, matchcache.NoStore)
	require.NoError(t, err)

	assert.Equal(t, "exact", resolved["exact"])
	assert.Equal(t, 0, scorer.calls, "verbatim matches must not be scored")
}

func TestBestMatchAll_CacheTransparency(t *testing.T) {
	store := matchcache.NewMemoryStore()
	ctx := context.Background()

	scorer1 := &countingScorer{}
	m1 := newTestMatcher(store, scorer1.score)
	first, err := m1.BestMatchAll(ctx, []string{"newproduct"}, []string{"newproductlaunch", "otherthing"}, 50, "ns")
	require.NoError(t, err)
	assert.Equal(t, 2, scorer1.calls)

	// Second run over the same namespace resolves from cache, zero scoring
	scorer2 := &countingScorer{}
	m2 := newTestMatcher(store, scorer2.score)
	second, err := m2.BestMatchAll(ctx, []string{"newproduct"}, []string{"newproductlaunch", "otherthing"}, 50, "ns")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 0, scorer2.calls, "cached results must not be re-scored")
}

func TestBestMatchAll_NoStoreSkipsPersistence(t *testing.T) {
	store := matchcache.NewMemoryStore()
	m := NewMatcher(store, testLogger())

	_, err := m.BestMatchAll(context.Background(), []string{"something"}, []string{"somethingelse"}, 10, matchcache.NoStore)
	require.NoError(t, err)

	loaded, err := store.Load(context.Background(), matchcache.NoStore)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestBestMatchAll_ThresholdClampsToNone(t *testing.T) {
	m := NewMatcher(matchcache.NewMemoryStore(), testLogger())
	ctx := context.Background()

	// "abcdef" vs "xyzxyz" scores 0; against a high threshold everything
	// clamps and the string resolves to the sentinel.
	resolved, err := m.BestMatchAll(ctx, []string{"abcdef"}, []string{"xyzxyz"}, 99, matchcache.NoStore)
	require.NoError(t, err)
	assert.Equal(t, NoMatch, resolved["abcdef"])

	// The same pair passes with threshold zero only if it scores above zero,
	// which it does not; still None.
	resolved, err = m.BestMatchAll(ctx, []string{"abcdef"}, []string{"xyzxyz"}, 0, matchcache.NoStore)
	require.NoError(t, err)
	assert.Equal(t, NoMatch, resolved["abcdef"])
}

func TestBestMatchAll_ThresholdMonotonicity(t *testing.T) {
	ctx := context.Background()
	source := []string{"newproductlaunch"}
	target := []string{"newproductlaunchday"}

	lowMatches := 0
	highMatches := 0

	m := NewMatcher(matchcache.NewMemoryStore(), testLogger())

	low, err := m.BestMatchAll(ctx, source, target, 50, matchcache.NoStore)
	require.NoError(t, err)
	if low["newproductlaunch"] != NoMatch {
		lowMatches++
	}

	high, err := m.BestMatchAll(ctx, source, target, 100, matchcache.NoStore)
	require.NoError(t, err)
	if high["newproductlaunch"] != NoMatch {
		highMatches++
	}

	assert.GreaterOrEqual(t, lowMatches, highMatches, "raising the threshold must never produce more matches")
	assert.Equal(t, "newproductlaunchday", low["newproductlaunch"])
	assert.Equal(t, NoMatch, high["newproductlaunch"])
}

func TestBestMatchAll_FirstMaxWins(t *testing.T) {
	// A scorer that ties two targets; the first in target order must win.
	scorer := func(a, b string) int { return 90 }
	m := newTestMatcher(matchcache.NewMemoryStore(), scorer)

	resolved, err := m.BestMatchAll(context.Background(), []string{"source"}, []string{"first", "second"}, 80, matchcache.NoStore)
	require.NoError(t, err)
	assert.Equal(t, "first", resolved["source"])
}

func TestBestMatchAll_EverySourceResolved(t *testing.T) {
	m := NewMatcher(matchcache.NewMemoryStore(), testLogger())

	source := []string{"", "exactone", "fuzzyish", "totallyunrelated", "fuzzyish"}
	target := []string{"exactone", "fuzzyissh"}

	resolved, err := m.BestMatchAll(context.Background(), source, target, 60, matchcache.NoStore)
	require.NoError(t, err)

	// Four distinct sources, each with an entry
	assert.Len(t, resolved, 4)
	for _, s := range source {
		_, ok := resolved[s]
		assert.True(t, ok, "source %q must be resolved", s)
	}
}

// failingStore fails saves a set number of times, then succeeds.
type failingStore struct {
	mu        sync.Mutex
	saveFails int
	saves     int
	saved     map[string]string
}

func (f *failingStore) Load(ctx context.Context, namespace string) (map[string]string, error) {
	return map[string]string{}, nil
}

func (f *failingStore) Save(ctx context.Context, namespace string, mapping map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saves <= f.saveFails {
		return errors.New("disk full")
	}
	f.saved = mapping
	return nil
}

func TestBestMatchAll_SaveRetriesOnce(t *testing.T) {
	store := &failingStore{saveFails: 1}
	m := newTestMatcher(store, nil)

	resolved, err := m.BestMatchAll(context.Background(), []string{"somestring"}, []string{"somestrings"}, 50, "ns")
	require.NoError(t, err)
	assert.Equal(t, "somestrings", resolved["somestring"])

	assert.Equal(t, 2, store.saves)
	assert.Contains(t, store.saved, "somestring")
}

func TestBestMatchAll_SaveFailureIsNonFatal(t *testing.T) {
	store := &failingStore{saveFails: 2}
	m := newTestMatcher(store, nil)

	resolved, err := m.BestMatchAll(context.Background(), []string{"somestring"}, []string{"somestrings"}, 50, "ns")
	require.NoError(t, err)
	assert.Equal(t, "somestrings", resolved["somestring"])
	assert.Equal(t, 2, store.saves)
}

// erroringLoadStore fails loads; runs must degrade to an empty cache.
type erroringLoadStore struct{}

func (e *erroringLoadStore) Load(ctx context.Context, namespace string) (map[string]string, error) {
	return nil, errors.New("connection refused")
}

func (e *erroringLoadStore) Save(ctx context.Context, namespace string, mapping map[string]string) error {
	return nil
}

func TestBestMatchAll_LoadFailureDegradesToEmpty(t *testing.T) {
	m := NewMatcher(&erroringLoadStore{}, testLogger())

	resolved, err := m.BestMatchAll(context.Background(), []string{"somestring"}, []string{"somestrings"}, 50, "ns")
	require.NoError(t, err)
	assert.Equal(t, "somestrings", resolved["somestring"])
}
