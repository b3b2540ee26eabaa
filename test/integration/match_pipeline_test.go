package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/dataset"
	"github.com/Ramsey-B/clover/pkg/fuzzy"
	"github.com/Ramsey-B/clover/pkg/matchcache"
	"github.com/Ramsey-B/clover/pkg/matching"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func paidDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	d := dataset.New("url", "platform", "spend")
	rows := [][]any{
		{"https://facebook.com/ads/1?utm_source=boost", "facebook", 120.5},
		{"https://facebook.com/ads/2", "facebook", 80.0},
		{"https://www.tiktok.com/@brand/video/777", "tiktok", 40.0},
		{"https://facebook.com/ads/unpublished", "facebook", 5.0},
	}
	for _, row := range rows {
		require.NoError(t, d.AppendRow(row...))
	}
	return d
}

func organicDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	d := dataset.New("url", "platform", "impressions")
	rows := [][]any{
		{"https://facebook.com/ads/1", "facebook", 10000},
		{"https://facebook.com/ads/2?fbclid=xyz", "facebook", 5500},
		{"https://www.tiktok.com/@brand/video/778", "tiktok", 900},
	}
	for _, row := range rows {
		require.NoError(t, d.AppendRow(row...))
	}
	return d
}

func TestMatchPipeline_EndToEnd(t *testing.T) {
	logger := testLogger()
	store := matchcache.NewFileStore(t.TempDir(), logger)
	engine := matching.NewEngine(logger, fuzzy.NewMatcher(store, logger))

	cfg := matching.DefaultConfig()
	cfg.ExactColumnA = "url"
	cfg.ExactColumnB = "url"
	cfg.Namespace = "facebook_paid_organic"
	cfg.Merge = true

	result, err := engine.Run(context.Background(), paidDataset(t), organicDataset(t), cfg)
	require.NoError(t, err)

	diag := result.Diagnostics
	assert.Equal(t, 4, diag.RowsA)
	assert.Equal(t, 3, diag.RowsB)

	// Ads 1 and 2 match exactly once query strings are stripped; the tiktok
	// video ids differ by one character and bridge through the fuzzy tier.
	assert.Equal(t, 2, diag.ExactMatchedA)
	assert.Equal(t, 1, diag.FuzzyMatchedA)
	assert.Equal(t, 3, diag.MatchedA)
	assert.InDelta(t, 75.0, diag.PercentMatchedA, 0.001)

	// The merge carried organic metrics onto the matched paid rows
	require.True(t, result.A.HasColumn("impressions"))
	matchedWithMetrics := 0
	for i := 0; i < result.A.Len(); i++ {
		matched, err := result.A.Value(i, "matched")
		require.NoError(t, err)
		if matched == true {
			v, err := result.A.Value(i, "impressions")
			require.NoError(t, err)
			if v != nil {
				matchedWithMetrics++
			}
		}
	}
	assert.Equal(t, 3, matchedWithMetrics)
}

func TestMatchPipeline_CachePersistsAcrossRuns(t *testing.T) {
	logger := testLogger()
	dir := t.TempDir()
	ctx := context.Background()

	cfg := matching.DefaultConfig()
	cfg.ExactColumnA = "url"
	cfg.ExactColumnB = "url"
	cfg.Namespace = "tenant_cache_reuse"

	// First run scores the fuzzy leftovers and persists the mapping
	firstStore := matchcache.NewFileStore(dir, logger)
	firstEngine := matching.NewEngine(logger, fuzzy.NewMatcher(firstStore, logger))
	first, err := firstEngine.Run(ctx, paidDataset(t), organicDataset(t), cfg)
	require.NoError(t, err)

	// Second run with a scorer counter over the same cache directory must
	// resolve everything from cache without scoring a single pair.
	var calls int
	var mu sync.Mutex
	countingScorer := func(a, b string) int {
		mu.Lock()
		calls++
		mu.Unlock()
		return fuzzy.LevenshteinRatio(a, b)
	}

	secondStore := matchcache.NewFileStore(dir, logger)
	secondMatcher := fuzzy.NewMatcherWithConfig(fuzzy.Config{
		Scorer:         countingScorer,
		SaveRetryDelay: time.Millisecond,
	}, secondStore, logger)
	secondEngine := matching.NewEngine(logger, secondMatcher)

	second, err := secondEngine.Run(ctx, paidDataset(t), organicDataset(t), cfg)
	require.NoError(t, err)

	assert.Equal(t, 0, calls, "second run must resolve entirely from cache")
	assert.Equal(t, first.Diagnostics.MatchedA, second.Diagnostics.MatchedA)
	assert.Equal(t, first.Diagnostics.FuzzyMatchedA, second.Diagnostics.FuzzyMatchedA)
}

func TestMatchPipeline_ShortcodeReconciliation(t *testing.T) {
	logger := testLogger()
	engine := matching.NewEngine(logger, fuzzy.NewMatcher(matchcache.NewMemoryStore(), logger))

	paid := dataset.New("shortcode", "platform", "spend")
	require.NoError(t, paid.AppendRow("Cxy42Zk", "instagram", 75.0))
	require.NoError(t, paid.AppendRow("Cnope11", "instagram", 10.0))

	organic := dataset.New("permalink", "platform", "likes")
	require.NoError(t, organic.AppendRow("https://www.instagram.com/p/Cxy42Zk/", "instagram", 340))

	cfg := matching.DefaultConfig()
	cfg.ExactColumnA = "shortcode"
	cfg.ExactColumnB = "permalink"
	cfg.MatchShortcodes = true
	cfg.Threshold = 100

	result, err := engine.Run(context.Background(), paid, organic, cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Diagnostics.ExactMatchedA)
	assert.Equal(t, 1, result.Diagnostics.MatchedA)
}

func TestMatchPipeline_ConfigRejectedBeforeAnnotation(t *testing.T) {
	logger := testLogger()
	engine := matching.NewEngine(logger, fuzzy.NewMatcher(matchcache.NewMemoryStore(), logger))

	a := dataset.New("url", "platform")
	require.NoError(t, a.AppendRow("https://x.com/a", "fb"))
	b := dataset.New("url", "platform")

	cfg := matching.DefaultConfig()
	cfg.ExactColumnA = "url"
	cfg.ExactColumnB = "missing_column"

	_, err := engine.Run(context.Background(), a, b, cfg)
	require.Error(t, err)

	// Fail-fast means the caller's dataset was never annotated
	assert.Equal(t, []string{"url", "platform"}, a.Columns())
}
