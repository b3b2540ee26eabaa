package matching

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/dataset"
	clovererrors "github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/fuzzy"
	"github.com/Ramsey-B/clover/pkg/matchcache"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newTestEngine() *Engine {
	logger := testLogger()
	matcher := fuzzy.NewMatcher(matchcache.NewMemoryStore(), logger)
	return NewEngine(logger, matcher)
}

func buildDataset(t *testing.T, cols []string, rows ...[]any) *dataset.Dataset {
	t.Helper()
	d := dataset.New(cols...)
	for _, row := range rows {
		require.NoError(t, d.AppendRow(row...))
	}
	return d
}

func boolAt(t *testing.T, d *dataset.Dataset, row int, col string) bool {
	t.Helper()
	v, err := d.Value(row, col)
	require.NoError(t, err)
	b, _ := v.(bool)
	return b
}

func urlConfig() Config {
	cfg := DefaultConfig()
	cfg.ExactColumnA = "url"
	cfg.ExactColumnB = "url"
	return cfg
}

func captionConfig(threshold int) Config {
	cfg := DefaultConfig()
	cfg.ExactColumnA = "caption"
	cfg.ExactColumnB = "caption"
	cfg.ExactKeyIsURL = false
	cfg.FuzzyKeyIsURL = false
	cfg.Threshold = threshold
	return cfg
}

func TestRun_ExactMatchOnNormalizedURL(t *testing.T) {
	// Query strings differ but the normalized urls agree
	a := buildDataset(t, []string{"url", "platform"},
		[]any{"http://x.com/a?utm=1", "FB"},
	)
	b := buildDataset(t, []string{"url", "platform"},
		[]any{"http://x.com/a", "FB"},
	)

	result, err := newTestEngine().Run(context.Background(), a, b, urlConfig())
	require.NoError(t, err)

	require.Equal(t, 1, result.A.Len())
	assert.True(t, boolAt(t, result.A, 0, "matched_exact_a?"))
	assert.True(t, boolAt(t, result.A, 0, "matched"))
	assert.Equal(t, 1, result.Diagnostics.ExactMatchedA)
	assert.Equal(t, 0, result.Diagnostics.FuzzyMatchedA)
}

func TestRun_PunctuationOnlyDifferenceIsExact(t *testing.T) {
	a := buildDataset(t, []string{"caption", "platform"},
		[]any{"Great new product!!", "IG"},
	)
	b := buildDataset(t, []string{"caption", "platform"},
		[]any{"great new product", "IG"},
	)

	result, err := newTestEngine().Run(context.Background(), a, b, captionConfig(90))
	require.NoError(t, err)

	// Normalization already equalizes the captions, so the exact tier fires
	// and the fuzzy tier never sees the row.
	assert.True(t, boolAt(t, result.A, 0, "matched_exact_a?"))
	assert.False(t, boolAt(t, result.A, 0, "matched_fuzzy_a?"))
	assert.True(t, boolAt(t, result.A, 0, "matched"))
}

func TestRun_FuzzyMatch(t *testing.T) {
	a := buildDataset(t, []string{"caption", "platform"},
		[]any{"buy now limited offer", "IG"},
	)
	b := buildDataset(t, []string{"caption", "platform"},
		[]any{"buy now — limited offers", "IG"},
	)

	result, err := newTestEngine().Run(context.Background(), a, b, captionConfig(80))
	require.NoError(t, err)

	assert.False(t, boolAt(t, result.A, 0, "matched_exact_a?"))
	assert.True(t, boolAt(t, result.A, 0, "matched_fuzzy_a?"))
	assert.True(t, boolAt(t, result.A, 0, "matched"))
	assert.Equal(t, 1, result.Diagnostics.FuzzyMatchedA)
}

func TestRun_NoSimilarCaption(t *testing.T) {
	a := buildDataset(t, []string{"caption", "platform"},
		[]any{"totally unrelated text", "IG"},
	)
	b := buildDataset(t, []string{"caption", "platform"},
		[]any{"quarterly earnings report pdf", "IG"},
	)

	result, err := newTestEngine().Run(context.Background(), a, b, captionConfig(90))
	require.NoError(t, err)

	assert.False(t, boolAt(t, result.A, 0, "matched_exact_a?"))
	assert.False(t, boolAt(t, result.A, 0, "matched_fuzzy_a?"))
	assert.False(t, boolAt(t, result.A, 0, "matched"))
	assert.Equal(t, 0, result.Diagnostics.MatchedA)
}

func TestRun_EmptyB(t *testing.T) {
	a := buildDataset(t, []string{"url", "platform"},
		[]any{"http://x.com/a", "FB"},
		[]any{"http://x.com/b", "FB"},
	)
	b := buildDataset(t, []string{"url", "platform"})

	result, err := newTestEngine().Run(context.Background(), a, b, urlConfig())
	require.NoError(t, err)

	require.Equal(t, 2, result.A.Len())
	for i := 0; i < result.A.Len(); i++ {
		assert.False(t, boolAt(t, result.A, i, "matched"))
	}
	assert.Equal(t, 0, result.B.Len())
	assert.Equal(t, 0.0, result.Diagnostics.PercentMatchedA)
	assert.Equal(t, 0, result.Diagnostics.MatchedA)
}

func TestRun_MatchedIsExactOrFuzzy(t *testing.T) {
	a := buildDataset(t, []string{"caption", "platform"},
		[]any{"exact same caption", "IG"},
		[]any{"almost the same captionn", "IG"},
		[]any{"nothing like the others", "IG"},
	)
	b := buildDataset(t, []string{"caption", "platform"},
		[]any{"exact same caption", "IG"},
		[]any{"almost the same caption", "IG"},
	)

	result, err := newTestEngine().Run(context.Background(), a, b, captionConfig(80))
	require.NoError(t, err)

	for i := 0; i < result.A.Len(); i++ {
		exact := boolAt(t, result.A, i, "matched_exact_a?")
		fz := boolAt(t, result.A, i, "matched_fuzzy_a?")
		matched := boolAt(t, result.A, i, "matched")
		assert.Equal(t, exact || fz, matched, "row %d", i)
	}

	assert.Equal(t, result.Diagnostics.ExactMatchedA+result.Diagnostics.FuzzyMatchedA, result.Diagnostics.MatchedA)
}

func TestRun_GroupColumnSeparatesPlatforms(t *testing.T) {
	a := buildDataset(t, []string{"url", "platform"},
		[]any{"http://x.com/a", "FB"},
	)
	b := buildDataset(t, []string{"url", "platform"},
		[]any{"http://x.com/a", "TikTok"},
	)

	cfg := urlConfig()
	cfg.Threshold = 100 // keep the fuzzy tier from bridging the platforms

	result, err := newTestEngine().Run(context.Background(), a, b, cfg)
	require.NoError(t, err)

	assert.False(t, boolAt(t, result.A, 0, "matched_exact_a?"))
	assert.False(t, boolAt(t, result.A, 0, "matched"))
}

func TestRun_Merge(t *testing.T) {
	a := buildDataset(t, []string{"url", "platform", "spend"},
		[]any{"http://x.com/a", "FB", 12.5},
		[]any{"http://x.com/zzz", "FB", 1.0},
	)
	b := buildDataset(t, []string{"url", "platform", "impressions"},
		[]any{"http://x.com/a?src=share", "FB", 1000},
	)

	cfg := urlConfig()
	cfg.Merge = true
	cfg.Threshold = 100

	result, err := newTestEngine().Run(context.Background(), a, b, cfg)
	require.NoError(t, err)

	require.True(t, result.A.HasColumn("impressions"))
	require.NotNil(t, result.Diagnostics.MergeExact)
	assert.Equal(t, 1, result.Diagnostics.MergeExact.Matches)

	// Find the matched row and confirm it carries B's impressions
	found := false
	for i := 0; i < result.A.Len(); i++ {
		if boolAt(t, result.A, i, "matched") {
			v, err := result.A.Value(i, "impressions")
			require.NoError(t, err)
			assert.Equal(t, 1000, v)
			found = true
		}
	}
	assert.True(t, found)
}

func TestRun_Shortcodes(t *testing.T) {
	a := buildDataset(t, []string{"shortcode", "platform"},
		[]any{"Cabc123", "IG"},
	)
	b := buildDataset(t, []string{"permalink", "platform"},
		[]any{"https://www.instagram.com/p/Cabc123/", "IG"},
	)

	cfg := DefaultConfig()
	cfg.ExactColumnA = "shortcode"
	cfg.ExactColumnB = "permalink"
	cfg.MatchShortcodes = true
	cfg.Threshold = 100

	result, err := newTestEngine().Run(context.Background(), a, b, cfg)
	require.NoError(t, err)

	assert.True(t, boolAt(t, result.A, 0, "matched_exact_a?"))
	assert.True(t, boolAt(t, result.A, 0, "matched"))
}

func TestRun_InputsNotMutated(t *testing.T) {
	a := buildDataset(t, []string{"url", "platform"},
		[]any{"http://x.com/a", "FB"},
	)
	b := buildDataset(t, []string{"url", "platform"},
		[]any{"http://x.com/a", "FB"},
	)

	_, err := newTestEngine().Run(context.Background(), a, b, urlConfig())
	require.NoError(t, err)

	assert.Equal(t, []string{"url", "platform"}, a.Columns())
	assert.Equal(t, []string{"url", "platform"}, b.Columns())
}

func TestRun_NullKeysOnlyMatchNull(t *testing.T) {
	a := buildDataset(t, []string{"url", "platform"},
		[]any{nil, "FB"},
	)
	b := buildDataset(t, []string{"url", "platform"},
		[]any{nil, "FB"},
		[]any{"http://x.com/a", "FB"},
	)

	cfg := urlConfig()
	cfg.Threshold = 100

	result, err := newTestEngine().Run(context.Background(), a, b, cfg)
	require.NoError(t, err)

	// nil url matches the nil url row on B through the exact tier
	assert.True(t, boolAt(t, result.A, 0, "matched_exact_a?"))
}

func TestRun_ValidationErrors(t *testing.T) {
	d := buildDataset(t, []string{"url", "platform"})

	tests := []struct {
		name string
		a    *dataset.Dataset
		b    *dataset.Dataset
		cfg  func() Config
	}{
		{
			name: "missing exact column config",
			a:    d,
			b:    d,
			cfg: func() Config {
				cfg := DefaultConfig()
				return cfg
			},
		},
		{
			name: "threshold out of range",
			a:    d,
			b:    d,
			cfg: func() Config {
				cfg := urlConfig()
				cfg.Threshold = 101
				return cfg
			},
		},
		{
			name: "column missing from dataset",
			a:    d,
			b:    buildDataset(t, []string{"link", "platform"}),
			cfg:  urlConfig,
		},
		{
			name: "group column missing",
			a:    buildDataset(t, []string{"url"}),
			b:    buildDataset(t, []string{"url"}),
			cfg:  urlConfig,
		},
		{
			name: "reserved working column present",
			a:    buildDataset(t, []string{"url", "platform", MatchKeyColumn}),
			b:    d,
			cfg:  urlConfig,
		},
	}

	engine := newTestEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Run(context.Background(), tt.a, tt.b, tt.cfg())
			require.Error(t, err)
			assert.True(t, clovererrors.IsMatchConfigError(err))
		})
	}
}

func TestRun_Diagnostics(t *testing.T) {
	a := buildDataset(t, []string{"url", "platform"},
		[]any{"http://x.com/a", "FB"},
		[]any{"http://x.com/b", "FB"},
		[]any{"http://x.com/c", "FB"},
		[]any{"http://x.com/d", "FB"},
	)
	b := buildDataset(t, []string{"url", "platform"},
		[]any{"http://x.com/a", "FB"},
		[]any{"http://x.com/b", "FB"},
	)

	cfg := urlConfig()
	cfg.Threshold = 100

	result, err := newTestEngine().Run(context.Background(), a, b, cfg)
	require.NoError(t, err)

	diag := result.Diagnostics
	assert.Equal(t, 4, diag.RowsA)
	assert.Equal(t, 2, diag.RowsB)
	assert.Equal(t, 2, diag.ExactMatchedA)
	assert.Equal(t, 2, diag.MatchedA)
	assert.Equal(t, 2, diag.MatchedB)
	assert.InDelta(t, 50.0, diag.PercentMatchedA, 0.001)
	assert.InDelta(t, 100.0, diag.PercentMatchedB, 0.001)
}
