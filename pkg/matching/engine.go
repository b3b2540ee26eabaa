// Package matching runs the two-tier match pipeline: an exact pass on
// normalized composite keys, then a fuzzy pass over whatever the exact
// pass left behind.
package matching

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/compositekey"
	"github.com/Ramsey-B/clover/pkg/dataset"
	clovererrors "github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/fuzzy"
	"github.com/Ramsey-B/clover/pkg/matchcache"
	"github.com/Ramsey-B/clover/pkg/normalize"
	"github.com/Ramsey-B/clover/pkg/shortcode"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// MatchKeyColumn is the working column holding the normalized match key.
const MatchKeyColumn = "match_string"

const (
	exactFlagBase = "matched_exact"
	fuzzyFlagBase = "matched_fuzzy"
)

// Config describes one match run. Use DefaultConfig as the starting point;
// zero values for the key columns are rejected, not defaulted.
type Config struct {
	// ExactColumnA/B hold the values normalized into the exact match key.
	ExactColumnA string `json:"exact_column_a" validate:"required"`
	ExactColumnB string `json:"exact_column_b" validate:"required"`

	// FuzzyColumnA/B feed the fuzzy pass. Empty means reuse the exact columns.
	FuzzyColumnA string `json:"fuzzy_column_a,omitempty"`
	FuzzyColumnB string `json:"fuzzy_column_b,omitempty"`

	// GroupColumns must agree alongside the match key (e.g. platform).
	GroupColumns []string `json:"group_columns,omitempty"`

	// Threshold is the 0-100 fuzzy score floor. Scores below it clamp to zero.
	Threshold int `json:"threshold"`

	// ExactKeyIsURL selects URL normalization for the exact key.
	ExactKeyIsURL bool `json:"exact_key_is_url"`
	// FuzzyKeyIsURL selects URL normalization for the fuzzy key.
	FuzzyKeyIsURL bool `json:"fuzzy_key_is_url"`

	// MatchedColumn names the final boolean column on both outputs.
	MatchedColumn string `json:"matched_column,omitempty"`

	// Merge left-joins B's columns onto matched A rows.
	Merge bool `json:"merge"`

	// Namespace scopes the fuzzy cache. matchcache.NoStore disables it.
	Namespace string `json:"namespace,omitempty"`

	// ExcludedValues never participate in a match. Nil means the defaults.
	ExcludedValues []string `json:"excluded_values,omitempty"`

	// MatchShortcodes rewrites B's URLs to A's shortcodes before matching.
	MatchShortcodes bool `json:"match_shortcodes"`
}

// DefaultConfig returns the standard run configuration.
func DefaultConfig() Config {
	return Config{
		GroupColumns:  []string{"platform"},
		Threshold:     80,
		ExactKeyIsURL: true,
		FuzzyKeyIsURL: true,
		MatchedColumn: "matched",
		Namespace:     matchcache.NoStore,
	}
}

// Result holds annotated copies of both datasets plus run diagnostics.
// The caller's datasets are never mutated.
type Result struct {
	A           *dataset.Dataset
	B           *dataset.Dataset
	Diagnostics Diagnostics
}

// Engine orchestrates match runs.
type Engine struct {
	logger  ectologger.Logger
	matcher *fuzzy.Matcher
}

// NewEngine creates a match engine.
func NewEngine(logger ectologger.Logger, matcher *fuzzy.Matcher) *Engine {
	return &Engine{
		logger:  logger,
		matcher: matcher,
	}
}

// Run executes the full pipeline for one pair of datasets.
func (e *Engine) Run(ctx context.Context, a, b *dataset.Dataset, cfg Config) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.Run")
	defer span.End()

	cfg = withDefaults(cfg)
	if err := validate(a, b, cfg); err != nil {
		return nil, err
	}

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"namespace": cfg.Namespace,
		"rows_a":    a.Len(),
		"rows_b":    b.Len(),
		"threshold": cfg.Threshold,
	})
	log.Info("Starting match run")

	workA := a.Copy()
	workB := b.Copy()

	if cfg.MatchShortcodes {
		if err := rewriteShortcodes(workA, workB, cfg); err != nil {
			return nil, err
		}
	}

	// Exact pass on normalized keys
	if err := addMatchKey(workA, cfg.ExactColumnA, cfg.ExactKeyIsURL); err != nil {
		return nil, err
	}
	if err := addMatchKey(workB, cfg.ExactColumnB, cfg.ExactKeyIsURL); err != nil {
		return nil, err
	}

	keyCols := append([]string{MatchKeyColumn}, cfg.GroupColumns...)
	annA, annB, err := compositekey.AnnotateMembership(workA, workB, keyCols, keyCols, exactFlagBase, cfg.ExcludedValues)
	if err != nil {
		return nil, err
	}

	exactFlagA := exactFlagBase + "_a?"
	fuzzyFlagA := fuzzyFlagBase + "_a?"

	matchedExact, unmatched := annA.Partition(func(row dataset.Row) bool {
		flag, _ := row.Value(exactFlagA).(bool)
		return flag
	})
	log.WithFields(map[string]any{
		"exact_matched": matchedExact.Len(),
		"unmatched":     unmatched.Len(),
	}).Info("Exact pass complete")

	uniqueExactA, err := annA.UniqueStrings(MatchKeyColumn)
	if err != nil {
		return nil, err
	}
	uniqueExactB, err := annB.UniqueStrings(MatchKeyColumn)
	if err != nil {
		return nil, err
	}

	diag := Diagnostics{
		RowsA:            a.Len(),
		RowsB:            b.Len(),
		UniqueExactKeysA: len(uniqueExactA),
		UniqueExactKeysB: len(uniqueExactB),
		ExactMatchedA:    matchedExact.Len(),
	}

	var mergeExact *dataset.JoinStats
	if cfg.Merge {
		matchedExact, mergeExact, err = e.mergeMatched(ctx, matchedExact, annB, keyCols)
		if err != nil {
			return nil, err
		}
	}

	// Fuzzy pass over the leftovers
	fuzzyB := annB.Copy()
	if err := setMatchKey(unmatched, cfg.FuzzyColumnA, cfg.FuzzyKeyIsURL); err != nil {
		return nil, err
	}
	if err := setMatchKey(fuzzyB, cfg.FuzzyColumnB, cfg.FuzzyKeyIsURL); err != nil {
		return nil, err
	}

	source, err := unmatched.UniqueStrings(MatchKeyColumn)
	if err != nil {
		return nil, err
	}
	target, err := fuzzyB.UniqueStrings(MatchKeyColumn)
	if err != nil {
		return nil, err
	}

	diag.UniqueFuzzyKeysA = len(source)
	diag.UniqueFuzzyKeysB = len(target)

	mapping, err := e.matcher.BestMatchAll(ctx, source, target, cfg.Threshold, cfg.Namespace)
	if err != nil {
		return nil, err
	}

	// Replace each leftover key with its resolved target key. Null keys
	// resolve straight to the no-match sentinel.
	err = unmatched.SetColumn(MatchKeyColumn, func(row dataset.Row) any {
		v := row.Value(MatchKeyColumn)
		if v == nil {
			return fuzzy.NoMatch
		}
		if resolved, ok := mapping[dataset.Stringify(v)]; ok {
			return resolved
		}
		return fuzzy.NoMatch
	})
	if err != nil {
		return nil, err
	}

	annUnmatched, annFuzzyB, err := compositekey.AnnotateMembership(unmatched, fuzzyB, keyCols, keyCols, fuzzyFlagBase, cfg.ExcludedValues)
	if err != nil {
		return nil, err
	}

	matchedFuzzy, unmatchedFinal := annUnmatched.Partition(func(row dataset.Row) bool {
		flag, _ := row.Value(fuzzyFlagA).(bool)
		return flag
	})
	diag.FuzzyMatchedA = matchedFuzzy.Len()
	log.WithFields(map[string]any{
		"fuzzy_matched": matchedFuzzy.Len(),
		"unmatched":     unmatchedFinal.Len(),
	}).Info("Fuzzy pass complete")

	var mergeFuzzy *dataset.JoinStats
	if cfg.Merge {
		matchedFuzzy, mergeFuzzy, err = e.mergeMatched(ctx, matchedFuzzy, annFuzzyB, keyCols)
		if err != nil {
			return nil, err
		}
	}

	outA, err := recombine(matchedExact, matchedFuzzy, unmatchedFinal)
	if err != nil {
		return nil, err
	}
	if err := finalizeFlags(outA, cfg.MatchedColumn, exactFlagBase+"_a?", fuzzyFlagBase+"_a?"); err != nil {
		return nil, err
	}

	outB := annFuzzyB
	if err := finalizeFlags(outB, cfg.MatchedColumn, exactFlagBase+"_b?", fuzzyFlagBase+"_b?"); err != nil {
		return nil, err
	}

	diag.MergeExact = mergeExact
	diag.MergeFuzzy = mergeFuzzy
	diag.finish(outA, outB, cfg.MatchedColumn)
	e.logDiagnostics(ctx, diag)

	return &Result{A: outA, B: outB, Diagnostics: diag}, nil
}

func withDefaults(cfg Config) Config {
	if cfg.FuzzyColumnA == "" {
		cfg.FuzzyColumnA = cfg.ExactColumnA
	}
	if cfg.FuzzyColumnB == "" {
		cfg.FuzzyColumnB = cfg.ExactColumnB
	}
	if cfg.GroupColumns == nil {
		cfg.GroupColumns = []string{"platform"}
	}
	if cfg.MatchedColumn == "" {
		cfg.MatchedColumn = "matched"
	}
	if cfg.Namespace == "" {
		cfg.Namespace = matchcache.NoStore
	}
	return cfg
}

// validate fails fast before any annotation work happens.
func validate(a, b *dataset.Dataset, cfg Config) error {
	if cfg.ExactColumnA == "" || cfg.ExactColumnB == "" {
		return clovererrors.NewMatchConfigError("exact match columns are required").AddParameter("exact_column")
	}
	if cfg.Threshold < 0 || cfg.Threshold > 100 {
		return clovererrors.NewMatchConfigErrorf("threshold %d is outside 0-100", cfg.Threshold).AddParameter("threshold")
	}

	if err := requireColumns(a, "a", cfg.ExactColumnA, cfg.FuzzyColumnA); err != nil {
		return err
	}
	if err := requireColumns(b, "b", cfg.ExactColumnB, cfg.FuzzyColumnB); err != nil {
		return err
	}
	if err := requireColumns(a, "a", cfg.GroupColumns...); err != nil {
		return err
	}
	if err := requireColumns(b, "b", cfg.GroupColumns...); err != nil {
		return err
	}
	if a.HasColumn(MatchKeyColumn) || b.HasColumn(MatchKeyColumn) {
		return clovererrors.NewMatchConfigError("reserved column already present").AddColumn(MatchKeyColumn)
	}
	return nil
}

func requireColumns(d *dataset.Dataset, name string, cols ...string) error {
	for _, c := range cols {
		if !d.HasColumn(c) {
			return clovererrors.NewMatchConfigError("missing column").AddColumn(c).AddDataset(name)
		}
	}
	return nil
}

func addMatchKey(d *dataset.Dataset, sourceCol string, isURL bool) error {
	return d.AddColumn(MatchKeyColumn, func(row dataset.Row) any {
		return normalize.MatchKeyValue(row.Value(sourceCol), isURL)
	})
}

func setMatchKey(d *dataset.Dataset, sourceCol string, isURL bool) error {
	return d.SetColumn(MatchKeyColumn, func(row dataset.Row) any {
		return normalize.MatchKeyValue(row.Value(sourceCol), isURL)
	})
}

// rewriteShortcodes substitutes B's permalink values with A's shortcode
// values wherever the shortcode appears inside the permalink, so both
// sides share a key space before normalization.
func rewriteShortcodes(a, b *dataset.Dataset, cfg Config) error {
	codes, err := a.UniqueStrings(cfg.ExactColumnA)
	if err != nil {
		return err
	}
	urls, err := b.UniqueStrings(cfg.ExactColumnB)
	if err != nil {
		return err
	}

	urlToCode := shortcode.MapToURLs(codes, urls)
	return b.SetColumn(cfg.ExactColumnB, func(row dataset.Row) any {
		v := row.Value(cfg.ExactColumnB)
		if v == nil {
			return nil
		}
		if code, ok := urlToCode[dataset.Stringify(v)]; ok {
			return code
		}
		return v
	})
}

// mergeMatched left-joins B's columns onto the matched subset of A and
// reports the row accounting.
func (e *Engine) mergeMatched(ctx context.Context, matched, b *dataset.Dataset, keyCols []string) (*dataset.Dataset, *dataset.JoinStats, error) {
	merged, stats, err := matched.LeftJoin(b, keyCols, keyCols, dataset.JoinOptions{})
	if err != nil {
		return nil, nil, err
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"rows_before":   stats.RowsBefore,
		"rows_after":    stats.RowsAfter,
		"matches":       stats.Matches,
		"match_percent": stats.MatchPercent,
	}).Info("Merged matched rows")

	return merged, &stats, nil
}

// recombine unions the column sets of all parts (nil-filling the gaps the
// merges introduced) and concatenates them back into one dataset.
func recombine(parts ...*dataset.Dataset) (*dataset.Dataset, error) {
	var schema []string
	seen := make(map[string]bool)
	for _, p := range parts {
		for _, c := range p.Columns() {
			if !seen[c] {
				seen[c] = true
				schema = append(schema, c)
			}
		}
	}

	out := dataset.New(schema...)
	for _, p := range parts {
		aligned := p.Copy()
		for _, c := range schema {
			if !aligned.HasColumn(c) {
				if err := aligned.AddColumn(c, func(dataset.Row) any { return nil }); err != nil {
					return nil, err
				}
			}
		}
		var err error
		out, err = out.Concat(aligned)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// finalizeFlags derives the final matched column as exact OR fuzzy. Rows
// that skipped a pass carry nil flags, which read as false.
func finalizeFlags(d *dataset.Dataset, matchedCol, exactFlag, fuzzyFlag string) error {
	hasExact := d.HasColumn(exactFlag)
	hasFuzzy := d.HasColumn(fuzzyFlag)
	return d.AddColumn(matchedCol, func(row dataset.Row) any {
		exact := false
		if hasExact {
			exact, _ = row.Value(exactFlag).(bool)
		}
		fz := false
		if hasFuzzy {
			fz, _ = row.Value(fuzzyFlag).(bool)
		}
		return exact || fz
	})
}
