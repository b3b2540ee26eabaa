package matching

import (
	"context"

	"github.com/Ramsey-B/clover/pkg/dataset"
)

// Diagnostics reports how well a run matched both sides. Percentages are
// over the output row counts, which can exceed the input counts when a
// merge duplicates rows.
type Diagnostics struct {
	RowsA int `json:"rows_a"`
	RowsB int `json:"rows_b"`

	UniqueExactKeysA int `json:"unique_exact_keys_a"`
	UniqueExactKeysB int `json:"unique_exact_keys_b"`
	UniqueFuzzyKeysA int `json:"unique_fuzzy_keys_a"`
	UniqueFuzzyKeysB int `json:"unique_fuzzy_keys_b"`

	ExactMatchedA int `json:"exact_matched_a"`
	FuzzyMatchedA int `json:"fuzzy_matched_a"`

	MatchedA int `json:"matched_a"`
	MatchedB int `json:"matched_b"`

	PercentExactA   float64 `json:"percent_exact_a"`
	PercentFuzzyA   float64 `json:"percent_fuzzy_a"`
	PercentMatchedA float64 `json:"percent_matched_a"`
	PercentMatchedB float64 `json:"percent_matched_b"`

	MergeExact *dataset.JoinStats `json:"merge_exact,omitempty"`
	MergeFuzzy *dataset.JoinStats `json:"merge_fuzzy,omitempty"`
}

func (d *Diagnostics) finish(outA, outB *dataset.Dataset, matchedCol string) {
	d.MatchedA = countTrue(outA, matchedCol)
	d.MatchedB = countTrue(outB, matchedCol)

	d.PercentExactA = percent(d.ExactMatchedA, outA.Len())
	d.PercentFuzzyA = percent(d.FuzzyMatchedA, outA.Len())
	d.PercentMatchedA = percent(d.MatchedA, outA.Len())
	d.PercentMatchedB = percent(d.MatchedB, outB.Len())
}

func countTrue(d *dataset.Dataset, column string) int {
	if !d.HasColumn(column) {
		return 0
	}
	count := 0
	for i := 0; i < d.Len(); i++ {
		if flag, _ := d.Row(i).Value(column).(bool); flag {
			count++
		}
	}
	return count
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func (e *Engine) logDiagnostics(ctx context.Context, diag Diagnostics) {
	e.logger.WithContext(ctx).WithFields(map[string]any{
		"rows_a":              diag.RowsA,
		"rows_b":              diag.RowsB,
		"unique_exact_keys_a": diag.UniqueExactKeysA,
		"unique_exact_keys_b": diag.UniqueExactKeysB,
		"unique_fuzzy_keys_a": diag.UniqueFuzzyKeysA,
		"unique_fuzzy_keys_b": diag.UniqueFuzzyKeysB,
		"exact_matched_a":     diag.ExactMatchedA,
		"fuzzy_matched_a":     diag.FuzzyMatchedA,
		"matched_a":           diag.MatchedA,
		"matched_b":           diag.MatchedB,
		"percent_exact_a":     diag.PercentExactA,
		"percent_fuzzy_a":     diag.PercentFuzzyA,
		"percent_matched_a":   diag.PercentMatchedA,
		"percent_matched_b":   diag.PercentMatchedB,
	}).Info("Match run complete")
}
