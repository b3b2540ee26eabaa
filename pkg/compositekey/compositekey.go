// Package compositekey flags rows whose composite key appears in another
// dataset. It is the exact-match tier of the matching pipeline.
package compositekey

import (
	"strings"

	"github.com/Ramsey-B/clover/pkg/dataset"
	clovererrors "github.com/Ramsey-B/clover/pkg/errors"
)

// DefaultExcludedValues never participate in a match even when both sides
// carry them. They are placeholder strings from upstream exports.
var DefaultExcludedValues = []string{"None", "none", "nan", ""}

const nilToken = "\x00nil"

// AnnotateMembership adds boolean membership columns to copies of both
// datasets: matchCol+"_a?" on a and matchCol+"_b?" on b. A row is a member
// when some row on the other side agrees on every key column, where
// agreement per column means equal values with the row's own value not
// excluded, or both values null. Column lists must have equal non-zero
// length and exist in their datasets.
func AnnotateMembership(a, b *dataset.Dataset, aCols, bCols []string, matchCol string, excluded []string) (*dataset.Dataset, *dataset.Dataset, error) {
	if len(aCols) == 0 || len(aCols) != len(bCols) {
		return nil, nil, clovererrors.NewMatchConfigErrorf("key column arity mismatch: %d vs %d", len(aCols), len(bCols)).AddParameter("columns")
	}
	for _, c := range aCols {
		if !a.HasColumn(c) {
			return nil, nil, clovererrors.NewMatchConfigError("unknown key column").AddColumn(c).AddDataset("a")
		}
	}
	for _, c := range bCols {
		if !b.HasColumn(c) {
			return nil, nil, clovererrors.NewMatchConfigError("unknown key column").AddColumn(c).AddDataset("b")
		}
	}

	if excluded == nil {
		excluded = DefaultExcludedValues
	}
	excludedSet := make(map[string]bool, len(excluded))
	for _, v := range excluded {
		excludedSet[v] = true
	}

	aKeys := keySet(a, aCols)
	bKeys := keySet(b, bCols)

	aOut := a.Copy()
	bOut := b.Copy()

	err := aOut.AddColumn(matchCol+"_a?", func(row dataset.Row) any {
		return isMember(row, aCols, bKeys, excludedSet)
	})
	if err != nil {
		return nil, nil, err
	}

	err = bOut.AddColumn(matchCol+"_b?", func(row dataset.Row) any {
		return isMember(row, bCols, aKeys, excludedSet)
	})
	if err != nil {
		return nil, nil, err
	}

	return aOut, bOut, nil
}

// keySet indexes every row's composite key. Null values get their own
// token so null only ever equals null.
func keySet(d *dataset.Dataset, cols []string) map[string]bool {
	keys := make(map[string]bool, d.Len())
	for i := 0; i < d.Len(); i++ {
		row := d.Row(i)
		parts := make([]string, len(cols))
		for j, c := range cols {
			parts[j] = token(row.Value(c))
		}
		keys[strings.Join(parts, "\x1f")] = true
	}
	return keys
}

// isMember checks a row's key against the other side's key set. Any
// excluded value in the row's own key vetoes membership outright.
func isMember(row dataset.Row, cols []string, otherKeys map[string]bool, excludedSet map[string]bool) bool {
	parts := make([]string, len(cols))
	for j, c := range cols {
		v := row.Value(c)
		if v != nil && excludedSet[dataset.Stringify(v)] {
			return false
		}
		parts[j] = token(v)
	}
	return otherKeys[strings.Join(parts, "\x1f")]
}

func token(v any) string {
	if v == nil {
		return nilToken
	}
	return dataset.Stringify(v)
}
