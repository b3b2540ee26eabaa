package dataset

import (
	"strings"

	clovererrors "github.com/Ramsey-B/clover/pkg/errors"
)

// DefaultIgnoreJoinValues are right-side key values that never join. They
// are the usual placeholder strings that leak out of upstream exports.
var DefaultIgnoreJoinValues = []string{"None", "nan", "", " ", "none"}

// JoinOptions tunes LeftJoin behavior.
type JoinOptions struct {
	// IgnoreRightValues excludes right rows whose join key contains any of
	// these values. Defaults to DefaultIgnoreJoinValues when nil.
	IgnoreRightValues []string
	// Suffix is appended to right column names that collide with left
	// columns. Defaults to "_right".
	Suffix string
}

// JoinStats reports left-join row accounting.
type JoinStats struct {
	RowsBefore   int     `json:"rows_before"`
	RowsAfter    int     `json:"rows_after"`
	Matches      int     `json:"matches"`
	MatchPercent float64 `json:"match_percent"`
}

// LeftJoin joins the right dataset onto the left on equality of the given
// key columns. Every left row appears at least once; left rows with multiple
// right matches are repeated per match, the way analysts expect from a
// left merge. Nil key values never join.
func (d *Dataset) LeftJoin(right *Dataset, leftOn, rightOn []string, opts JoinOptions) (*Dataset, JoinStats, error) {
	stats := JoinStats{RowsBefore: d.Len()}

	if len(leftOn) != len(rightOn) {
		return nil, stats, clovererrors.NewMatchConfigErrorf("left join key arity mismatch: %d vs %d", len(leftOn), len(rightOn))
	}
	for _, c := range leftOn {
		if !d.HasColumn(c) {
			return nil, stats, clovererrors.NewMatchConfigError("unknown left join column").AddColumn(c)
		}
	}
	for _, c := range rightOn {
		if !right.HasColumn(c) {
			return nil, stats, clovererrors.NewMatchConfigError("unknown right join column").AddColumn(c)
		}
	}

	ignore := opts.IgnoreRightValues
	if ignore == nil {
		ignore = DefaultIgnoreJoinValues
	}
	ignoreSet := make(map[string]bool, len(ignore))
	for _, v := range ignore {
		ignoreSet[v] = true
	}

	suffix := opts.Suffix
	if suffix == "" {
		suffix = "_right"
	}

	// Right columns carried into the output, with the join keys dropped
	// and collisions suffixed.
	var rightCols []string
	outNames := make(map[string]string)
	rightKeySet := make(map[string]bool, len(rightOn))
	for _, c := range rightOn {
		rightKeySet[c] = true
	}
	for _, c := range right.columns {
		if rightKeySet[c] {
			continue
		}
		rightCols = append(rightCols, c)
		name := c
		if d.HasColumn(name) {
			name = name + suffix
		}
		outNames[c] = name
	}

	// Index right rows by join key, skipping ignored and nil-keyed rows.
	rightIdx := make(map[string][]int)
	for i := 0; i < right.Len(); i++ {
		key, ok := right.joinKey(i, rightOn, ignoreSet)
		if !ok {
			continue
		}
		rightIdx[key] = append(rightIdx[key], i)
	}

	outCols := make([]string, 0, len(d.columns)+len(rightCols))
	outCols = append(outCols, d.columns...)
	for _, c := range rightCols {
		outCols = append(outCols, outNames[c])
	}
	out := New(outCols...)

	for i := 0; i < d.Len(); i++ {
		key, ok := d.joinKey(i, leftOn, nil)
		var matches []int
		if ok {
			matches = rightIdx[key]
		}

		if len(matches) == 0 {
			row := make([]any, len(outCols))
			copy(row, d.rows[i])
			out.rows = append(out.rows, row)
			continue
		}

		for _, ri := range matches {
			row := make([]any, 0, len(outCols))
			row = append(row, d.rows[i]...)
			for _, c := range rightCols {
				row = append(row, right.rows[ri][right.index[c]])
			}
			out.rows = append(out.rows, row)
			stats.Matches++
		}
	}

	stats.RowsAfter = out.Len()
	if stats.RowsAfter > 0 {
		stats.MatchPercent = float64(stats.Matches) / float64(stats.RowsAfter) * 100
	}
	return out, stats, nil
}

// joinKey builds the composite key for a row. Returns false when the row
// cannot join (nil value, or a value in the ignore set).
func (d *Dataset) joinKey(row int, on []string, ignore map[string]bool) (string, bool) {
	parts := make([]string, len(on))
	for i, c := range on {
		v := d.rows[row][d.index[c]]
		if v == nil {
			return "", false
		}
		s := Stringify(v)
		if ignore != nil && ignore[s] {
			return "", false
		}
		parts[i] = s
	}
	return strings.Join(parts, "\x1f"), true
}
