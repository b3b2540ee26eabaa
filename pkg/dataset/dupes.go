package dataset

import (
	"math"

	clovererrors "github.com/Ramsey-B/clover/pkg/errors"
)

// DuplicateConflicts returns the rows that share values in subsetCols but
// disagree in at least one of diffCols. Useful for QA, e.g. posts with the
// same URL reporting different impression counts.
func (d *Dataset) DuplicateConflicts(subsetCols, diffCols []string) (*Dataset, error) {
	for _, c := range append(append([]string{}, subsetCols...), diffCols...) {
		if !d.HasColumn(c) {
			return nil, clovererrors.NewMatchConfigError("unknown column").AddColumn(c)
		}
	}

	groups := make(map[string][]int)
	order := []string{}
	for i := 0; i < d.Len(); i++ {
		key, ok := d.joinKey(i, subsetCols, nil)
		if !ok {
			// Nil keys never group together
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	conflicting := make(map[int]bool)
	for _, key := range order {
		rows := groups[key]
		if len(rows) < 2 {
			continue
		}
		if d.groupDisagrees(rows, diffCols) {
			for _, i := range rows {
				conflicting[i] = true
			}
		}
	}

	return d.Filter(func(row Row) bool {
		return conflicting[row.Index()]
	}), nil
}

func (d *Dataset) groupDisagrees(rows []int, diffCols []string) bool {
	for _, c := range diffCols {
		idx := d.index[c]
		seen := make(map[string]bool)
		for _, i := range rows {
			seen[Stringify(d.rows[i][idx])] = true
			if len(seen) > 1 {
				return true
			}
		}
	}
	return false
}

// KeepMaxValue deduplicates on subsetCols, keeping the row with the highest
// numeric value in valueCol from each group. Non-numeric values sort lowest.
func (d *Dataset) KeepMaxValue(subsetCols []string, valueCol string) (*Dataset, error) {
	if valueCol == "" {
		return nil, clovererrors.NewMatchConfigError("value column is required").AddParameter("valueCol")
	}
	for _, c := range append(append([]string{}, subsetCols...), valueCol) {
		if !d.HasColumn(c) {
			return nil, clovererrors.NewMatchConfigError("unknown column").AddColumn(c)
		}
	}

	valueIdx := d.index[valueCol]
	best := make(map[string]int)
	order := []string{}
	var ungrouped []int

	for i := 0; i < d.Len(); i++ {
		key, ok := d.joinKey(i, subsetCols, nil)
		if !ok {
			ungrouped = append(ungrouped, i)
			continue
		}
		current, seen := best[key]
		if !seen {
			order = append(order, key)
			best[key] = i
			continue
		}
		if numericValue(d.rows[i][valueIdx]) > numericValue(d.rows[current][valueIdx]) {
			best[key] = i
		}
	}

	keep := make(map[int]bool, len(best)+len(ungrouped))
	for _, i := range best {
		keep[i] = true
	}
	for _, i := range ungrouped {
		keep[i] = true
	}

	return d.Filter(func(row Row) bool {
		return keep[row.Index()]
	}), nil
}

func numericValue(v any) float64 {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	case float64:
		return t
	default:
		return math.Inf(-1)
	}
}
