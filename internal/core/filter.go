package core

// filter.go evaluates a FilterSelection against a dataset.
//
// The evaluator is pure: the same dataset and selection always produce the
// same result, and nothing here mutates the dataset or carries state
// between calls. Row order is preserved.
//
// Matching semantics are AND across facets, OR within one facet:
//
//   - categorical and multi-value columns match when the raw cell contains
//     the selected token, case-insensitively (tokens were generated from
//     comma splits, so containment re-checks against the whole cell);
//   - bucketed numeric columns classify the cell into the same fixed tiers
//     used at facet generation and compare tier labels;
//   - exact-match columns compare the raw cell for equality.

import "strings"

// ApplyFilter returns the rows matching every constrained facet in the
// selection. Facets present with an empty value list are no constraint.
func ApplyFilter(ds Dataset, kinds map[string]ColumnKind, sel FilterSelection) []Row {
	indices := FilterIndices(ds, kinds, sel)
	rows := make([]Row, len(indices))
	for i, idx := range indices {
		rows[i] = ds.Rows[idx]
	}
	return rows
}

// FilterIndices returns the original indices of the matching rows, in
// ascending order. Exports address rows by these indices.
func FilterIndices(ds Dataset, kinds map[string]ColumnKind, sel FilterSelection) []int {
	// Drop unconstrained facets up front so an empty value list can never
	// eliminate rows.
	constrained := make(map[string][]string, len(sel))
	for col, values := range sel {
		if len(values) > 0 {
			constrained[col] = values
		}
	}

	indices := make([]int, 0, len(ds.Rows))
	for i, row := range ds.Rows {
		if rowMatches(row, kinds, constrained) {
			indices = append(indices, i)
		}
	}
	return indices
}

func rowMatches(row Row, kinds map[string]ColumnKind, sel map[string][]string) bool {
	for col, values := range sel {
		if !cellMatches(row[col], kinds[col], values) {
			return false
		}
	}
	return true
}

// cellMatches reports whether the cell satisfies any of the selected
// values under the column's matching semantics.
func cellMatches(cell string, kind ColumnKind, values []string) bool {
	switch kind {
	case KindEmployeeBucket:
		bucket := EmployeeBucket(cell)
		for _, v := range values {
			if v == bucket {
				return true
			}
		}
	case KindRevenueBucket:
		bucket := RevenueBucket(cell)
		for _, v := range values {
			if v == bucket {
				return true
			}
		}
	case KindExactMatch:
		for _, v := range values {
			if cell == v {
				return true
			}
		}
	default:
		lower := strings.ToLower(cell)
		for _, v := range values {
			if strings.Contains(lower, strings.ToLower(v)) {
				return true
			}
		}
	}
	return false
}
