package core

// facets.go derives filterable facets from a dataset.
//
// Every column is classified into a ColumnKind exactly once per build.
// Filterability is heuristic: semantically important columns are always
// included, identifier/contact-style columns are always excluded, and the
// rest qualify only when their distinct values look categorical (more than
// one value, but fewer than half the row count).
//
// Bucket columns (employee size, revenue) ignore their actual distinct
// values and expose a fixed three-tier option set; the filter evaluator
// classifies cells into the same tiers.

import (
	"sort"
	"strconv"
	"strings"
)

// Fixed bucket labels. Facet generation and filter evaluation must agree
// on these strings exactly.
const (
	BucketEmployeesLow  = "< 100"
	BucketEmployeesMid  = "100 – 500"
	BucketEmployeesHigh = "500+"

	BucketRevenueLow  = "< 1M"
	BucketRevenueMid  = "1M – 50M"
	BucketRevenueHigh = "50M+"
)

// nearUniqueRatio excludes columns whose distinct-value count reaches this
// fraction of the row count (identifier-like free text).
const nearUniqueRatio = 0.5

// FacetConfig controls column classification and facet ordering. Column
// name matching is case-insensitive.
type FacetConfig struct {
	// AlwaysInclude lists columns that are filterable regardless of their
	// value distribution.
	AlwaysInclude []string

	// MultiValue lists comma-separated list columns whose facet options
	// are the union of individual tokens.
	MultiValue []string

	// EmployeeColumns and RevenueColumns are bucketed numeric measures.
	EmployeeColumns []string
	RevenueColumns  []string

	// ExactMatch lists columns filtered by raw cell equality instead of
	// substring containment.
	ExactMatch []string

	// Priority orders the generated facets; columns not listed follow in
	// lexicographic order.
	Priority []string
}

// DefaultFacetConfig returns the configuration for the standard prospect
// column set.
func DefaultFacetConfig() FacetConfig {
	return FacetConfig{
		AlwaysInclude: []string{
			"Title", "Industry", "Technologies", "Employees_Size",
			"Revenue", "City", "Country",
		},
		MultiValue:      []string{"Technologies"},
		EmployeeColumns: []string{"Employees_Size", "Employees", "Employee_Count"},
		RevenueColumns:  []string{"Revenue", "Annual_Revenue"},
		ExactMatch:      []string{"Country"},
		Priority: []string{
			"Title", "Industry", "Technologies", "Employees_Size",
			"Revenue", "City", "Country",
		},
	}
}

// identifierFragments mark columns that must never become facets when the
// fragment appears anywhere in the lowercased column name.
var identifierFragments = []string{"url", "link", "password", "email", "phone", "address"}

// ResolveColumnKinds classifies every dataset column once. The result is
// reused by both facet generation and filter evaluation so the two sides
// can never disagree on matching semantics.
func ResolveColumnKinds(cfg FacetConfig, ds Dataset) map[string]ColumnKind {
	kinds := make(map[string]ColumnKind, len(ds.Columns))
	for _, col := range ds.Columns {
		kinds[col] = resolveKind(cfg, col)
	}
	return kinds
}

func resolveKind(cfg FacetConfig, col string) ColumnKind {
	switch {
	case containsFold(cfg.EmployeeColumns, col):
		return KindEmployeeBucket
	case containsFold(cfg.RevenueColumns, col):
		return KindRevenueBucket
	case containsFold(cfg.MultiValue, col):
		return KindMultiValue
	case containsFold(cfg.ExactMatch, col):
		return KindExactMatch
	case isIdentifierColumn(col):
		return KindIdentifier
	default:
		return KindCategorical
	}
}

// isIdentifierColumn reports whether a column name looks like an
// identifier, URL, or contact-info field.
func isIdentifierColumn(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	if strings.HasPrefix(lower, "_") || strings.HasSuffix(lower, "id") {
		return true
	}
	for _, frag := range identifierFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// BuildFacets inspects the dataset and proposes an ordered facet per
// filterable column. The output is deterministic: calling it twice on the
// same dataset yields identical results.
func BuildFacets(cfg FacetConfig, ds Dataset) []Facet {
	kinds := ResolveColumnKinds(cfg, ds)

	var facets []Facet
	for _, col := range ds.Columns {
		values := columnValues(ds, col)
		if !isFilterable(cfg, kinds[col], col, values) {
			continue
		}

		var facet Facet
		switch kinds[col] {
		case KindEmployeeBucket:
			facet = bucketFacet(col, BucketEmployeesLow, BucketEmployeesMid, BucketEmployeesHigh)
		case KindRevenueBucket:
			facet = bucketFacet(col, BucketRevenueLow, BucketRevenueMid, BucketRevenueHigh)
		default:
			tokens := distinctTokens(values)
			if len(tokens) == 0 {
				continue
			}
			sortTokens(tokens)
			facet = Facet{Title: col, Options: tokenOptions(tokens), MultiSelect: true}
		}
		facets = append(facets, facet)
	}

	orderFacets(cfg.Priority, facets)
	return facets
}

// isFilterable applies the filterability heuristics in precedence order:
// always-include list, identifier exclusion, then value distribution.
func isFilterable(cfg FacetConfig, kind ColumnKind, col string, values []string) bool {
	if containsFold(cfg.AlwaysInclude, col) {
		return true
	}
	if kind == KindIdentifier {
		return false
	}

	distinct := make(map[string]struct{})
	total := 0
	for _, v := range values {
		total++
		if v != "" {
			distinct[v] = struct{}{}
		}
	}
	if len(distinct) < 2 || total == 0 {
		return false
	}
	return float64(len(distinct)) < nearUniqueRatio*float64(total)
}

// columnValues collects every row's value for one column, in row order.
func columnValues(ds Dataset, col string) []string {
	values := make([]string, len(ds.Rows))
	for i, row := range ds.Rows {
		values[i] = row[col]
	}
	return values
}

// distinctTokens splits cells on commas, trims, drops empties, and
// returns the distinct tokens in first-seen order. Single free-text cells
// containing commas therefore contribute multiple filter tokens.
func distinctTokens(values []string) []string {
	seen := make(map[string]struct{})
	var tokens []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			tok := strings.TrimSpace(part)
			if tok == "" {
				continue
			}
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// sortTokens orders option tokens. When every token is numeric or
// numeric-range-like ("10-20", "<5"), tokens sort by parsed magnitude;
// otherwise lexicographically.
func sortTokens(tokens []string) {
	numeric := true
	mags := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		m, ok := numericMagnitude(t)
		if !ok {
			numeric = false
			break
		}
		mags[t] = m
	}

	if numeric {
		sort.SliceStable(tokens, func(i, j int) bool { return mags[tokens[i]] < mags[tokens[j]] })
		return
	}
	sort.Strings(tokens)
}

// numericMagnitude parses a numeric or numeric-range-like token into a
// sortable magnitude: "42" -> 42, "10-20" -> 10, "<5" -> 5, "500+" -> 500.
func numericMagnitude(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "<>≤≥=~ ")
	s = strings.TrimRight(s, "+ ")
	if i := strings.IndexAny(s, "-–"); i > 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func bucketFacet(col string, labels ...string) Facet {
	return Facet{Title: col, Options: tokenOptions(labels), MultiSelect: true}
}

func tokenOptions(tokens []string) []FacetOption {
	opts := make([]FacetOption, len(tokens))
	for i, t := range tokens {
		opts[i] = FacetOption{Label: t, Value: t}
	}
	return opts
}

// orderFacets sorts facets so priority columns come first, in priority
// order, with the remainder lexicographic by title.
func orderFacets(priority []string, facets []Facet) {
	rank := func(title string) int {
		for i, p := range priority {
			if strings.EqualFold(p, title) {
				return i
			}
		}
		return len(priority)
	}
	sort.SliceStable(facets, func(i, j int) bool {
		ri, rj := rank(facets[i].Title), rank(facets[j].Title)
		if ri != rj {
			return ri < rj
		}
		return facets[i].Title < facets[j].Title
	})
}

// EmployeeBucket classifies an employee-count cell into one of the three
// fixed tiers. Unparsable or empty cells land in the lowest tier.
func EmployeeBucket(cell string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, cell)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return BucketEmployeesLow
	}
	switch {
	case n < 100:
		return BucketEmployeesLow
	case n <= 500:
		return BucketEmployeesMid
	default:
		return BucketEmployeesHigh
	}
}

// RevenueBucket classifies a revenue cell into one of the three fixed
// tiers. All non-digit characters except decimal point and minus are
// stripped before parsing; unparsable cells land in the lowest tier.
func RevenueBucket(cell string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, cell)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return BucketRevenueLow
	}
	switch {
	case v < 1_000_000:
		return BucketRevenueLow
	case v <= 50_000_000:
		return BucketRevenueMid
	default:
		return BucketRevenueHigh
	}
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
