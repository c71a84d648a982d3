package core

import (
	"reflect"
	"testing"
)

// ============================================================================
// Filter Evaluation Tests
// ============================================================================

func filterDataset() Dataset {
	return Dataset{
		Columns: []string{"Industry", "Technologies", "Employees_Size", "Country"},
		Rows: []Row{
			{"Industry": "Software", "Technologies": "Go, Postgres", "Employees_Size": "50", "Country": "France"},
			{"Industry": "Retail", "Technologies": "Java", "Employees_Size": "150", "Country": "Germany"},
			{"Industry": "Software", "Technologies": "Go", "Employees_Size": "600", "Country": "France"},
			{"Industry": "Finance", "Technologies": "Postgres, Redis", "Employees_Size": "150", "Country": "New France"},
		},
	}
}

func filterKinds() map[string]ColumnKind {
	return ResolveColumnKinds(DefaultFacetConfig(), filterDataset())
}

func TestFilterIndices(t *testing.T) {
	ds := filterDataset()
	kinds := filterKinds()

	tests := []struct {
		name string
		sel  FilterSelection
		want []int
	}{
		{
			name: "empty selection matches everything",
			sel:  FilterSelection{},
			want: []int{0, 1, 2, 3},
		},
		{
			name: "facet with empty value list is no constraint",
			sel:  FilterSelection{"Industry": {}},
			want: []int{0, 1, 2, 3},
		},
		{
			name: "or within one facet",
			sel:  FilterSelection{"Industry": {"Software", "Finance"}},
			want: []int{0, 2, 3},
		},
		{
			name: "and across facets",
			sel: FilterSelection{
				"Industry":     {"Software"},
				"Technologies": {"Postgres"},
			},
			want: []int{0},
		},
		{
			name: "containment is case-insensitive",
			sel:  FilterSelection{"Industry": {"software"}},
			want: []int{0, 2},
		},
		{
			name: "multi-value token matches inside the cell",
			sel:  FilterSelection{"Technologies": {"Redis"}},
			want: []int{3},
		},
		{
			name: "employee bucket mid tier",
			sel:  FilterSelection{"Employees_Size": {BucketEmployeesMid}},
			want: []int{1, 3},
		},
		{
			name: "exact match does not do substring containment",
			sel:  FilterSelection{"Country": {"France"}},
			want: []int{0, 2},
		},
		{
			name: "no match yields empty result",
			sel:  FilterSelection{"Industry": {"Mining"}},
			want: []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterIndices(ds, kinds, tt.sel)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FilterIndices() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyFilterPreservesRowOrder(t *testing.T) {
	ds := filterDataset()
	kinds := filterKinds()

	rows := ApplyFilter(ds, kinds, FilterSelection{"Industry": {"Software", "Finance"}})

	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0]["Employees_Size"] != "50" || rows[1]["Employees_Size"] != "600" || rows[2]["Employees_Size"] != "150" {
		t.Errorf("rows out of dataset order: %v", rows)
	}
}

func TestFilterBucketScenario(t *testing.T) {
	// Employee sizes 50, 150, 600: selecting the middle tier keeps only
	// the 150 row.
	ds := Dataset{
		Columns: []string{"Name", "Employees_Size"},
		Rows: []Row{
			{"Name": "Small", "Employees_Size": "50"},
			{"Name": "Medium", "Employees_Size": "150"},
			{"Name": "Large", "Employees_Size": "600"},
		},
	}
	kinds := ResolveColumnKinds(DefaultFacetConfig(), ds)

	rows := ApplyFilter(ds, kinds, FilterSelection{"Employees_Size": {BucketEmployeesMid}})

	if len(rows) != 1 || rows[0]["Name"] != "Medium" {
		t.Errorf("rows = %v, want only the Medium row", rows)
	}
}

func TestFilterIsPure(t *testing.T) {
	ds := filterDataset()
	kinds := filterKinds()
	sel := FilterSelection{"Industry": {"Software"}}

	first := FilterIndices(ds, kinds, sel)
	second := FilterIndices(ds, kinds, sel)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated evaluation differs: %v then %v", first, second)
	}
	if ds.Rows[0]["Industry"] != "Software" {
		t.Error("filtering mutated the dataset")
	}
}
