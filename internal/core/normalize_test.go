package core

import (
	"errors"
	"reflect"
	"testing"
)

// ============================================================================
// Normalize Tests
// ============================================================================

func rawRecord(keys []string, values map[string]string) RawRecord {
	return RawRecord{Keys: keys, Values: values}
}

func TestNormalizeColumnOrderRoundTrip(t *testing.T) {
	records := []RawRecord{
		rawRecord([]string{"Zeta", "Alpha", "Mid"}, map[string]string{
			"Zeta": "1", "Alpha": "2", "Mid": "3",
		}),
		rawRecord([]string{"Zeta", "Alpha", "Mid"}, map[string]string{
			"Zeta": "4", "Alpha": "5", "Mid": "6",
		}),
	}

	ds, err := Normalize(records, nil)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	want := []string{"Zeta", "Alpha", "Mid"}
	if !reflect.DeepEqual(ds.Columns, want) {
		t.Errorf("columns = %v, want %v (header order must survive)", ds.Columns, want)
	}
	if len(ds.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(ds.Rows))
	}
}

func TestNormalizeCaseInsensitiveBackfill(t *testing.T) {
	records := []RawRecord{
		rawRecord([]string{"Name", "email"}, map[string]string{
			"Name":  "Acme",
			"email": "  info@acme.test  ",
		}),
	}

	ds, err := Normalize(records, []string{"Email"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	// The matched column is renamed in place: canonical key populated,
	// no duplicate in the column order.
	want := []string{"Name", "Email"}
	if !reflect.DeepEqual(ds.Columns, want) {
		t.Errorf("columns = %v, want %v", ds.Columns, want)
	}
	if got := ds.Rows[0]["Email"]; got != "info@acme.test" {
		t.Errorf("Email = %q, want trimmed value from lowercase header", got)
	}
	if _, ok := ds.Rows[0]["email"]; ok {
		t.Error("row still carries the old lowercase key")
	}
}

func TestNormalizeValuesTrimmedAndBackfilled(t *testing.T) {
	records := []RawRecord{
		rawRecord([]string{"Name", "City"}, map[string]string{
			"Name": "  Acme  ",
			"City": "Lyon",
		}),
		rawRecord([]string{"Name", "City"}, map[string]string{
			"Name": "Globex",
			// City absent: must become empty string, not a missing key.
		}),
	}

	ds, err := Normalize(records, nil)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if got := ds.Rows[0]["Name"]; got != "Acme" {
		t.Errorf("Name = %q, want trimmed", got)
	}
	city, ok := ds.Rows[1]["City"]
	if !ok {
		t.Fatal("second row is missing the City key entirely")
	}
	if city != "" {
		t.Errorf("City = %q, want empty string", city)
	}
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		records []RawRecord
		wantErr error
	}{
		{
			name:    "no records",
			records: nil,
			wantErr: ErrEmptyDataset,
		},
		{
			name: "first record has no keys",
			records: []RawRecord{
				rawRecord(nil, map[string]string{}),
			},
			wantErr: ErrNoHeaders,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.records, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Normalize() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// ============================================================================
// NormalizeOnboarding Tests
// ============================================================================

func TestNormalizeOnboardingMissingColumns(t *testing.T) {
	records := []RawRecord{
		rawRecord([]string{"Name", "city"}, map[string]string{
			"Name": "Acme", "city": "Lyon",
		}),
	}

	_, err := NormalizeOnboarding(records, []string{"Name", "Industry"})

	var missing *MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %v, want *MissingColumnsError", err)
	}
	if !reflect.DeepEqual(missing.Missing, []string{"Industry"}) {
		t.Errorf("Missing = %v, want [Industry]", missing.Missing)
	}
}

func TestNormalizeOnboardingListsEveryMissingColumn(t *testing.T) {
	records := []RawRecord{
		rawRecord([]string{"Name"}, map[string]string{"Name": "Acme"}),
	}

	_, err := NormalizeOnboarding(records, OnboardingColumns)

	var missing *MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %v, want *MissingColumnsError", err)
	}
	want := []string{"Company", "Industry", "Email", "Country"}
	if !reflect.DeepEqual(missing.Missing, want) {
		t.Errorf("Missing = %v, want %v", missing.Missing, want)
	}
}

func TestNormalizeOnboardingCaseInsensitiveMatch(t *testing.T) {
	records := []RawRecord{
		rawRecord([]string{" NAME ", "company", "Industry", "EMAIL", "country", "Notes"}, map[string]string{
			" NAME ":   "Acme",
			"company":  "Acme Corp",
			"Industry": "Software",
			"EMAIL":    "info@acme.test",
			"country":  "France",
			"Notes":    "dropped in strict mode",
		}),
	}

	ds, err := NormalizeOnboarding(records, OnboardingColumns)
	if err != nil {
		t.Fatalf("NormalizeOnboarding: %v", err)
	}

	if !reflect.DeepEqual(ds.Columns, OnboardingColumns) {
		t.Errorf("columns = %v, want canonical mandatory order %v", ds.Columns, OnboardingColumns)
	}
	if got := ds.Rows[0]["Company"]; got != "Acme Corp" {
		t.Errorf("Company = %q, want value from lowercase header", got)
	}
	if _, ok := ds.Rows[0]["Notes"]; ok {
		t.Error("strict mode must not preserve columns beyond the mandatory set")
	}
}
