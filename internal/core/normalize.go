package core

// normalize.go is the schema normalizer: it turns raw parsed records with
// an unknown column set and inconsistent header casing into a Dataset with
// a fixed, ordered column list and string-only cells.
//
// Two modes exist:
//
//   - Normalize preserves every column the uploader sent, in the order of
//     the first record, and backfills recognized canonical columns that
//     arrived under different casing.
//   - NormalizeOnboarding is the strict mode used when a tenant is first
//     created: a fixed mandatory column set must be present and nothing
//     beyond it is kept.

import "strings"

// KnownColumns is the default canonical column set. Uploads that carry
// any of these names under different casing ("email", "EMAIL ") still
// populate the canonical field without losing unrecognized columns.
var KnownColumns = []string{
	"Name",
	"Title",
	"Company",
	"Industry",
	"Email",
	"Phone",
	"Website",
	"City",
	"Country",
	"Technologies",
	"Employees_Size",
	"Revenue",
}

// OnboardingColumns is the mandatory column set for the strict onboarding
// ingestion mode.
var OnboardingColumns = []string{
	"Name",
	"Company",
	"Industry",
	"Email",
	"Country",
}

// Normalize builds a Dataset from raw records. The column order is the
// key order of the first record; it is fixed at ingestion and never
// reordered by filtering or export.
//
// For every known canonical name not already present case-sensitively, a
// case-insensitive match against the record keys is attempted. A match
// renames the column in place (position preserved), so the canonical key
// is populated and no duplicate column appears.
//
// Every value is trimmed; absent values become the empty string.
func Normalize(records []RawRecord, known []string) (Dataset, error) {
	if len(records) == 0 {
		return Dataset{}, ErrEmptyDataset
	}
	if len(records[0].Keys) == 0 {
		return Dataset{}, ErrNoHeaders
	}

	columns := make([]string, 0, len(records[0].Keys))
	for _, k := range records[0].Keys {
		if k != "" {
			columns = append(columns, k)
		}
	}
	if len(columns) == 0 {
		return Dataset{}, ErrNoHeaders
	}

	// Canonical rename pass: map source column name -> canonical name.
	rename := make(map[string]string)
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}
	for _, want := range known {
		if present[want] {
			continue
		}
		for _, c := range columns {
			if strings.EqualFold(strings.TrimSpace(c), want) {
				rename[c] = want
				break
			}
		}
	}

	for i, c := range columns {
		if canonical, ok := rename[c]; ok {
			columns[i] = canonical
		}
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := make(Row, len(columns))
		for _, col := range columns {
			row[col] = ""
		}
		for key, val := range rec.Values {
			target := key
			if canonical, ok := rename[key]; ok {
				target = canonical
			}
			if _, ok := row[target]; ok {
				row[target] = strings.TrimSpace(val)
			}
		}
		rows = append(rows, row)
	}

	return Dataset{Columns: columns, Rows: rows}, nil
}

// NormalizeOnboarding builds a Dataset in strict mode: every mandatory
// column must be present (case-insensitive, after trim) or the whole
// upload is rejected with a MissingColumnsError naming each absent
// column. Columns outside the mandatory set are dropped and the output
// column order is the canonical order of mandatory, not the file's.
func NormalizeOnboarding(records []RawRecord, mandatory []string) (Dataset, error) {
	if len(records) == 0 {
		return Dataset{}, ErrEmptyDataset
	}
	if len(records[0].Keys) == 0 {
		return Dataset{}, ErrNoHeaders
	}

	// Map each mandatory column to the actual source key, if any.
	source := make(map[string]string, len(mandatory))
	var missing []string
	for _, want := range mandatory {
		found := ""
		for _, key := range records[0].Keys {
			if strings.EqualFold(strings.TrimSpace(key), want) {
				found = key
				break
			}
		}
		if found == "" {
			missing = append(missing, want)
			continue
		}
		source[want] = found
	}
	if len(missing) > 0 {
		return Dataset{}, &MissingColumnsError{Missing: missing}
	}

	columns := make([]string, len(mandatory))
	copy(columns, mandatory)

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := make(Row, len(columns))
		for _, col := range columns {
			row[col] = strings.TrimSpace(rec.Values[source[col]])
		}
		rows = append(rows, row)
	}

	return Dataset{Columns: columns, Rows: rows}, nil
}
