package core_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/prospectdb/prospectdb/internal/core"
	"github.com/prospectdb/prospectdb/internal/store"
)

// ============================================================================
// Export Tests
// ============================================================================

// exportFixture seeds a tenant with one five-row dataset and the given
// starting balance.
func exportFixture(t *testing.T, balance int) (*core.Service, uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	mem := store.NewMemory()
	svc := core.NewService(mem)

	tenant, err := mem.CreateTenant(ctx, "acme", balance)
	if err != nil {
		t.Fatal(err)
	}

	ds := core.Dataset{
		Columns: []string{"Name", "Country"},
		Rows: []core.Row{
			{"Name": "r0", "Country": "FR"},
			{"Name": "r1", "Country": "DE"},
			{"Name": "r2", "Country": "FR"},
			{"Name": "r3", "Country": "US"},
			{"Name": "r4", "Country": "DE"},
		},
	}
	if _, err := mem.AddDataset(ctx, tenant.ID, "leads.csv", ds); err != nil {
		t.Fatal(err)
	}
	return svc, tenant.ID
}

func tenantBalance(t *testing.T, svc *core.Service, id uuid.UUID) int {
	t.Helper()
	tenant, err := svc.Tenant(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return tenant.Balance
}

func TestExportDebitsOneCreditPerRow(t *testing.T) {
	ctx := context.Background()
	svc, tenantID := exportFixture(t, 5)

	artifact, err := svc.Export(ctx, tenantID, []int{0, 1, 2, 3, 4}, core.FormatCSV)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	if artifact.Rows != 5 {
		t.Errorf("artifact rows = %d, want 5", artifact.Rows)
	}
	if got := tenantBalance(t, svc, tenantID); got != 0 {
		t.Errorf("balance = %d, want 0 after exporting 5 rows from 5 credits", got)
	}

	records, err := csv.NewReader(bytes.NewReader(artifact.Data)).ReadAll()
	if err != nil {
		t.Fatalf("artifact is not valid csv: %v", err)
	}
	if len(records) != 6 {
		t.Fatalf("csv lines = %d, want header + 5 rows", len(records))
	}
	if !reflect.DeepEqual(records[0], []string{"Name", "Country"}) {
		t.Errorf("header = %v, want dataset column order", records[0])
	}
	for i, want := range []string{"r0", "r1", "r2", "r3", "r4"} {
		if records[i+1][0] != want {
			t.Errorf("row %d = %v, want Name %q (selection order preserved)", i, records[i+1], want)
		}
	}
}

func TestExportSubsetInSelectionOrder(t *testing.T) {
	ctx := context.Background()
	svc, tenantID := exportFixture(t, 5)

	artifact, err := svc.Export(ctx, tenantID, []int{4, 0}, core.FormatCSV)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(artifact.Data)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if records[1][0] != "r4" || records[2][0] != "r0" {
		t.Errorf("rows = %v, want r4 then r0", records[1:])
	}
	if got := tenantBalance(t, svc, tenantID); got != 3 {
		t.Errorf("balance = %d, want 3 after exporting 2 rows", got)
	}
}

func TestExportInsufficientCredits(t *testing.T) {
	ctx := context.Background()
	svc, tenantID := exportFixture(t, 2)

	artifact, err := svc.Export(ctx, tenantID, []int{0, 1, 2, 3, 4}, core.FormatCSV)

	var insufficient *core.InsufficientCreditsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("error = %v, want *InsufficientCreditsError", err)
	}
	if insufficient.Have != 2 || insufficient.Need != 5 {
		t.Errorf("Have/Need = %d/%d, want 2/5", insufficient.Have, insufficient.Need)
	}
	if artifact != nil {
		t.Error("a rejected export must release no artifact")
	}
	if got := tenantBalance(t, svc, tenantID); got != 2 {
		t.Errorf("balance = %d, want unchanged 2", got)
	}
}

func TestExportValidation(t *testing.T) {
	ctx := context.Background()
	svc, tenantID := exportFixture(t, 10)

	t.Run("empty selection", func(t *testing.T) {
		_, err := svc.Export(ctx, tenantID, nil, core.FormatCSV)
		if !errors.Is(err, core.ErrNoSelection) {
			t.Errorf("error = %v, want ErrNoSelection", err)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := svc.Export(ctx, tenantID, []int{0}, core.ExportFormat("pdf"))
		var unsupported *core.UnsupportedFormatError
		if !errors.As(err, &unsupported) {
			t.Errorf("error = %v, want *UnsupportedFormatError", err)
		}
	})

	t.Run("index out of range", func(t *testing.T) {
		_, err := svc.Export(ctx, tenantID, []int{99}, core.FormatCSV)
		var rangeErr *core.RowIndexError
		if !errors.As(err, &rangeErr) {
			t.Fatalf("error = %v, want *RowIndexError", err)
		}
		if got := tenantBalance(t, svc, tenantID); got != 10 {
			t.Errorf("balance = %d, want unchanged 10 after failed export", got)
		}
	})

	t.Run("unknown tenant", func(t *testing.T) {
		_, err := svc.Export(ctx, uuid.New(), []int{0}, core.FormatCSV)
		if !errors.Is(err, core.ErrTenantNotFound) {
			t.Errorf("error = %v, want ErrTenantNotFound", err)
		}
	})
}

func TestExportXLSX(t *testing.T) {
	ctx := context.Background()
	svc, tenantID := exportFixture(t, 5)

	artifact, err := svc.Export(ctx, tenantID, []int{1}, core.FormatXLSX)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	if artifact.FileName != "exported_data.xlsx" {
		t.Errorf("file name = %q, want exported_data.xlsx", artifact.FileName)
	}
	if artifact.ContentType != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("content type = %q", artifact.ContentType)
	}

	f, err := excelize.OpenReader(bytes.NewReader(artifact.Data))
	if err != nil {
		t.Fatalf("artifact is not a valid spreadsheet: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("sheet rows = %d, want header + 1", len(rows))
	}
	if rows[1][0] != "r1" || rows[1][1] != "DE" {
		t.Errorf("data row = %v, want [r1 DE]", rows[1])
	}
}

func TestExportWritesLedgerEntry(t *testing.T) {
	ctx := context.Background()
	svc, tenantID := exportFixture(t, 5)

	if _, err := svc.Export(ctx, tenantID, []int{0, 1, 2}, core.FormatCSV); err != nil {
		t.Fatalf("Export: %v", err)
	}

	entries, err := svc.LedgerEntries(ctx, tenantID)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(entries))
	}
	if entries[0].Delta != -3 || entries[0].Reason != "export" || entries[0].Rows != 3 {
		t.Errorf("entry = %+v, want delta -3, reason export, rows 3", entries[0])
	}
}

func TestExportSpansMultipleDatasets(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := core.NewService(mem)

	tenant, err := mem.CreateTenant(ctx, "acme", 10)
	if err != nil {
		t.Fatal(err)
	}
	first := core.Dataset{
		Columns: []string{"Name"},
		Rows:    []core.Row{{"Name": "a0"}, {"Name": "a1"}},
	}
	second := core.Dataset{
		Columns: []string{"Name"},
		Rows:    []core.Row{{"Name": "b0"}},
	}
	if _, err := mem.AddDataset(ctx, tenant.ID, "first", first); err != nil {
		t.Fatal(err)
	}
	if _, err := mem.AddDataset(ctx, tenant.ID, "second", second); err != nil {
		t.Fatal(err)
	}

	// Index 2 addresses the first row of the second dataset: rows
	// concatenate in dataset-entry order.
	artifact, err := svc.Export(ctx, tenant.ID, []int{2}, core.FormatCSV)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(artifact.Data)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if records[1][0] != "b0" {
		t.Errorf("row = %v, want b0 from the second dataset", records[1])
	}
}
