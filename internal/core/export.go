package core

// export.go is the credit ledger and export gate.
//
// An export attempt walks a fixed sequence: Validate -> Materialize ->
// Debit. Debiting last (after the artifact bytes exist in memory) means a
// failed materialization never touches the ledger, and a failed debit
// releases no artifact, so the ledger can never record a debit for an
// export the tenant did not receive. The debit itself is a conditional
// update in the store, which also closes the concurrent-overdraw window
// between the upfront balance check and the debit.
//
// Cost is one credit per exported row.

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ExportFileName is the base name of every export artifact.
const ExportFileName = "exported_data"

const (
	contentTypeCSV  = "text/csv"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Export materializes the selected rows of a tenant's data into an
// artifact and debits one credit per row.
//
// Indices address the tenant's concatenated dataset rows in dataset-entry
// order. The column layout comes from the first dataset with a non-empty
// column order; if none has one, the sorted key set of the first selected
// row is used.
func (s *Service) Export(ctx context.Context, tenantID uuid.UUID, indices []int, format ExportFormat) (*ExportArtifact, error) {
	if len(indices) == 0 {
		return nil, ErrNoSelection
	}
	if format != FormatCSV && format != FormatXLSX {
		return nil, &UnsupportedFormatError{Format: string(format)}
	}

	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	cost := len(indices)
	if tenant.Balance < cost {
		return nil, &InsufficientCreditsError{Have: tenant.Balance, Need: cost}
	}

	columns, rows, err := s.tenantRowsView(ctx, tenant)
	if err != nil {
		return nil, err
	}

	selected := make([]Row, 0, cost)
	for _, idx := range indices {
		if idx < 0 || idx >= len(rows) {
			return nil, &RowIndexError{Index: idx, Rows: len(rows)}
		}
		selected = append(selected, rows[idx])
	}

	if len(columns) == 0 {
		columns = sortedKeys(selected[0])
	}

	artifact, err := renderArtifact(columns, selected, format)
	if err != nil {
		return nil, fmt.Errorf("materialize export: %w", err)
	}

	// Debit is the last step: a conditional update that fails atomically
	// when a concurrent export drained the balance first.
	if err := s.store.DebitBalance(ctx, tenantID, cost); err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, &InsufficientCreditsError{Have: tenant.Balance, Need: cost}
		}
		return nil, fmt.Errorf("debit balance: %w", err)
	}

	if err := s.store.AppendLedgerEntry(ctx, LedgerEntry{
		TenantID: tenantID,
		Delta:    -cost,
		Reason:   "export",
		Rows:     cost,
	}); err != nil {
		// The debit committed; the entry is bookkeeping only.
		slog.Warn("ledger entry not recorded", "tenant_id", tenantID, "error", err)
	}

	slog.Info("export completed",
		"tenant_id", tenantID,
		"rows", cost,
		"format", format,
		"bytes", len(artifact.Data),
	)

	return artifact, nil
}

// tenantRowsView concatenates the tenant's dataset rows in entry order
// and picks the export column layout.
func (s *Service) tenantRowsView(ctx context.Context, tenant *Tenant) ([]string, []Row, error) {
	var columns []string
	var rows []Row

	for _, entry := range tenant.Datasets {
		ds, err := s.store.GetDataset(ctx, entry.ID)
		if err != nil {
			return nil, nil, err
		}
		if len(columns) == 0 && len(ds.Columns) > 0 {
			columns = ds.Columns
		}
		rows = append(rows, ds.Rows...)
	}

	return columns, rows, nil
}

// renderArtifact renders header plus rows, row-major, in the requested
// format.
func renderArtifact(columns []string, rows []Row, format ExportFormat) (*ExportArtifact, error) {
	switch format {
	case FormatCSV:
		data, err := renderCSV(columns, rows)
		if err != nil {
			return nil, err
		}
		return &ExportArtifact{
			FileName:    ExportFileName + ".csv",
			ContentType: contentTypeCSV,
			Data:        data,
			Rows:        len(rows),
		}, nil
	case FormatXLSX:
		data, err := renderXLSX(columns, rows)
		if err != nil {
			return nil, err
		}
		return &ExportArtifact{
			FileName:    ExportFileName + ".xlsx",
			ContentType: contentTypeXLSX,
			Data:        data,
			Rows:        len(rows),
		}, nil
	default:
		return nil, &UnsupportedFormatError{Format: string(format)}
	}
}

func renderCSV(columns []string, rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(columns); err != nil {
		return nil, err
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderXLSX(columns []string, rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	cells := make([]interface{}, len(columns))
	for i, row := range rows {
		for j, col := range columns {
			cells[j] = row[col]
		}
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, addr, &cells); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sortedKeys(row Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
