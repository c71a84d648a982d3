package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/prospectdb/prospectdb/internal/core"
)

// ============================================================================
// Balance Tests
// ============================================================================

func TestMemoryDebitBalance(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id := m.SeedTenant("acme", 10, nil)

	if err := m.DebitBalance(ctx, id, 4); err != nil {
		t.Fatalf("debit within balance: %v", err)
	}

	err := m.DebitBalance(ctx, id, 7)
	if !errors.Is(err, core.ErrInsufficientFunds) {
		t.Errorf("overdraw error = %v, want ErrInsufficientFunds", err)
	}

	tenant, err := m.GetTenant(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if tenant.Balance != 6 {
		t.Errorf("balance = %d, want 6 (failed debit must not change it)", tenant.Balance)
	}
}

func TestMemoryDebitBalanceUnknownTenant(t *testing.T) {
	m := NewMemory()
	err := m.DebitBalance(context.Background(), uuid.New(), 1)
	if !errors.Is(err, core.ErrTenantNotFound) {
		t.Errorf("error = %v, want ErrTenantNotFound", err)
	}
}

func TestMemoryConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id := m.SeedTenant("acme", 10, nil)

	var wg sync.WaitGroup
	succeeded := make(chan struct{}, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.DebitBalance(ctx, id, 1); err == nil {
				succeeded <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(succeeded)

	wins := 0
	for range succeeded {
		wins++
	}
	if wins != 10 {
		t.Errorf("successful debits = %d, want exactly 10", wins)
	}

	tenant, _ := m.GetTenant(ctx, id)
	if tenant.Balance != 0 {
		t.Errorf("balance = %d, want 0 and never negative", tenant.Balance)
	}
}

// ============================================================================
// Legacy Dataset Lift Tests
// ============================================================================

func TestMemoryLegacyDatasetLift(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	dsID := m.SeedDataset(core.Dataset{
		Columns: []string{"Name"},
		Rows:    []core.Row{{"Name": "Acme"}},
	})
	tenantID := m.SeedTenant("legacy-co", 3, &dsID)

	// First read lifts the legacy reference into a dataset entry.
	tenant, err := m.GetTenant(ctx, tenantID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tenant.Datasets) != 1 {
		t.Fatalf("datasets = %d, want 1 after lift", len(tenant.Datasets))
	}
	if tenant.Datasets[0].ID != dsID || tenant.Datasets[0].Title != LegacyDatasetTitle {
		t.Errorf("entry = %+v, want legacy dataset titled %q", tenant.Datasets[0], LegacyDatasetTitle)
	}

	// Repeat reads must not duplicate the entry.
	tenant, err = m.GetTenant(ctx, tenantID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tenant.Datasets) != 1 {
		t.Errorf("datasets after second read = %d, want still 1", len(tenant.Datasets))
	}
}

// ============================================================================
// Dataset Tests
// ============================================================================

func TestMemoryDatasetLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	tenantID := m.SeedTenant("acme", 0, nil)

	ds := core.Dataset{
		Columns: []string{"Name"},
		Rows:    []core.Row{{"Name": "Acme"}},
	}
	dsID, err := m.AddDataset(ctx, tenantID, "leads.csv", ds)
	if err != nil {
		t.Fatal(err)
	}

	got, err := m.GetDataset(ctx, dsID)
	if err != nil {
		t.Fatal(err)
	}

	// Returned datasets are copies; mutating them must not leak back.
	got.Rows[0]["Name"] = "mutated"
	again, err := m.GetDataset(ctx, dsID)
	if err != nil {
		t.Fatal(err)
	}
	if again.Rows[0]["Name"] != "Acme" {
		t.Error("stored dataset was mutated through a returned copy")
	}

	if err := m.DeleteDataset(ctx, tenantID, dsID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.GetDataset(ctx, dsID); !errors.Is(err, core.ErrDatasetNotFound) {
		t.Errorf("after delete, error = %v, want ErrDatasetNotFound", err)
	}
	if err := m.DeleteDataset(ctx, tenantID, dsID); !errors.Is(err, core.ErrDatasetNotFound) {
		t.Errorf("double delete error = %v, want ErrDatasetNotFound", err)
	}
}

// ============================================================================
// Credit Request Tests
// ============================================================================

func TestMemoryResolveCreditRequestOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	tenantID := m.SeedTenant("acme", 0, nil)

	req, err := m.CreateCreditRequest(ctx, tenantID, 25)
	if err != nil {
		t.Fatal(err)
	}

	resolved, err := m.ResolveCreditRequest(ctx, req.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Status != core.CreditApproved {
		t.Errorf("status = %q, want approved", resolved.Status)
	}

	if _, err := m.ResolveCreditRequest(ctx, req.ID, false); !errors.Is(err, core.ErrAlreadyProcessed) {
		t.Errorf("second resolution error = %v, want ErrAlreadyProcessed", err)
	}

	tenant, _ := m.GetTenant(ctx, tenantID)
	if tenant.Balance != 25 {
		t.Errorf("balance = %d, want 25 (credited exactly once)", tenant.Balance)
	}
}

func TestMemoryRejectDoesNotCredit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	tenantID := m.SeedTenant("acme", 0, nil)

	req, err := m.CreateCreditRequest(ctx, tenantID, 25)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.ResolveCreditRequest(ctx, req.ID, false); err != nil {
		t.Fatal(err)
	}

	tenant, _ := m.GetTenant(ctx, tenantID)
	if tenant.Balance != 0 {
		t.Errorf("balance = %d, want 0 after rejection", tenant.Balance)
	}
}

// ============================================================================
// Ledger Tests
// ============================================================================

func TestMemoryLedgerMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	tenantID := m.SeedTenant("acme", 0, nil)

	for _, reason := range []string{"first", "second", "third"} {
		if err := m.AppendLedgerEntry(ctx, core.LedgerEntry{TenantID: tenantID, Delta: 1, Reason: reason}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := m.ListLedgerEntries(ctx, tenantID)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if entries[0].Reason != "third" || entries[2].Reason != "first" {
		t.Errorf("order = [%s %s %s], want most recent first", entries[0].Reason, entries[1].Reason, entries[2].Reason)
	}
}
