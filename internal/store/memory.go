package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prospectdb/prospectdb/internal/core"
)

// Memory implements core.Store with mutex-guarded maps. It backs tests
// and local development; semantics mirror Postgres, including the
// conditional debit and the single-resolution guard.
type Memory struct {
	mu       sync.RWMutex
	tenants  map[uuid.UUID]*memTenant
	datasets map[uuid.UUID]core.Dataset
	requests map[uuid.UUID]*core.CreditRequest
	ledger   map[uuid.UUID][]core.LedgerEntry
}

type memTenant struct {
	name     string
	balance  int
	datasets []core.DatasetEntry
	legacy   *uuid.UUID
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tenants:  make(map[uuid.UUID]*memTenant),
		datasets: make(map[uuid.UUID]core.Dataset),
		requests: make(map[uuid.UUID]*core.CreditRequest),
		ledger:   make(map[uuid.UUID][]core.LedgerEntry),
	}
}

// CreateTenant inserts a tenant with the given starting balance.
func (m *Memory) CreateTenant(ctx context.Context, name string, balance int) (*core.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New()
	m.tenants[id] = &memTenant{name: name, balance: balance}
	return &core.Tenant{ID: id, Name: name, Balance: balance}, nil
}

// SeedTenant inserts a tenant in a chosen state, optionally with a legacy
// single-dataset reference. Intended for tests and fixtures.
func (m *Memory) SeedTenant(name string, balance int, legacy *uuid.UUID) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New()
	m.tenants[id] = &memTenant{name: name, balance: balance, legacy: legacy}
	return id
}

// SeedDataset inserts a dataset without linking it to any tenant.
// Intended for tests exercising the legacy lift.
func (m *Memory) SeedDataset(ds core.Dataset) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New()
	m.datasets[id] = ds
	return id
}

// GetTenant loads a tenant, lifting a legacy single-dataset reference
// into the dataset-list shape on first read.
func (m *Memory) GetTenant(ctx context.Context, id uuid.UUID) (*core.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenants[id]
	if !ok {
		return nil, core.ErrTenantNotFound
	}

	if t.legacy != nil && len(t.datasets) == 0 {
		t.datasets = append(t.datasets, core.DatasetEntry{
			ID:        *t.legacy,
			Title:     LegacyDatasetTitle,
			CreatedAt: time.Now(),
		})
		t.legacy = nil
	}

	out := &core.Tenant{
		ID:       id,
		Name:     t.name,
		Balance:  t.balance,
		Datasets: make([]core.DatasetEntry, len(t.datasets)),
	}
	copy(out.Datasets, t.datasets)
	return out, nil
}

// AddDataset stores a dataset and links it to the tenant.
func (m *Memory) AddDataset(ctx context.Context, tenantID uuid.UUID, title string, ds core.Dataset) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenants[tenantID]
	if !ok {
		return uuid.Nil, core.ErrTenantNotFound
	}

	id := uuid.New()
	m.datasets[id] = ds
	t.datasets = append(t.datasets, core.DatasetEntry{
		ID:        id,
		Title:     title,
		CreatedAt: time.Now(),
	})
	return id, nil
}

// GetDataset returns a copy of the stored dataset so callers can never
// mutate stored rows.
func (m *Memory) GetDataset(ctx context.Context, id uuid.UUID) (*core.Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ds, ok := m.datasets[id]
	if !ok {
		return nil, core.ErrDatasetNotFound
	}

	out := core.Dataset{
		Columns: append([]string(nil), ds.Columns...),
		Rows:    make([]core.Row, len(ds.Rows)),
	}
	for i, row := range ds.Rows {
		cp := make(core.Row, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return &out, nil
}

// DeleteDataset removes the tenant's link and the underlying rows.
func (m *Memory) DeleteDataset(ctx context.Context, tenantID, datasetID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenants[tenantID]
	if !ok {
		return core.ErrTenantNotFound
	}

	for i, entry := range t.datasets {
		if entry.ID == datasetID {
			t.datasets = append(t.datasets[:i], t.datasets[i+1:]...)
			delete(m.datasets, datasetID)
			return nil
		}
	}
	return core.ErrDatasetNotFound
}

// CreditBalance adds amount to the tenant's balance.
func (m *Memory) CreditBalance(ctx context.Context, tenantID uuid.UUID, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenants[tenantID]
	if !ok {
		return core.ErrTenantNotFound
	}
	t.balance += amount
	return nil
}

// DebitBalance subtracts amount only if the balance covers it; the check
// and the update happen under one lock, mirroring the Postgres
// conditional UPDATE.
func (m *Memory) DebitBalance(ctx context.Context, tenantID uuid.UUID, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenants[tenantID]
	if !ok {
		return core.ErrTenantNotFound
	}
	if t.balance < amount {
		return core.ErrInsufficientFunds
	}
	t.balance -= amount
	return nil
}

// CreateCreditRequest files a pending credit request.
func (m *Memory) CreateCreditRequest(ctx context.Context, tenantID uuid.UUID, amount int) (*core.CreditRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tenants[tenantID]; !ok {
		return nil, core.ErrTenantNotFound
	}

	req := &core.CreditRequest{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Amount:    amount,
		Status:    core.CreditPending,
		CreatedAt: time.Now(),
	}
	m.requests[req.ID] = req

	out := *req
	return &out, nil
}

// GetCreditRequest loads a credit request by id.
func (m *Memory) GetCreditRequest(ctx context.Context, id uuid.UUID) (*core.CreditRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	req, ok := m.requests[id]
	if !ok {
		return nil, core.ErrRequestNotFound
	}
	out := *req
	return &out, nil
}

// ResolveCreditRequest transitions a pending request exactly once,
// crediting the balance on approval under the same lock.
func (m *Memory) ResolveCreditRequest(ctx context.Context, id uuid.UUID, approve bool) (*core.CreditRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return nil, core.ErrRequestNotFound
	}
	if req.Status != core.CreditPending {
		return nil, core.ErrAlreadyProcessed
	}

	now := time.Now()
	req.ResolvedAt = &now
	if approve {
		req.Status = core.CreditApproved
		if t, ok := m.tenants[req.TenantID]; ok {
			t.balance += req.Amount
		}
	} else {
		req.Status = core.CreditRejected
	}

	out := *req
	return &out, nil
}

// AppendLedgerEntry records one balance movement.
func (m *Memory) AppendLedgerEntry(ctx context.Context, entry core.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	m.ledger[entry.TenantID] = append(m.ledger[entry.TenantID], entry)
	return nil
}

// ListLedgerEntries returns a tenant's balance history, most recent first.
func (m *Memory) ListLedgerEntries(ctx context.Context, tenantID uuid.UUID) ([]core.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.ledger[tenantID]
	out := make([]core.LedgerEntry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out, nil
}
