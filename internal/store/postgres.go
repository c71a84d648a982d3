package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prospectdb/prospectdb/internal/core"
)

//go:embed schema.sql
var schemaSQL string

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Postgres implements core.Store on a pgx connection pool. Dataset
// payloads (column order and rows) are stored as JSONB.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store over the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema applies the embedded schema. Every statement is
// IF NOT EXISTS, so repeated calls are harmless.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// CreateTenant inserts a tenant with the given starting balance.
func (p *Postgres) CreateTenant(ctx context.Context, name string, balance int) (*core.Tenant, error) {
	id := uuid.New()
	_, err := p.pool.Exec(ctx,
		`INSERT INTO tenants (id, name, balance) VALUES ($1, $2, $3)`,
		id, name, balance,
	)
	if err != nil {
		return nil, fmt.Errorf("insert tenant: %w", err)
	}
	return &core.Tenant{ID: id, Name: name, Balance: balance}, nil
}

// GetTenant loads a tenant with its dataset entries in creation order.
// A tenant still carrying a legacy single-dataset reference and no entries
// is lifted into the dataset-list shape before being returned.
func (p *Postgres) GetTenant(ctx context.Context, id uuid.UUID) (*core.Tenant, error) {
	tenant, legacy, err := p.loadTenant(ctx, p.pool, id)
	if err != nil {
		return nil, err
	}

	if legacy != nil && len(tenant.Datasets) == 0 {
		if err := p.promoteLegacyDataset(ctx, id, *legacy); err != nil {
			return nil, err
		}
		tenant, _, err = p.loadTenant(ctx, p.pool, id)
		if err != nil {
			return nil, err
		}
	}

	return tenant, nil
}

func (p *Postgres) loadTenant(ctx context.Context, db DBTX, id uuid.UUID) (*core.Tenant, *uuid.UUID, error) {
	tenant := &core.Tenant{ID: id}
	var legacy *uuid.UUID
	err := db.QueryRow(ctx,
		`SELECT name, balance, legacy_dataset_id FROM tenants WHERE id = $1`,
		id,
	).Scan(&tenant.Name, &tenant.Balance, &legacy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, core.ErrTenantNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("select tenant: %w", err)
	}

	rows, err := db.Query(ctx,
		`SELECT dataset_id, title, created_at
		 FROM tenant_datasets
		 WHERE tenant_id = $1
		 ORDER BY created_at, dataset_id`,
		id,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("select tenant datasets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry core.DatasetEntry
		if err := rows.Scan(&entry.ID, &entry.Title, &entry.CreatedAt); err != nil {
			return nil, nil, fmt.Errorf("scan dataset entry: %w", err)
		}
		tenant.Datasets = append(tenant.Datasets, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate dataset entries: %w", err)
	}

	return tenant, legacy, nil
}

// promoteLegacyDataset lifts a legacy single-dataset tenant into the
// dataset-list shape: one join row with the default title, legacy pointer
// cleared. ON CONFLICT keeps the operation idempotent under races.
func (p *Postgres) promoteLegacyDataset(ctx context.Context, tenantID, datasetID uuid.UUID) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin legacy promotion: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO tenant_datasets (tenant_id, dataset_id, title)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (tenant_id, dataset_id) DO NOTHING`,
		tenantID, datasetID, LegacyDatasetTitle,
	)
	if err != nil {
		return fmt.Errorf("insert promoted dataset: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE tenants SET legacy_dataset_id = NULL WHERE id = $1`,
		tenantID,
	)
	if err != nil {
		return fmt.Errorf("clear legacy reference: %w", err)
	}

	return tx.Commit(ctx)
}

// AddDataset stores a dataset and links it to the tenant.
func (p *Postgres) AddDataset(ctx context.Context, tenantID uuid.UUID, title string, ds core.Dataset) (uuid.UUID, error) {
	columns, err := json.Marshal(ds.Columns)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal columns: %w", err)
	}
	rows, err := json.Marshal(ds.Rows)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal rows: %w", err)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin add dataset: %w", err)
	}
	defer tx.Rollback(ctx)

	id := uuid.New()
	if _, err := tx.Exec(ctx,
		`INSERT INTO datasets (id, columns, rows) VALUES ($1, $2, $3)`,
		id, columns, rows,
	); err != nil {
		return uuid.Nil, fmt.Errorf("insert dataset: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO tenant_datasets (tenant_id, dataset_id, title) VALUES ($1, $2, $3)`,
		tenantID, id, title,
	); err != nil {
		return uuid.Nil, fmt.Errorf("link dataset: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit add dataset: %w", err)
	}
	return id, nil
}

// GetDataset loads a dataset's column order and rows.
func (p *Postgres) GetDataset(ctx context.Context, id uuid.UUID) (*core.Dataset, error) {
	var columns, rows []byte
	err := p.pool.QueryRow(ctx,
		`SELECT columns, rows FROM datasets WHERE id = $1`,
		id,
	).Scan(&columns, &rows)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrDatasetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select dataset: %w", err)
	}

	var ds core.Dataset
	if err := json.Unmarshal(columns, &ds.Columns); err != nil {
		return nil, fmt.Errorf("unmarshal columns: %w", err)
	}
	if err := json.Unmarshal(rows, &ds.Rows); err != nil {
		return nil, fmt.Errorf("unmarshal rows: %w", err)
	}
	return &ds, nil
}

// DeleteDataset removes the tenant's link and the underlying row storage.
func (p *Postgres) DeleteDataset(ctx context.Context, tenantID, datasetID uuid.UUID) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM tenant_datasets WHERE tenant_id = $1 AND dataset_id = $2`,
		tenantID, datasetID,
	)
	if err != nil {
		return fmt.Errorf("unlink dataset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrDatasetNotFound
	}

	if _, err := p.pool.Exec(ctx,
		`DELETE FROM datasets WHERE id = $1`,
		datasetID,
	); err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	return nil
}

// CreditBalance adds amount to the tenant's balance.
func (p *Postgres) CreditBalance(ctx context.Context, tenantID uuid.UUID, amount int) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE tenants SET balance = balance + $2 WHERE id = $1`,
		tenantID, amount,
	)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrTenantNotFound
	}
	return nil
}

// DebitBalance subtracts amount from the tenant's balance, but only if
// the balance covers it. The WHERE clause makes the check-then-debit a
// single atomic statement, so concurrent exports cannot overdraw.
func (p *Postgres) DebitBalance(ctx context.Context, tenantID uuid.UUID, amount int) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE tenants SET balance = balance - $2 WHERE id = $1 AND balance >= $2`,
		tenantID, amount,
	)
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := p.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1)`,
			tenantID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check tenant: %w", err)
		}
		if !exists {
			return core.ErrTenantNotFound
		}
		return core.ErrInsufficientFunds
	}
	return nil
}

// CreateCreditRequest files a pending credit request.
func (p *Postgres) CreateCreditRequest(ctx context.Context, tenantID uuid.UUID, amount int) (*core.CreditRequest, error) {
	req := &core.CreditRequest{
		ID:       uuid.New(),
		TenantID: tenantID,
		Amount:   amount,
		Status:   core.CreditPending,
	}
	err := p.pool.QueryRow(ctx,
		`INSERT INTO credit_requests (id, tenant_id, amount)
		 VALUES ($1, $2, $3)
		 RETURNING created_at`,
		req.ID, tenantID, amount,
	).Scan(&req.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert credit request: %w", err)
	}
	return req, nil
}

// GetCreditRequest loads a credit request by id.
func (p *Postgres) GetCreditRequest(ctx context.Context, id uuid.UUID) (*core.CreditRequest, error) {
	req := &core.CreditRequest{ID: id}
	err := p.pool.QueryRow(ctx,
		`SELECT tenant_id, amount, status, created_at, resolved_at
		 FROM credit_requests WHERE id = $1`,
		id,
	).Scan(&req.TenantID, &req.Amount, &req.Status, &req.CreatedAt, &req.ResolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select credit request: %w", err)
	}
	return req, nil
}

// ResolveCreditRequest transitions a pending request and, on approval,
// credits the tenant balance in the same transaction. The status guard in
// the UPDATE ensures a request resolves at most once.
func (p *Postgres) ResolveCreditRequest(ctx context.Context, id uuid.UUID, approve bool) (*core.CreditRequest, error) {
	status := core.CreditRejected
	if approve {
		status = core.CreditApproved
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin resolve: %w", err)
	}
	defer tx.Rollback(ctx)

	req := &core.CreditRequest{ID: id, Status: status}
	now := time.Now()
	err = tx.QueryRow(ctx,
		`UPDATE credit_requests
		 SET status = $2, resolved_at = $3
		 WHERE id = $1 AND status = 'pending'
		 RETURNING tenant_id, amount, created_at`,
		id, status, now,
	).Scan(&req.TenantID, &req.Amount, &req.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish an unknown request from an already-resolved one.
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM credit_requests WHERE id = $1)`,
			id,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check credit request: %w", err)
		}
		if !exists {
			return nil, core.ErrRequestNotFound
		}
		return nil, core.ErrAlreadyProcessed
	}
	if err != nil {
		return nil, fmt.Errorf("update credit request: %w", err)
	}
	req.ResolvedAt = &now

	if approve {
		if _, err := tx.Exec(ctx,
			`UPDATE tenants SET balance = balance + $2 WHERE id = $1`,
			req.TenantID, req.Amount,
		); err != nil {
			return nil, fmt.Errorf("credit balance: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit resolve: %w", err)
	}
	return req, nil
}

// AppendLedgerEntry records one balance movement.
func (p *Postgres) AppendLedgerEntry(ctx context.Context, entry core.LedgerEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if _, err := p.pool.Exec(ctx,
		`INSERT INTO ledger_entries (id, tenant_id, delta, reason, row_count)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.TenantID, entry.Delta, entry.Reason, entry.Rows,
	); err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// ListLedgerEntries returns a tenant's balance history, most recent first.
func (p *Postgres) ListLedgerEntries(ctx context.Context, tenantID uuid.UUID) ([]core.LedgerEntry, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, tenant_id, delta, reason, row_count, created_at
		 FROM ledger_entries
		 WHERE tenant_id = $1
		 ORDER BY created_at DESC, id`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("select ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []core.LedgerEntry
	for rows.Next() {
		var e core.LedgerEntry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Delta, &e.Reason, &e.Rows, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
