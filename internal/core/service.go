package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence surface the service depends on. Implemented by
// store.Postgres for production and store.Memory for tests.
//
// Balance mutations are atomic: DebitBalance is a conditional update that
// fails with ErrInsufficientFunds instead of driving the balance negative,
// so two racing exports cannot overdraw a tenant.
type Store interface {
	CreateTenant(ctx context.Context, name string, balance int) (*Tenant, error)
	GetTenant(ctx context.Context, id uuid.UUID) (*Tenant, error)

	AddDataset(ctx context.Context, tenantID uuid.UUID, title string, ds Dataset) (uuid.UUID, error)
	GetDataset(ctx context.Context, id uuid.UUID) (*Dataset, error)
	DeleteDataset(ctx context.Context, tenantID, datasetID uuid.UUID) error

	CreditBalance(ctx context.Context, tenantID uuid.UUID, amount int) error
	DebitBalance(ctx context.Context, tenantID uuid.UUID, amount int) error

	CreateCreditRequest(ctx context.Context, tenantID uuid.UUID, amount int) (*CreditRequest, error)
	GetCreditRequest(ctx context.Context, id uuid.UUID) (*CreditRequest, error)
	// ResolveCreditRequest transitions a pending request and, on approval,
	// credits the balance in the same transaction. A request that is no
	// longer pending fails with ErrAlreadyProcessed.
	ResolveCreditRequest(ctx context.Context, id uuid.UUID, approve bool) (*CreditRequest, error)

	AppendLedgerEntry(ctx context.Context, entry LedgerEntry) error
	ListLedgerEntries(ctx context.Context, tenantID uuid.UUID) ([]LedgerEntry, error)
}

// Service is the main entry point for ingest, facet, filter, export, and
// credit operations.
type Service struct {
	store   Store
	facets  FacetConfig
	limiter *IngestLimiter
}

// NewService creates a Service with the default facet configuration and
// ingest concurrency limits.
func NewService(store Store) *Service {
	return &Service{
		store:   store,
		facets:  DefaultFacetConfig(),
		limiter: NewIngestLimiter(DefaultMaxConcurrentIngests, DefaultMaxWaitTime),
	}
}

// NewServiceWith creates a Service with explicit facet configuration and
// ingest limiter, for callers that tune them from config.
func NewServiceWith(store Store, facets FacetConfig, limiter *IngestLimiter) *Service {
	if limiter == nil {
		limiter = NewIngestLimiter(DefaultMaxConcurrentIngests, DefaultMaxWaitTime)
	}
	return &Service{store: store, facets: facets, limiter: limiter}
}

// FacetConfig returns the facet configuration in use.
func (s *Service) FacetConfig() FacetConfig {
	return s.facets
}

// Ingest parses and normalizes an uploaded file and stores it as a new
// dataset for the tenant. The dataset keeps every column the uploader
// sent; recognized canonical columns are backfilled case-insensitively.
func (s *Service) Ingest(ctx context.Context, tenantID uuid.UUID, fileName, title string, data []byte) (*IngestResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	records, err := ParseUpload(fileName, data)
	if err != nil {
		return nil, err
	}

	ds, err := Normalize(records, KnownColumns)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(title) == "" {
		title = fileName
	}

	id, err := s.store.AddDataset(ctx, tenantID, title, ds)
	if err != nil {
		return nil, fmt.Errorf("store dataset: %w", err)
	}

	slog.Info("dataset ingested",
		"tenant_id", tenantID,
		"dataset_id", id,
		"file", fileName,
		"columns", len(ds.Columns),
		"rows", len(ds.Rows),
	)

	return &IngestResult{
		DatasetID: id,
		Title:     title,
		FileName:  fileName,
		Columns:   len(ds.Columns),
		Rows:      len(ds.Rows),
	}, nil
}

// Onboard creates a tenant from a strict-mode upload. The file must carry
// every mandatory onboarding column; anything beyond the mandatory set is
// dropped.
func (s *Service) Onboard(ctx context.Context, name, fileName string, data []byte) (*Tenant, *IngestResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, nil, err
	}
	defer s.limiter.Release()

	records, err := ParseUpload(fileName, data)
	if err != nil {
		return nil, nil, err
	}

	ds, err := NormalizeOnboarding(records, OnboardingColumns)
	if err != nil {
		return nil, nil, err
	}

	tenant, err := s.store.CreateTenant(ctx, name, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("create tenant: %w", err)
	}

	title := fileName
	id, err := s.store.AddDataset(ctx, tenant.ID, title, ds)
	if err != nil {
		return nil, nil, fmt.Errorf("store dataset: %w", err)
	}
	tenant.Datasets = append(tenant.Datasets, DatasetEntry{ID: id, Title: title, CreatedAt: time.Now()})

	slog.Info("tenant onboarded",
		"tenant_id", tenant.ID,
		"dataset_id", id,
		"rows", len(ds.Rows),
	)

	return tenant, &IngestResult{
		DatasetID: id,
		Title:     title,
		FileName:  fileName,
		Columns:   len(ds.Columns),
		Rows:      len(ds.Rows),
	}, nil
}

// Tenant returns a tenant with its dataset entries. Legacy single-dataset
// tenants are lifted to the dataset-list shape by the store on first read.
func (s *Service) Tenant(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	return s.store.GetTenant(ctx, id)
}

// Facets recomputes the facet set for a dataset. Facets are derived, not
// persisted; repeated calls on the same dataset yield identical output.
func (s *Service) Facets(ctx context.Context, datasetID uuid.UUID) ([]Facet, error) {
	ds, err := s.store.GetDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	return BuildFacets(s.facets, *ds), nil
}

// FilterResult pairs the matching rows with their original indices so a
// client can hand the indices straight to an export request.
type FilterResult struct {
	Indices []int `json:"indices"`
	Rows    []Row `json:"rows"`
}

// Filter applies a selection to a dataset.
func (s *Service) Filter(ctx context.Context, datasetID uuid.UUID, sel FilterSelection) (*FilterResult, error) {
	ds, err := s.store.GetDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	kinds := ResolveColumnKinds(s.facets, *ds)
	indices := FilterIndices(*ds, kinds, sel)
	rows := make([]Row, len(indices))
	for i, idx := range indices {
		rows[i] = ds.Rows[idx]
	}
	return &FilterResult{Indices: indices, Rows: rows}, nil
}

// DeleteDataset removes a dataset entry and its row storage.
func (s *Service) DeleteDataset(ctx context.Context, tenantID, datasetID uuid.UUID) error {
	return s.store.DeleteDataset(ctx, tenantID, datasetID)
}
