package core

import (
	"time"

	"github.com/google/uuid"
)

// Row is one record of a dataset, mapping column name to string value.
// Every row of a normalized dataset carries a value (possibly empty) for
// every name in the dataset's column order.
type Row map[string]string

// Dataset is one uploaded tabular file after normalization: a fixed,
// ordered column list and string-valued rows. Datasets are immutable once
// stored; a re-upload creates a new Dataset.
type Dataset struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// RawRecord is one loosely-typed record from an uploaded file before
// normalization. Keys preserves the source column order, which Go maps
// cannot.
type RawRecord struct {
	Keys   []string
	Values map[string]string
}

// ColumnKind classifies a dataset column for facet generation and filter
// matching. Kinds are resolved once per column at facet-build time instead
// of re-running name heuristics inside the filter loop.
type ColumnKind int

const (
	// KindCategorical matches by case-insensitive substring containment.
	KindCategorical ColumnKind = iota

	// KindMultiValue is a comma-separated list column (e.g. technology
	// stacks); facet options are the union of individual tokens.
	KindMultiValue

	// KindEmployeeBucket classifies cells into fixed head-count tiers.
	KindEmployeeBucket

	// KindRevenueBucket classifies cells into fixed revenue tiers.
	KindRevenueBucket

	// KindExactMatch matches by raw cell equality (e.g. country columns).
	KindExactMatch

	// KindIdentifier marks id/url/contact-style columns that never become
	// facets.
	KindIdentifier
)

// String returns a short name for the kind, used in logs.
func (k ColumnKind) String() string {
	switch k {
	case KindCategorical:
		return "categorical"
	case KindMultiValue:
		return "multi-value"
	case KindEmployeeBucket:
		return "employee-bucket"
	case KindRevenueBucket:
		return "revenue-bucket"
	case KindExactMatch:
		return "exact-match"
	case KindIdentifier:
		return "identifier"
	default:
		return "unknown"
	}
}

// FacetOption is one selectable value of a facet.
type FacetOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Facet is a derived, filterable dimension over one dataset column.
// Facets are recomputed from the dataset on demand, never persisted.
type Facet struct {
	Title       string        `json:"title"`
	Options     []FacetOption `json:"options"`
	MultiSelect bool          `json:"multiSelect"`
}

// FilterSelection maps facet title to the set of selected option values.
// An absent key or an empty value list means no constraint on that facet.
type FilterSelection map[string][]string

// ExportFormat selects the artifact rendering for an export.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

// ExportArtifact is the materialized result of an export: the rendered
// bytes plus the headers the transport layer needs to deliver them.
type ExportArtifact struct {
	FileName    string
	ContentType string
	Data        []byte
	Rows        int
}

// DatasetEntry is one dataset owned by a tenant, in display order.
type DatasetEntry struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// Tenant is the account that owns datasets and a prepaid credit balance.
// The balance is non-negative by invariant; debits are conditional and
// never drive it below zero.
type Tenant struct {
	ID       uuid.UUID      `json:"id"`
	Name     string         `json:"name"`
	Balance  int            `json:"balance"`
	Datasets []DatasetEntry `json:"datasets"`
}

// CreditStatus is the lifecycle state of a credit request.
type CreditStatus string

const (
	CreditPending  CreditStatus = "pending"
	CreditApproved CreditStatus = "approved"
	CreditRejected CreditStatus = "rejected"
)

// CreditRequest is a tenant's application for additional credits. It
// transitions from pending to approved (balance += amount) or rejected
// exactly once.
type CreditRequest struct {
	ID         uuid.UUID    `json:"id"`
	TenantID   uuid.UUID    `json:"tenantId"`
	Amount     int          `json:"amount"`
	Status     CreditStatus `json:"status"`
	CreatedAt  time.Time    `json:"createdAt"`
	ResolvedAt *time.Time   `json:"resolvedAt,omitempty"`
}

// LedgerEntry records one balance movement for audit purposes.
type LedgerEntry struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenantId"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	Rows      int       `json:"rows,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// IngestResult summarizes a successful upload.
type IngestResult struct {
	DatasetID uuid.UUID `json:"datasetId"`
	Title     string    `json:"title"`
	FileName  string    `json:"filename"`
	Columns   int       `json:"columns"`
	Rows      int       `json:"rows"`
}
