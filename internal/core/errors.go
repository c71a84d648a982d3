package core

// errors.go defines the typed domain errors returned by the core pipeline.
//
// Validation errors are recovered locally and returned to the caller as
// typed failures; unexpected failures (storage unavailable) propagate
// unwrapped and are surfaced as a generic internal error by the web layer.
// Nothing in this package retries automatically.

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyDataset is returned when an uploaded file has zero data rows.
	ErrEmptyDataset = errors.New("empty dataset: file contains no data rows")

	// ErrNoHeaders is returned when the first row of an upload has no
	// column names.
	ErrNoHeaders = errors.New("no headers: first row contains no column names")

	// ErrNoSelection is returned when an export names zero rows. The
	// ledger is never touched for such requests.
	ErrNoSelection = errors.New("no rows selected for export")

	// ErrAlreadyProcessed is returned when resolving a credit request
	// that was already approved or rejected.
	ErrAlreadyProcessed = errors.New("credit request already processed")

	// ErrInsufficientFunds is the storage-level sentinel for a debit that
	// would drive a balance negative. Callers usually see the richer
	// *InsufficientCreditsError, which matches this sentinel via errors.Is.
	ErrInsufficientFunds = errors.New("insufficient credits")

	// ErrTenantNotFound is returned for an unknown tenant id.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrDatasetNotFound is returned for an unknown dataset id.
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrRequestNotFound is returned for an unknown credit request id.
	ErrRequestNotFound = errors.New("credit request not found")

	// ErrInvalidAmount is returned when a credit request amount is not a
	// positive integer.
	ErrInvalidAmount = errors.New("credit amount must be a positive integer")
)

// MissingColumnsError reports every mandatory column absent from an
// onboarding upload, so the uploader can fix the file in one pass.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// InsufficientCreditsError reports a rejected export debit: the tenant has
// Have credits but the selection costs Need.
type InsufficientCreditsError struct {
	Have int
	Need int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: have %d, need %d", e.Have, e.Need)
}

// Is makes the typed error match the ErrInsufficientFunds sentinel.
func (e *InsufficientCreditsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// UnsupportedFileTypeError reports an upload with an extension the ingest
// pipeline does not accept.
type UnsupportedFileTypeError struct {
	Ext string
}

func (e *UnsupportedFileTypeError) Error() string {
	return fmt.Sprintf("unsupported file type %q: only .csv and .xlsx files are accepted", e.Ext)
}

// UnsupportedFormatError reports an export request with an unknown format.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported export format %q: use csv or xlsx", e.Format)
}

// RowIndexError reports an export selection index outside the tenant's
// concatenated row range.
type RowIndexError struct {
	Index int
	Rows  int
}

func (e *RowIndexError) Error() string {
	return fmt.Sprintf("row index %d out of range (%d rows available)", e.Index, e.Rows)
}
