package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// ============================================================================
// Error Mapping Tests
// ============================================================================

func TestMapErrorKnownPatterns(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"file too large", errors.New("file too large: exceeds 100MB limit"), "FILE001"},
		{"unsupported file type", &UnsupportedFileTypeError{Ext: ".pdf"}, "FILE002"},
		{"invalid csv", errors.New("invalid csv: record on line 2"), "FILE003"},
		{"empty dataset", ErrEmptyDataset, "FILE005"},
		{"no headers", ErrNoHeaders, "FILE006"},
		{"missing columns", &MissingColumnsError{Missing: []string{"Email"}}, "VAL001"},
		{"invalid amount", ErrInvalidAmount, "VAL002"},
		{"no selection", ErrNoSelection, "EXP001"},
		{"insufficient credits", &InsufficientCreditsError{Have: 1, Need: 5}, "EXP002"},
		{"row out of range", &RowIndexError{Index: 9, Rows: 3}, "EXP003"},
		{"unsupported format", &UnsupportedFormatError{Format: "pdf"}, "EXP004"},
		{"already processed", ErrAlreadyProcessed, "CRD001"},
		{"request not found", ErrRequestNotFound, "CRD002"},
		{"tenant not found", ErrTenantNotFound, "TNT001"},
		{"dataset not found", ErrDatasetNotFound, "DS001"},
		{"db connection refused", errors.New("dial tcp: connection refused"), "DB001"},
		{"too many uploads", ErrTooManyIngests, "UPL001"},
		{"wrapped error keeps its code", fmt.Errorf("store dataset: %w", ErrTenantNotFound), "TNT001"},
		{"case insensitive", errors.New("INSUFFICIENT CREDITS"), "EXP002"},
		{"unknown falls back", errors.New("something inexplicable"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapError(tt.err).Code; got != tt.wantCode {
				t.Errorf("MapError(%v).Code = %s, want %s", tt.err, got, tt.wantCode)
			}
		})
	}
}

func TestMapErrorNil(t *testing.T) {
	if got := MapError(nil); got != (UserMessage{}) {
		t.Errorf("MapError(nil) = %+v, want zero value", got)
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrNoSelection)
	if !strings.Contains(got, "EXP001") {
		t.Errorf("FormatUserError = %q, want the support code embedded", got)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	if !IsUserFacing(ErrInsufficientFunds) {
		t.Error("known pattern should be user facing")
	}
	if IsUserFacing(errors.New("nil pointer dereference")) {
		t.Error("unknown internal error must not be user facing")
	}
	if IsUserFacing(nil) {
		t.Error("nil is not user facing")
	}
}
