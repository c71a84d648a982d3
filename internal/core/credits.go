package core

// credits.go implements the two-party credit acquisition workflow.
//
// A tenant files a CreditRequest for a positive amount; an operator
// approves (balance += amount) or rejects it. The pending -> resolved
// transition happens exactly once: the store performs the status update
// and the balance credit in one transaction, guarded on the request still
// being pending, so a second resolution attempt fails with
// ErrAlreadyProcessed no matter the decision.

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Decision is an operator's verdict on a credit request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// RequestCredits files a pending credit request for the tenant.
func (s *Service) RequestCredits(ctx context.Context, tenantID uuid.UUID, amount int) (*CreditRequest, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	// Reject requests for unknown tenants before persisting anything.
	if _, err := s.store.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	req, err := s.store.CreateCreditRequest(ctx, tenantID, amount)
	if err != nil {
		return nil, fmt.Errorf("create credit request: %w", err)
	}

	slog.Info("credit request filed",
		"request_id", req.ID,
		"tenant_id", tenantID,
		"amount", amount,
	)
	return req, nil
}

// ResolveCreditRequest applies an operator decision to a pending request.
// Approval credits the tenant's balance and records a ledger entry; the
// balance changes at most once per request.
func (s *Service) ResolveCreditRequest(ctx context.Context, requestID uuid.UUID, decision Decision) (*CreditRequest, error) {
	var approve bool
	switch decision {
	case DecisionApprove:
		approve = true
	case DecisionReject:
		approve = false
	default:
		return nil, fmt.Errorf("invalid decision %q: use approve or reject", decision)
	}

	req, err := s.store.ResolveCreditRequest(ctx, requestID, approve)
	if err != nil {
		return nil, err
	}

	if approve {
		if err := s.store.AppendLedgerEntry(ctx, LedgerEntry{
			TenantID: req.TenantID,
			Delta:    req.Amount,
			Reason:   "credit-request",
		}); err != nil {
			slog.Warn("ledger entry not recorded", "tenant_id", req.TenantID, "error", err)
		}
	}

	slog.Info("credit request resolved",
		"request_id", req.ID,
		"tenant_id", req.TenantID,
		"status", req.Status,
		"amount", req.Amount,
	)
	return req, nil
}

// LedgerEntries returns the balance movement history for a tenant, most
// recent first.
func (s *Service) LedgerEntries(ctx context.Context, tenantID uuid.UUID) ([]LedgerEntry, error) {
	return s.store.ListLedgerEntries(ctx, tenantID)
}
