// Package store persists tenants, datasets, credit requests, and ledger
// entries. Two implementations of core.Store exist: Postgres for
// production and Memory for tests and local development.
//
// Invariants enforced here rather than in callers:
//
//   - a tenant balance never goes negative: debits are conditional
//     updates that fail with core.ErrInsufficientFunds instead;
//   - a credit request resolves exactly once: the pending -> resolved
//     transition is guarded on the current status;
//   - a tenant stored under the legacy single-dataset shape is lifted to
//     the dataset-list shape lazily on first read, idempotently.
package store

// LegacyDatasetTitle is the display title assigned when a legacy
// single-dataset tenant is lifted to the dataset-list shape.
const LegacyDatasetTitle = "My Dataset"
