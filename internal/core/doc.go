// Package core provides the business logic for the prospect database:
// tabular normalization, faceted filtering, and credit-gated export.
//
// This package contains all domain logic independent of any UI or transport
// layer. It can be used by web handlers, CLI tools, or tests without
// modification.
//
// # Pipeline
//
// An uploaded file flows through four stages:
//
//  1. Parsing ([ParseUpload]): CSV or XLSX bytes become ordered raw records.
//  2. Normalization ([Normalize]): raw records become a [Dataset] with a
//     fixed column order and string-only cells; recognized columns uploaded
//     under different casing are backfilled to their canonical names.
//  3. Facet generation ([BuildFacets]): each column is classified into a
//     [ColumnKind] once, and filterable columns produce ordered [Facet]
//     option sets (distinct tokens, or fixed numeric buckets).
//  4. Filtering and export ([ApplyFilter], [Service.Export]): a
//     [FilterSelection] narrows rows (AND across facets, OR within one),
//     and selected rows are rendered to a CSV or XLSX artifact, paid for
//     from the tenant's prepaid credit balance at one credit per row.
//
// # Credits
//
// Tenants top up their balance through a two-party workflow: the tenant
// files a [CreditRequest] and an operator approves or rejects it. A request
// resolves exactly once. Exports debit the balance atomically after the
// artifact is materialized, so a failed export never strands a debit.
//
// # Error Handling
//
// Domain failures are typed ([MissingColumnsError], [InsufficientCreditsError],
// sentinel errors such as [ErrEmptyDataset]) and mapped to user-friendly
// messages with support codes via [MapError]:
//
//   - FILE001-FILE099: file errors (size, type, encoding, empty, headers)
//   - VAL001-VAL099: validation errors (missing columns, bad amounts)
//   - EXP001-EXP099: export errors (no selection, credits, indices)
//   - CRD001-CRD099: credit request errors (not found, already resolved)
//   - DB001-DB099: storage errors (connections, timeouts, conflicts)
package core
