// Package model holds the mixed-integer model data shared between the root
// orchestrator and its collaborators: column and row bounds, the constraint
// matrix in column- and row-wise form, variable type information, the column
// partition maintained during the search, and simplex basis snapshots.
//
// A Model is immutable once loaded; bound tightenings live in the domain
// propagation engine, never here. Auxiliary background tasks receive a
// Snapshot so they share no mutable state with the orchestrator.
package model
