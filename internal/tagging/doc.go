// Package tagging implements the tagging-record engine: deterministic record
// identity, fee computation over net-new tags, tag-set reconciliation for the
// append, replace and remove actions, and the authorization rules gating
// record mutation.
//
// The package is pure. It performs no I/O besides asking an
// AuthorizationOracle whether a relayer may submit operations; persistence
// and notification belong to the caller.
package tagging
