// Package storage provides the optional persistence layer behind the engine.
//
// It currently supports:
//   - Delivery audit appends (per-recipient outcomes and job summaries)
//   - Notifier dedup state (so dedup survives restarts)
//
// The progress ledger is NOT stored here: it has its own stricter durability
// contract (see package ledger).
package storage
