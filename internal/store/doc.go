// Package store implements the storage layer of the inventory service.
//
// One Adapter contract covers two physically different backends:
//
//	┌───────────────────────────────────────────────────────────────┐
//	│                        Adapter (contract)                     │
//	├───────────────────────────────┬───────────────────────────────┤
//	│          Embedded             │            Server             │
//	│      DuckDB, one file         │    Postgres, pooled conns     │
//	│   flat hardware columns       │  system_info JSONB + GIN      │
//	└───────────────────────────────┴───────────────────────────────┘
//
// # Tables
//
//	┌────────────────────┬──────────────────────────────────────────┐
//	│  Table             │  Purpose                                 │
//	├────────────────────┼──────────────────────────────────────────┤
//	│  devices           │  One row per (hostname, connection_ip);  │
//	│                    │  upserted in place, never deleted        │
//	│  discovery_history │  Append-only ledger, one row per         │
//	│                    │  non-duplicate discovery payload         │
//	└────────────────────┴──────────────────────────────────────────┘
//
// # Shape parity
//
// The Server backend folds the hardware snapshot into a system_info
// document on write and flattens it on read through FoldSystemInfo /
// FlattenSystemInfo. Because both directions share one function pair,
// ListDevices returns field-identical records regardless of backend.
//
// # History deduplication
//
// AppendHistory compares the payload's content hash against the single
// most recent event for the device. A payload that reverts to an earlier
// value after an intervening change is stored again; only consecutive
// duplicates are suppressed.
//
// # Failure semantics
//
// Backend connectivity failures surface as StorageUnavailable, never as a
// fabricated id. Unique violations, which upsert-by-natural-key should
// make impossible, surface as ConstraintViolation. A history payload that
// is not valid JSON is stored under the raw_text sentinel key instead of
// being dropped.
//
// The embedded engine is single-writer at the file level; writes that hit
// lock contention are retried with exponential backoff before failing.
package store
