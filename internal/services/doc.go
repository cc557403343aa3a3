// Package services implements the business logic between the HTTP handlers
// and the storage layer.
//
// # Service Dependency Graph
//
//	Handlers (HTTP endpoints)
//	    │
//	    ▼
//	Services Layer
//	    ├── Inventory ──► store.Adapter, scheduler.Pool, normalize
//	    └── Migrator ───► two store.Adapters (source, target)
//
// # Inventory
//
// Inventory is the single long-lived entry point for discovery ingest:
// normalize the payload, upsert the device by its natural key, append the
// payload to the history ledger. BulkUpsert fans the same pipeline out
// across the worker pool with partial-failure semantics: every input gets
// a result slot in input order, and one bad payload never aborts the
// batch.
//
// # Migrator
//
// Migrator copies a whole fleet between backends and verifies the copy on
// a random sample. It is deliberately not transactional; re-running a
// migration is the recovery path, which upsert-by-natural-key makes safe.
package services
