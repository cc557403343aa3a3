// Package scheduler provides a bounded worker pool with future-based result
// delivery. The inventory service uses it to fan out discovery and storage
// work across a fleet without overwhelming remote hosts or the storage
// backend's connection pool.
//
// Work items receive a context derived from the pool's root context;
// closing the pool cancels that context but lets in-flight items finish, so
// a device's record and its history ledger are never left half-written.
package scheduler
