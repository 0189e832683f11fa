// Package store provides durable address-keyed storage for page records.
//
// It defines the Store interface consumed by the router, an in-memory
// implementation for tests and ephemeral use, and a SQLite-backed
// implementation for persistence across processes.
package store
