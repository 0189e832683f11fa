// Package cache provides the argument-fingerprint result cache used by
// retrieval tools.
//
// Keys are deterministic SHA-256 fingerprints of a tool's identity plus its
// resolved arguments, insensitive to argument ordering. Entries carry their
// creation timestamp; freshness (TTL, custom invalidation) is judged by the
// tool that owns the entry, so entries without a TTL never expire on their
// own.
package cache
