// Package validator decides whether previously produced pages are still
// fresh.
//
// Validators are registered per page type tag as either a plain predicate or
// a context-aware one. A type with no validator is always valid. Validator
// failures are absorbed into a false result and never propagate to callers.
package validator
