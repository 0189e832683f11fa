// Package router dispatches page addresses to registered producer functions,
// layering durable caching and validity checks over production.
//
// A producer is registered per type tag, optionally with aliases. Resolution
// follows one protocol on both the blocking and context-aware entry points:
// consult the store, check the cached page against the validator registry,
// and fall through to the producer on a miss or a stale page. Bulk fetches
// fan out concurrently and preserve input order.
package router
