// Package tool wraps retrieval functions with argument-fingerprint caching,
// cursor pagination and token-budget result shaping.
//
// A Tool exposes two call paths with one caching contract. Call executes the
// wrapped function and returns raw pages, never paginating. Invoke accepts a
// string or an argument map, injects a pagination cursor when configured,
// and serializes the result into the envelope an agent layer consumes.
// Identical logical arguments hit the same cache entry on either path.
package tool
