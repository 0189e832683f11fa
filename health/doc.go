// Package health reports on the liveness of the system's backing
// components, chiefly the page store.
//
// Checkers run individually or through an Aggregator that fans them out
// concurrently under one deadline and rolls their statuses up into a single
// worst-wins verdict.
package health
