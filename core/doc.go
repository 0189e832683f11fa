// Package core assembles the page resolution system behind one context
// object: the store, the validator registry, the router and any registered
// toolkits, rooted in a single namespace.
//
// A ServerContext is constructed once and passed by reference to every
// collaborator. For programs that want a process-wide instance, SetGlobal
// installs one guarded context; installing a second is an error rather than
// a silent replacement.
package core
