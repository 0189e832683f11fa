// Package toolkit groups tools into named collections with a uniform
// invoke-by-name entry point.
//
// A Toolkit shares one fingerprint cache across its tools and instruments
// invokes through the observe middleware. Blueprint offers declarative
// registration: package-level or constructor-time Tool calls accumulate
// pending registrations that Build materializes into a Toolkit.
package toolkit
