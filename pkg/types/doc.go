// Package types contains the shared data structures used across bluetide:
// deployment targets, bind mounts and per-invocation attempt records.
//
// The package is intentionally dependency-free so that every other package
// can import it without cycles.
package types
