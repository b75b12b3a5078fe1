// Package batch fans deployments out across multiple named targets,
// sequentially or with one goroutine per target, and aggregates the
// per-target outcomes. Failure markers are written per target for later
// inspection; success removes any stale marker.
package batch
