// Package config loads the bluetide YAML configuration: a defaults block
// merged under a map of named targets. Resolve returns a validated
// types.Target with derived defaults (container name, health path and
// timeout, alternate port) applied.
package config
