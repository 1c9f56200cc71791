// Package config loads, normalizes, and validates clipforge configuration.
//
// Configuration is TOML with one section per pipeline concern. Load applies
// repository defaults first, then the file, then normalizes paths and
// validates every value eagerly so misconfiguration surfaces before any
// stage runs.
package config
