// Package ui provides helpers for formatting human-readable console output.
//
// The helpers translate pruning outcomes into concise report lines so that
// command output stays stable regardless of the configured log format.
package ui
