// Package cli constructs the runsweep command-line interface, wiring the prune
// command, configuration loader, and structured logging, and mapping execution
// errors to process exit codes.
package cli
