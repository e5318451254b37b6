package cli

import (
	"errors"

	"github.com/temirov/runsweep/internal/githubapi"
	"github.com/temirov/runsweep/internal/prune"
)

// Process exit codes reported by runsweep.
const (
	ExitCodeSuccess       = 0
	ExitCodeConfiguration = 1
	ExitCodeTransport     = 2
)

// ExitCode maps an execution error to the process exit code.
//
// Failed GitHub requests and snapshot I/O are transport failures. Everything else,
// including rejected flags and configuration, is a configuration failure.
func ExitCode(executionError error) int {
	if executionError == nil {
		return ExitCodeSuccess
	}

	var operationError githubapi.OperationError
	if errors.As(executionError, &operationError) {
		return ExitCodeTransport
	}

	var snapshotError prune.SnapshotError
	if errors.As(executionError, &snapshotError) {
		return ExitCodeTransport
	}

	return ExitCodeConfiguration
}
