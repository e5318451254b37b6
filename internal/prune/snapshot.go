package prune

import (
	"encoding/json"
	"os"

	gh "github.com/google/go-github/v82/github"
)

const (
	snapshotIndentConstant          = "  "
	snapshotFilePermissionsConstant = 0o600
)

// LoadRunsSnapshot reads workflow runs previously written by SaveRunsSnapshot.
func LoadRunsSnapshot(snapshotPath string) ([]*gh.WorkflowRun, error) {
	snapshotData, readError := os.ReadFile(snapshotPath)
	if readError != nil {
		return nil, SnapshotError{Operation: snapshotReadOperationConstant, Path: snapshotPath, Cause: readError}
	}

	var workflowRuns []*gh.WorkflowRun
	if decodeError := json.Unmarshal(snapshotData, &workflowRuns); decodeError != nil {
		return nil, SnapshotError{Operation: snapshotReadOperationConstant, Path: snapshotPath, Cause: decodeError}
	}

	return workflowRuns, nil
}

// SaveRunsSnapshot writes workflow runs as indented JSON using GitHub field names.
func SaveRunsSnapshot(snapshotPath string, workflowRuns []*gh.WorkflowRun) error {
	if workflowRuns == nil {
		workflowRuns = []*gh.WorkflowRun{}
	}

	snapshotData, encodeError := json.MarshalIndent(workflowRuns, "", snapshotIndentConstant)
	if encodeError != nil {
		return SnapshotError{Operation: snapshotWriteOperationConstant, Path: snapshotPath, Cause: encodeError}
	}

	if writeError := os.WriteFile(snapshotPath, append(snapshotData, '\n'), snapshotFilePermissionsConstant); writeError != nil {
		return SnapshotError{Operation: snapshotWriteOperationConstant, Path: snapshotPath, Cause: writeError}
	}

	return nil
}
