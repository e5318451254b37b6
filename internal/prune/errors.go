package prune

import (
	"errors"
	"fmt"
)

const (
	configurationErrorTemplateConstant  = "invalid %s: %s"
	snapshotErrorTemplateConstant       = "%s runs snapshot %s: %v"
	branchListerMissingMessageConstant  = "branch lister not configured"
	runListerMissingMessageConstant     = "run lister not configured"
	runDeleterMissingMessageConstant    = "run deleter not configured"
	snapshotReadOperationConstant       = "read"
	snapshotWriteOperationConstant      = "write"
	pageSizeOutOfRangeMessageConstant   = "must be between 1 and 100"
	concurrencyPositiveMessageConstant  = "must be at least 1"
	keepNonNegativeMessageConstant      = "must not be negative"
	requiredValueMessageConstant        = "value required"
	timeoutNonNegativeMessageConstant   = "must not be negative"
	repositoryFieldNameConstant         = "repository"
	credentialsFieldNameConstant        = "credentials"
	keepFieldNameConstant               = "commits"
	pageSizeFieldNameConstant           = "page_size"
	concurrencyFieldNameConstant        = "concurrency"
	timeoutFieldNameConstant            = "timeout"
	apiBaseURLFieldNameConstant         = "api_url"
	snapshotPathConflictMessageConstant = "runs input and output must differ"
	snapshotPathFieldNameConstant       = "runs_output"
)

// ErrBranchListerNotConfigured indicates the branch lister dependency was missing.
var ErrBranchListerNotConfigured = errors.New(branchListerMissingMessageConstant)

// ErrRunListerNotConfigured indicates the run lister dependency was missing.
var ErrRunListerNotConfigured = errors.New(runListerMissingMessageConstant)

// ErrRunDeleterNotConfigured indicates the run deleter dependency was missing.
var ErrRunDeleterNotConfigured = errors.New(runDeleterMissingMessageConstant)

// ConfigurationError reports a user-supplied value rejected before any network call.
type ConfigurationError struct {
	Field   string
	Message string
	Cause   error
}

// Error describes the rejected value.
func (configurationError ConfigurationError) Error() string {
	if configurationError.Cause != nil {
		return fmt.Sprintf(configurationErrorTemplateConstant, configurationError.Field, configurationError.Cause.Error())
	}
	return fmt.Sprintf(configurationErrorTemplateConstant, configurationError.Field, configurationError.Message)
}

// Unwrap exposes the underlying cause.
func (configurationError ConfigurationError) Unwrap() error {
	return configurationError.Cause
}

// SnapshotError reports a failure reading or writing the runs snapshot file.
type SnapshotError struct {
	Operation string
	Path      string
	Cause     error
}

// Error describes the snapshot failure.
func (snapshotError SnapshotError) Error() string {
	return fmt.Sprintf(snapshotErrorTemplateConstant, snapshotError.Operation, snapshotError.Path, snapshotError.Cause)
}

// Unwrap exposes the underlying cause.
func (snapshotError SnapshotError) Unwrap() error {
	return snapshotError.Cause
}
