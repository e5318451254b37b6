package githubapi

import (
	"errors"
	"fmt"
)

const (
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
	credentialsMissingMessageConstant       = "github credentials not configured"
)

// OperationName describes a named GitHub REST interaction supported by the client.
type OperationName string

// Operations issued against the GitHub REST API.
const (
	ListBranchesOperation      = OperationName("ListBranches")
	ListWorkflowRunsOperation  = OperationName("ListWorkflowRuns")
	DeleteWorkflowRunOperation = OperationName("DeleteWorkflowRun")
)

// ErrCredentialsNotConfigured indicates the client was constructed without a username or token.
var ErrCredentialsNotConfigured = errors.New(credentialsMissingMessageConstant)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps transport and API failures, including non-2xx responses.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}
