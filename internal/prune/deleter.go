package prune

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/runsweep/internal/githubapi"
)

const (
	deleteFailedLogMessageConstant   = "failed to delete workflow run"
	deletedRunLogMessageConstant     = "deleted workflow run"
	deleteSkippedLogMessageConstant  = "workflow run deletion not scheduled"
	logFieldRunIdentifierConstant    = "run_id"
	logFieldRepositoryConstant       = "repository"
	defaultDeleteConcurrencyConstant = 1
)

// RunDeleter removes a single workflow run.
type RunDeleter interface {
	DeleteWorkflowRun(executionContext context.Context, repository githubapi.Repository, runIdentifier int64) error
}

// DeletionOutcome records the result of one delete request. Skipped marks a run
// whose delete was never issued because the context ended first.
type DeletionOutcome struct {
	RunID   int64
	Error   error
	Skipped bool
}

// Deleter issues delete requests through a bounded worker pool.
type Deleter struct {
	runDeleter  RunDeleter
	logger      *zap.Logger
	concurrency int
}

// NewDeleter constructs a Deleter; concurrency below one runs deletes sequentially.
func NewDeleter(runDeleter RunDeleter, logger *zap.Logger, concurrency int) (*Deleter, error) {
	if runDeleter == nil {
		return nil, ErrRunDeleterNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = defaultDeleteConcurrencyConstant
	}
	return &Deleter{runDeleter: runDeleter, logger: logger, concurrency: concurrency}, nil
}

// Delete removes every run and returns one outcome per identifier in input order.
//
// Failures are logged as warnings and do not stop later deletes. Once the context
// is cancelled no further deletes are issued; the remaining outcomes are marked
// Skipped and carry the context error.
func (deleter *Deleter) Delete(executionContext context.Context, repository githubapi.Repository, runIdentifiers []int64) []DeletionOutcome {
	outcomes := make([]DeletionOutcome, len(runIdentifiers))

	var workerGroup errgroup.Group
	workerGroup.SetLimit(deleter.concurrency)

	for index, runIdentifier := range runIdentifiers {
		outcomes[index].RunID = runIdentifier
		if contextError := executionContext.Err(); contextError != nil {
			outcomes[index].Error = contextError
			outcomes[index].Skipped = true
			deleter.logger.Debug(deleteSkippedLogMessageConstant, zap.Int64(logFieldRunIdentifierConstant, runIdentifier), zap.Error(contextError))
			continue
		}

		workerGroup.Go(func() error {
			if contextError := executionContext.Err(); contextError != nil {
				outcomes[index].Error = contextError
				outcomes[index].Skipped = true
				deleter.logger.Debug(deleteSkippedLogMessageConstant, zap.Int64(logFieldRunIdentifierConstant, runIdentifier), zap.Error(contextError))
				return nil
			}

			deleteError := deleter.runDeleter.DeleteWorkflowRun(executionContext, repository, runIdentifier)
			outcomes[index].Error = deleteError
			if deleteError != nil {
				deleter.logger.Warn(
					deleteFailedLogMessageConstant,
					zap.String(logFieldRepositoryConstant, repository.String()),
					zap.Int64(logFieldRunIdentifierConstant, runIdentifier),
					zap.Error(deleteError),
				)
				return nil
			}
			deleter.logger.Debug(
				deletedRunLogMessageConstant,
				zap.String(logFieldRepositoryConstant, repository.String()),
				zap.Int64(logFieldRunIdentifierConstant, runIdentifier),
			)
			return nil
		})
	}

	_ = workerGroup.Wait()

	return outcomes
}
