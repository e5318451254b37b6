package prune

import (
	"context"
	"slices"

	gh "github.com/google/go-github/v82/github"
	"go.uber.org/zap"

	"github.com/temirov/runsweep/internal/githubapi"
	"github.com/temirov/runsweep/internal/runs"
)

const (
	branchesResolvedLogMessageConstant = "active branches resolved"
	runCountLogMessageConstant         = "workflow run count"
	fetchingPageLogMessageConstant     = "fetching workflow run page"
	snapshotLoadedLogMessageConstant   = "loaded workflow runs snapshot"
	snapshotSavedLogMessageConstant    = "saved workflow runs snapshot"
	selectionLogMessageConstant        = "workflow runs selected for deletion"
	pruneCompletedLogMessageConstant   = "workflow run pruning completed"
	logFieldBranchesConstant           = "branches"
	logFieldTotalCountConstant         = "total_count"
	logFieldPageSizeConstant           = "per_page"
	logFieldPagesConstant              = "pages"
	logFieldPageConstant               = "page"
	logFieldPathConstant               = "path"
	logFieldRunCountConstant           = "runs"
	logFieldBucketCountConstant        = "buckets"
	logFieldSelectedCountConstant      = "selected"
	logFieldDeletedCountConstant       = "deleted"
	logFieldFailedCountConstant        = "failed"
	logFieldSkippedCountConstant       = "skipped"
	logFieldKeepConstant               = "keep"
	logFieldDryRunConstant             = "dry_run"
)

// BranchLister lists the branch names of a repository.
type BranchLister interface {
	ListBranches(executionContext context.Context, repository githubapi.Repository) ([]string, error)
}

// RunLister lists one page of a repository's workflow runs.
type RunLister interface {
	ListWorkflowRuns(executionContext context.Context, repository githubapi.Repository, page int, pageSize int) (githubapi.WorkflowRunPage, error)
}

// Dependencies enumerates external collaborators required for pruning.
type Dependencies struct {
	BranchLister BranchLister
	RunLister    RunLister
	RunDeleter   RunDeleter
	Logger       *zap.Logger
}

// Options configures a single pruning pass.
type Options struct {
	Repository githubapi.Repository
	// Keep is the number of newest retention buckets retained per active branch.
	Keep int
	// Branches replaces the branch listing request when non-empty.
	Branches          []string
	PageSize          int
	DeleteConcurrency int
	DryRun            bool
	RunsInputPath     string
	RunsOutputPath    string
}

// Result captures the observable outcomes of a pruning pass. Outcomes lists every
// issued or skipped delete in selection order.
type Result struct {
	Repository      githubapi.Repository
	ActiveBranches  []string
	FetchedRunCount int
	GroupedRunCount int
	BucketCount     int
	SelectedRunIDs  []int64
	DeletedRunIDs   []int64
	FailedRunIDs    []int64
	SkippedRunIDs   []int64
	Outcomes        []DeletionOutcome
	DryRun          bool
}

// Service coordinates branch listing, run fetching, grouping, retention, and deletion.
type Service struct {
	branchLister BranchLister
	runLister    RunLister
	runDeleter   RunDeleter
	grouper      *runs.Grouper
	logger       *zap.Logger
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.BranchLister == nil {
		return nil, ErrBranchListerNotConfigured
	}
	if dependencies.RunLister == nil {
		return nil, ErrRunListerNotConfigured
	}
	if dependencies.RunDeleter == nil {
		return nil, ErrRunDeleterNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		branchLister: dependencies.BranchLister,
		runLister:    dependencies.RunLister,
		runDeleter:   dependencies.RunDeleter,
		grouper:      runs.NewGrouper(logger),
		logger:       logger,
	}, nil
}

// Prune runs the full pipeline once. Configuration problems are reported before any request.
func (service *Service) Prune(executionContext context.Context, options Options) (Result, error) {
	normalizedOptions, validationError := normalizeOptions(options)
	if validationError != nil {
		return Result{}, validationError
	}

	result := Result{Repository: normalizedOptions.Repository, DryRun: normalizedOptions.DryRun}

	activeBranches, branchesError := service.resolveBranches(executionContext, normalizedOptions)
	if branchesError != nil {
		return result, branchesError
	}
	result.ActiveBranches = activeBranches

	workflowRuns, fetchError := service.fetchRuns(executionContext, normalizedOptions)
	if fetchError != nil {
		return result, fetchError
	}
	result.FetchedRunCount = len(workflowRuns)

	if len(normalizedOptions.RunsOutputPath) > 0 {
		if saveError := SaveRunsSnapshot(normalizedOptions.RunsOutputPath, workflowRuns); saveError != nil {
			return result, saveError
		}
		service.logger.Debug(snapshotSavedLogMessageConstant, zap.String(logFieldPathConstant, normalizedOptions.RunsOutputPath), zap.Int(logFieldRunCountConstant, len(workflowRuns)))
	}

	groups := service.grouper.Group(workflowRuns)
	result.GroupedRunCount = groups.RunCount()
	result.BucketCount = groups.BucketCount()

	selectedRunIDs, selectionError := runs.SelectForDeletion(groups, activeBranches, normalizedOptions.Keep)
	if selectionError != nil {
		return result, ConfigurationError{Field: keepFieldNameConstant, Cause: selectionError}
	}
	result.SelectedRunIDs = selectedRunIDs

	service.logger.Debug(
		selectionLogMessageConstant,
		zap.Int(logFieldSelectedCountConstant, len(selectedRunIDs)),
		zap.Int(logFieldKeepConstant, normalizedOptions.Keep),
		zap.Bool(logFieldDryRunConstant, normalizedOptions.DryRun),
	)

	if !normalizedOptions.DryRun && len(selectedRunIDs) > 0 {
		deleter, deleterError := NewDeleter(service.runDeleter, service.logger, normalizedOptions.DeleteConcurrency)
		if deleterError != nil {
			return result, deleterError
		}

		result.Outcomes = deleter.Delete(executionContext, normalizedOptions.Repository, selectedRunIDs)
		for _, outcome := range result.Outcomes {
			switch {
			case outcome.Skipped:
				result.SkippedRunIDs = append(result.SkippedRunIDs, outcome.RunID)
			case outcome.Error != nil:
				result.FailedRunIDs = append(result.FailedRunIDs, outcome.RunID)
			default:
				result.DeletedRunIDs = append(result.DeletedRunIDs, outcome.RunID)
			}
		}
	}

	service.logger.Info(
		pruneCompletedLogMessageConstant,
		zap.String(logFieldRepositoryConstant, normalizedOptions.Repository.String()),
		zap.Int(logFieldRunCountConstant, result.FetchedRunCount),
		zap.Int(logFieldBucketCountConstant, result.BucketCount),
		zap.Int(logFieldSelectedCountConstant, len(result.SelectedRunIDs)),
		zap.Int(logFieldDeletedCountConstant, len(result.DeletedRunIDs)),
		zap.Int(logFieldFailedCountConstant, len(result.FailedRunIDs)),
		zap.Int(logFieldSkippedCountConstant, len(result.SkippedRunIDs)),
		zap.Bool(logFieldDryRunConstant, result.DryRun),
	)

	if contextError := executionContext.Err(); contextError != nil {
		return result, contextError
	}

	return result, nil
}

func normalizeOptions(options Options) (Options, error) {
	normalized := options

	if len(options.Repository.Owner) == 0 || len(options.Repository.Name) == 0 {
		return Options{}, ConfigurationError{Field: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if options.Keep < 0 {
		return Options{}, ConfigurationError{Field: keepFieldNameConstant, Message: keepNonNegativeMessageConstant}
	}

	if normalized.PageSize == 0 {
		normalized.PageSize = DefaultPageSize
	}
	if normalized.PageSize < 1 || normalized.PageSize > githubapi.MaximumPageSize {
		return Options{}, ConfigurationError{Field: pageSizeFieldNameConstant, Message: pageSizeOutOfRangeMessageConstant}
	}

	if normalized.DeleteConcurrency == 0 {
		normalized.DeleteConcurrency = DefaultDeleteConcurrency
	}
	if normalized.DeleteConcurrency < 1 {
		return Options{}, ConfigurationError{Field: concurrencyFieldNameConstant, Message: concurrencyPositiveMessageConstant}
	}

	if len(normalized.RunsInputPath) > 0 && normalized.RunsInputPath == normalized.RunsOutputPath {
		return Options{}, ConfigurationError{Field: snapshotPathFieldNameConstant, Message: snapshotPathConflictMessageConstant}
	}

	normalized.Branches = sanitizeBranches(options.Branches)

	return normalized, nil
}

// resolveBranches returns the active branch list with the scheduled pseudo-branch first.
func (service *Service) resolveBranches(executionContext context.Context, options Options) ([]string, error) {
	branchNames := options.Branches
	if len(branchNames) == 0 {
		listedBranches, listError := service.branchLister.ListBranches(executionContext, options.Repository)
		if listError != nil {
			return nil, listError
		}
		branchNames = listedBranches
	}

	activeBranches := make([]string, 0, len(branchNames)+1)
	activeBranches = append(activeBranches, runs.ScheduledBranchName)
	for _, branchName := range branchNames {
		if slices.Contains(activeBranches, branchName) {
			continue
		}
		activeBranches = append(activeBranches, branchName)
	}

	service.logger.Debug(branchesResolvedLogMessageConstant, zap.Strings(logFieldBranchesConstant, activeBranches))

	return activeBranches, nil
}

// fetchRuns loads runs from the snapshot when configured, otherwise pages through the API.
func (service *Service) fetchRuns(executionContext context.Context, options Options) ([]*gh.WorkflowRun, error) {
	if len(options.RunsInputPath) > 0 {
		workflowRuns, loadError := LoadRunsSnapshot(options.RunsInputPath)
		if loadError != nil {
			return nil, loadError
		}
		service.logger.Debug(snapshotLoadedLogMessageConstant, zap.String(logFieldPathConstant, options.RunsInputPath), zap.Int(logFieldRunCountConstant, len(workflowRuns)))
		return workflowRuns, nil
	}

	probePage, probeError := service.runLister.ListWorkflowRuns(executionContext, options.Repository, 1, options.PageSize)
	if probeError != nil {
		return nil, probeError
	}

	totalCount := probePage.TotalCount
	pageCount := 0
	if totalCount > 0 {
		pageCount = (totalCount + options.PageSize - 1) / options.PageSize
	}

	service.logger.Debug(
		runCountLogMessageConstant,
		zap.Int(logFieldTotalCountConstant, totalCount),
		zap.Int(logFieldPageSizeConstant, options.PageSize),
		zap.Int(logFieldPagesConstant, pageCount),
	)

	workflowRuns := make([]*gh.WorkflowRun, 0, totalCount)
	for page := 1; page <= pageCount; page++ {
		service.logger.Debug(fetchingPageLogMessageConstant, zap.Int(logFieldPageConstant, page))
		runPage, pageError := service.runLister.ListWorkflowRuns(executionContext, options.Repository, page, options.PageSize)
		if pageError != nil {
			return nil, pageError
		}
		workflowRuns = append(workflowRuns, runPage.Runs...)
	}

	return workflowRuns, nil
}
