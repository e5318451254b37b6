package githubapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit/github_secondary_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"
	"go.uber.org/zap"

	"github.com/temirov/runsweep/internal/githubauth"
)

const (
	// DefaultBaseURL is the public GitHub REST endpoint.
	DefaultBaseURL = "https://api.github.com/"
	// DefaultRequestTimeout bounds each request attempt when no timeout is configured.
	DefaultRequestTimeout = 20 * time.Second
	// MaximumPageSize is the largest page the REST API serves.
	MaximumPageSize = 100

	baseURLFieldNameConstant          = "base_url"
	pageSizeFieldNameConstant         = "page_size"
	pageFieldNameConstant             = "page"
	runIdentifierFieldNameConstant    = "run_id"
	pageSizeRangeMessageConstant      = "must be between 1 and 100"
	pagePositiveMessageConstant       = "must be positive"
	runIdentifierPositiveMessage      = "must be positive"
	urlPathSeparatorConstant          = "/"
	baseURLParseErrorTemplateConstant = "invalid base URL %q: %w"
	rateLimitLowThresholdConstant     = 100
	apiCallLogMessageConstant         = "github api call"
	rateLimitLowLogMessageConstant    = "github rate limit low"
	secondaryLimitLogMessageConstant  = "github secondary rate limit, waiting"
	logFieldMethodConstant            = "method"
	logFieldPathConstant              = "path"
	logFieldOperationConstant         = "operation"
	logFieldRepositoryConstant        = "repository"
	logFieldPageConstant              = "page"
	logFieldCountConstant             = "count"
	logFieldRunIdentifierConstant     = "run_id"
	logFieldStatusConstant            = "status"
	logFieldRateRemainingConstant     = "rate_remaining"
	logFieldRateLimitConstant         = "rate_limit"
	logFieldRateResetConstant         = "reset_in"
	branchListPageSizeConstant        = MaximumPageSize
)

// ClientConfiguration describes how to reach and authenticate against the GitHub REST API.
type ClientConfiguration struct {
	BaseURL        string
	Credentials    githubauth.Credentials
	RequestTimeout time.Duration
	// Transport is the innermost round tripper; nil selects http.DefaultTransport.
	Transport http.RoundTripper
	Logger    *zap.Logger
}

// WorkflowRunPage is one page of the workflow run listing.
type WorkflowRunPage struct {
	TotalCount int
	Runs       []*gh.WorkflowRun
}

// Client issues the branch, workflow run, and deletion calls runsweep needs.
//
// Requests pass through basic authentication, the secondary rate limit handler,
// and an in-memory ETag cache before reaching the network. The request timeout
// applies to each attempt, so waiting out a secondary rate limit does not consume it.
type Client struct {
	github *gh.Client
	logger *zap.Logger
}

// NewClient constructs a Client with a timeout applied to every request attempt.
func NewClient(configuration ClientConfiguration) (*Client, error) {
	username := strings.TrimSpace(configuration.Credentials.Username)
	token := strings.TrimSpace(configuration.Credentials.Token)
	if len(username) == 0 || len(token) == 0 {
		return nil, ErrCredentialsNotConfigured
	}

	requestTimeout := configuration.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}

	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cacheTransport := httpcache.NewMemoryCacheTransport()
	cacheTransport.Transport = newAttemptTimeoutTransport(configuration.Transport, requestTimeout)
	rateLimitedClient := github_ratelimit.NewClient(
		cacheTransport,
		github_secondary_ratelimit.WithLimitDetectedCallback(func(callbackContext *github_secondary_ratelimit.CallbackContext) {
			logSecondaryRateLimit(logger, callbackContext)
		}),
	)

	authenticatedTransport := &gh.BasicAuthTransport{
		Username:  username,
		Password:  token,
		Transport: rateLimitedClient.Transport,
	}

	githubClient := gh.NewClient(&http.Client{Transport: authenticatedTransport})

	baseURL := strings.TrimSpace(configuration.BaseURL)
	if len(baseURL) == 0 {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, urlPathSeparatorConstant) {
		baseURL += urlPathSeparatorConstant
	}
	parsedBaseURL, parseError := url.Parse(baseURL)
	if parseError != nil {
		return nil, fmt.Errorf(baseURLParseErrorTemplateConstant, baseURL, parseError)
	}
	if len(parsedBaseURL.Scheme) == 0 || len(parsedBaseURL.Host) == 0 {
		return nil, InvalidInputError{FieldName: baseURLFieldNameConstant, Message: baseURL}
	}
	githubClient.BaseURL = parsedBaseURL

	return &Client{github: githubClient, logger: logger}, nil
}

// ListBranches returns the repository branch names in API order, following pagination links.
func (client *Client) ListBranches(executionContext context.Context, repository Repository) ([]string, error) {
	options := &gh.BranchListOptions{ListOptions: gh.ListOptions{PerPage: branchListPageSizeConstant}}

	var branchNames []string
	for {
		branches, response, listError := client.github.Repositories.ListBranches(executionContext, repository.Owner, repository.Name, options)
		if listError != nil {
			return nil, OperationError{Operation: ListBranchesOperation, Cause: listError}
		}

		client.logCall(ListBranchesOperation, repository, options.Page, len(branches), response)

		for _, branch := range branches {
			if branch.Name == nil {
				continue
			}
			branchNames = append(branchNames, branch.GetName())
		}

		if response == nil || response.NextPage == 0 {
			break
		}
		options.Page = response.NextPage
	}

	return branchNames, nil
}

// ListWorkflowRuns fetches a single page of workflow runs together with the reported total count.
func (client *Client) ListWorkflowRuns(executionContext context.Context, repository Repository, page int, pageSize int) (WorkflowRunPage, error) {
	if pageSize < 1 || pageSize > MaximumPageSize {
		return WorkflowRunPage{}, InvalidInputError{FieldName: pageSizeFieldNameConstant, Message: pageSizeRangeMessageConstant}
	}
	if page < 1 {
		return WorkflowRunPage{}, InvalidInputError{FieldName: pageFieldNameConstant, Message: pagePositiveMessageConstant}
	}

	options := &gh.ListWorkflowRunsOptions{ListOptions: gh.ListOptions{Page: page, PerPage: pageSize}}
	workflowRuns, response, listError := client.github.Actions.ListRepositoryWorkflowRuns(executionContext, repository.Owner, repository.Name, options)
	if listError != nil {
		return WorkflowRunPage{}, OperationError{Operation: ListWorkflowRunsOperation, Cause: listError}
	}

	client.logCall(ListWorkflowRunsOperation, repository, page, len(workflowRuns.WorkflowRuns), response)

	return WorkflowRunPage{
		TotalCount: workflowRuns.GetTotalCount(),
		Runs:       workflowRuns.WorkflowRuns,
	}, nil
}

// DeleteWorkflowRun removes a workflow run together with its logs and artifacts.
func (client *Client) DeleteWorkflowRun(executionContext context.Context, repository Repository, runIdentifier int64) error {
	if runIdentifier <= 0 {
		return InvalidInputError{FieldName: runIdentifierFieldNameConstant, Message: runIdentifierPositiveMessage}
	}

	response, deleteError := client.github.Actions.DeleteWorkflowRun(executionContext, repository.Owner, repository.Name, runIdentifier)
	if deleteError != nil {
		return OperationError{Operation: DeleteWorkflowRunOperation, Cause: deleteError}
	}

	if response != nil && response.Response != nil {
		client.logger.Debug(
			apiCallLogMessageConstant,
			zap.String(logFieldOperationConstant, string(DeleteWorkflowRunOperation)),
			zap.String(logFieldRepositoryConstant, repository.String()),
			zap.Int64(logFieldRunIdentifierConstant, runIdentifier),
			zap.Int(logFieldStatusConstant, response.StatusCode),
		)
	}

	return nil
}

func (client *Client) logCall(operation OperationName, repository Repository, page int, count int, response *gh.Response) {
	if response == nil {
		return
	}

	client.logger.Debug(
		apiCallLogMessageConstant,
		zap.String(logFieldOperationConstant, string(operation)),
		zap.String(logFieldRepositoryConstant, repository.String()),
		zap.Int(logFieldPageConstant, page),
		zap.Int(logFieldCountConstant, count),
		zap.Int(logFieldRateRemainingConstant, response.Rate.Remaining),
		zap.Int(logFieldRateLimitConstant, response.Rate.Limit),
	)

	if response.Rate.Limit > 0 && response.Rate.Remaining < rateLimitLowThresholdConstant {
		client.logger.Warn(
			rateLimitLowLogMessageConstant,
			zap.Int(logFieldRateRemainingConstant, response.Rate.Remaining),
			zap.Duration(logFieldRateResetConstant, time.Until(response.Rate.Reset.Time).Round(time.Second)),
		)
	}
}

func logSecondaryRateLimit(logger *zap.Logger, callbackContext *github_secondary_ratelimit.CallbackContext) {
	fields := make([]zap.Field, 0, 3)
	if callbackContext.Request != nil {
		fields = append(fields,
			zap.String(logFieldMethodConstant, callbackContext.Request.Method),
			zap.String(logFieldPathConstant, callbackContext.Request.URL.Path),
		)
	}
	if callbackContext.ResetTime != nil {
		fields = append(fields, zap.Duration(logFieldRateResetConstant, time.Until(*callbackContext.ResetTime).Round(time.Second)))
	}
	logger.Warn(secondaryLimitLogMessageConstant, fields...)
}
