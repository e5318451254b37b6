package githubapi_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/runsweep/internal/githubapi"
	"github.com/temirov/runsweep/internal/githubauth"
)

const (
	testUsernameConstant        = "octocat"
	testTokenConstant           = "secret-token"
	testBranchesPathConstant    = "/repos/owner/example/branches"
	testRunsPathConstant        = "/repos/owner/example/actions/runs"
	testRunDeletePathTemplate   = "/repos/owner/example/actions/runs/%d"
	testRepositoryOwnerConstant = "owner"
	testRepositoryNameConstant  = "example"
)

type recordedRequest struct {
	method   string
	path     string
	query    string
	username string
	password string
}

type requestRecorder struct {
	mutex    sync.Mutex
	requests []recordedRequest
}

func (recorder *requestRecorder) record(request *http.Request) {
	username, password, _ := request.BasicAuth()
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	recorder.requests = append(recorder.requests, recordedRequest{
		method:   request.Method,
		path:     request.URL.Path,
		query:    request.URL.RawQuery,
		username: username,
		password: password,
	})
}

func (recorder *requestRecorder) snapshot() []recordedRequest {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	return append([]recordedRequest(nil), recorder.requests...)
}

func newTestClient(testInstance *testing.T, handler http.Handler) *githubapi.Client {
	testInstance.Helper()

	server := httptest.NewServer(handler)
	testInstance.Cleanup(server.Close)

	client, clientError := githubapi.NewClient(githubapi.ClientConfiguration{
		BaseURL:        server.URL,
		Credentials:    githubauth.Credentials{Username: testUsernameConstant, Token: testTokenConstant},
		RequestTimeout: 5 * time.Second,
		Transport:      server.Client().Transport,
	})
	require.NoError(testInstance, clientError)
	return client
}

func testRepository() githubapi.Repository {
	return githubapi.Repository{Owner: testRepositoryOwnerConstant, Name: testRepositoryNameConstant}
}

func TestNewClientRequiresCredentials(testInstance *testing.T) {
	testCases := []struct {
		name        string
		credentials githubauth.Credentials
	}{
		{name: "missing_username", credentials: githubauth.Credentials{Token: testTokenConstant}},
		{name: "missing_token", credentials: githubauth.Credentials{Username: testUsernameConstant}},
		{name: "blank_values", credentials: githubauth.Credentials{Username: " ", Token: " "}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			client, clientError := githubapi.NewClient(githubapi.ClientConfiguration{Credentials: testCase.credentials})
			require.ErrorIs(testInstance, clientError, githubapi.ErrCredentialsNotConfigured)
			require.Nil(testInstance, client)
		})
	}
}

func TestNewClientRejectsRelativeBaseURL(testInstance *testing.T) {
	_, clientError := githubapi.NewClient(githubapi.ClientConfiguration{
		BaseURL:     "api.example.com",
		Credentials: githubauth.Credentials{Username: testUsernameConstant, Token: testTokenConstant},
	})

	var inputError githubapi.InvalidInputError
	require.ErrorAs(testInstance, clientError, &inputError)
}

func TestListBranchesFollowsPagination(testInstance *testing.T) {
	recorder := &requestRecorder{}
	var serverURL string
	handler := http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		recorder.record(request)
		responseWriter.Header().Set("Content-Type", "application/json")
		if request.URL.Query().Get("page") == "2" {
			fmt.Fprint(responseWriter, `[{"name":"feature"}]`)
			return
		}
		responseWriter.Header().Set("Link", fmt.Sprintf(`<%s%s?page=2&per_page=100>; rel="next"`, serverURL, testBranchesPathConstant))
		fmt.Fprint(responseWriter, `[{"name":"main"},{"name":"develop"}]`)
	})

	server := httptest.NewServer(handler)
	testInstance.Cleanup(server.Close)
	serverURL = server.URL

	client, clientError := githubapi.NewClient(githubapi.ClientConfiguration{
		BaseURL:     server.URL,
		Credentials: githubauth.Credentials{Username: testUsernameConstant, Token: testTokenConstant},
		Transport:   server.Client().Transport,
	})
	require.NoError(testInstance, clientError)

	branchNames, listError := client.ListBranches(context.Background(), testRepository())
	require.NoError(testInstance, listError)
	require.Equal(testInstance, []string{"main", "develop", "feature"}, branchNames)

	requests := recorder.snapshot()
	require.Len(testInstance, requests, 2)
	for _, request := range requests {
		require.Equal(testInstance, testBranchesPathConstant, request.path)
		require.Equal(testInstance, testUsernameConstant, request.username)
		require.Equal(testInstance, testTokenConstant, request.password)
	}
}

func TestListBranchesSinglePageIssuesOneRequest(testInstance *testing.T) {
	recorder := &requestRecorder{}
	client := newTestClient(testInstance, http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		recorder.record(request)
		responseWriter.Header().Set("Content-Type", "application/json")
		fmt.Fprint(responseWriter, `[{"name":"main"}]`)
	}))

	branchNames, listError := client.ListBranches(context.Background(), testRepository())
	require.NoError(testInstance, listError)
	require.Equal(testInstance, []string{"main"}, branchNames)
	require.Len(testInstance, recorder.snapshot(), 1)
}

func TestListBranchesWrapsFailures(testInstance *testing.T) {
	client := newTestClient(testInstance, http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		responseWriter.Header().Set("Content-Type", "application/json")
		responseWriter.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(responseWriter, `{"message":"Bad credentials"}`)
	}))

	_, listError := client.ListBranches(context.Background(), testRepository())
	require.Error(testInstance, listError)

	var operationError githubapi.OperationError
	require.ErrorAs(testInstance, listError, &operationError)
	require.Equal(testInstance, githubapi.ListBranchesOperation, operationError.Operation)

	var responseError *gh.ErrorResponse
	require.True(testInstance, errors.As(listError, &responseError))
	require.Equal(testInstance, http.StatusUnauthorized, responseError.Response.StatusCode)
}

func TestListWorkflowRunsReturnsPage(testInstance *testing.T) {
	recorder := &requestRecorder{}
	client := newTestClient(testInstance, http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		recorder.record(request)
		responseWriter.Header().Set("Content-Type", "application/json")
		fmt.Fprint(responseWriter, `{
			"total_count": 3,
			"workflow_runs": [
				{"id": 11, "head_branch": "main", "head_sha": "abc", "event": "push",
				 "head_commit": {"id": "abc", "timestamp": "2024-03-01T10:00:00Z"},
				 "created_at": "2024-03-01T10:05:00Z"},
				{"id": 12, "head_branch": "main", "head_sha": "def", "event": "schedule",
				 "head_commit": {"id": "def", "timestamp": "2024-03-01T03:00:00Z"},
				 "created_at": "2024-03-02T04:00:00Z"}
			]
		}`)
	}))

	page, listError := client.ListWorkflowRuns(context.Background(), testRepository(), 2, 2)
	require.NoError(testInstance, listError)
	require.Equal(testInstance, 3, page.TotalCount)
	require.Len(testInstance, page.Runs, 2)
	require.Equal(testInstance, int64(11), page.Runs[0].GetID())
	require.Equal(testInstance, "schedule", page.Runs[1].GetEvent())
	require.Equal(testInstance, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), page.Runs[0].GetHeadCommit().GetTimestamp().UTC())

	requests := recorder.snapshot()
	require.Len(testInstance, requests, 1)
	require.Equal(testInstance, testRunsPathConstant, requests[0].path)
	require.Contains(testInstance, requests[0].query, "page=2")
	require.Contains(testInstance, requests[0].query, "per_page=2")
}

func TestListWorkflowRunsValidatesPaging(testInstance *testing.T) {
	client := newTestClient(testInstance, http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		testInstance.Errorf("unexpected request %s", request.URL.Path)
	}))

	testCases := []struct {
		name     string
		page     int
		pageSize int
	}{
		{name: "zero_page", page: 0, pageSize: 10},
		{name: "zero_page_size", page: 1, pageSize: 0},
		{name: "oversized_page", page: 1, pageSize: githubapi.MaximumPageSize + 1},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			_, listError := client.ListWorkflowRuns(context.Background(), testRepository(), testCase.page, testCase.pageSize)
			var inputError githubapi.InvalidInputError
			require.ErrorAs(testInstance, listError, &inputError)
		})
	}
}

func TestDeleteWorkflowRun(testInstance *testing.T) {
	recorder := &requestRecorder{}
	client := newTestClient(testInstance, http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		recorder.record(request)
		if request.URL.Path == fmt.Sprintf(testRunDeletePathTemplate, 404) {
			responseWriter.Header().Set("Content-Type", "application/json")
			responseWriter.WriteHeader(http.StatusNotFound)
			fmt.Fprint(responseWriter, `{"message":"Not Found"}`)
			return
		}
		responseWriter.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(testInstance, client.DeleteWorkflowRun(context.Background(), testRepository(), 77))

	deleteError := client.DeleteWorkflowRun(context.Background(), testRepository(), 404)
	var operationError githubapi.OperationError
	require.ErrorAs(testInstance, deleteError, &operationError)
	require.Equal(testInstance, githubapi.DeleteWorkflowRunOperation, operationError.Operation)

	requests := recorder.snapshot()
	require.Len(testInstance, requests, 2)
	require.Equal(testInstance, http.MethodDelete, requests[0].method)
	require.Equal(testInstance, fmt.Sprintf(testRunDeletePathTemplate, 77), requests[0].path)

	var inputError githubapi.InvalidInputError
	require.ErrorAs(testInstance, client.DeleteWorkflowRun(context.Background(), testRepository(), 0), &inputError)
}

func TestParseRepository(testInstance *testing.T) {
	testCases := []struct {
		name       string
		identifier string
		expected   githubapi.Repository
		expectErr  bool
	}{
		{name: "plain", identifier: "owner/example", expected: githubapi.Repository{Owner: "owner", Name: "example"}},
		{name: "git_suffix_and_spaces", identifier: "  owner/example.git ", expected: githubapi.Repository{Owner: "owner", Name: "example"}},
		{name: "empty", identifier: " ", expectErr: true},
		{name: "missing_owner", identifier: "/example", expectErr: true},
		{name: "too_many_segments", identifier: "a/b/c", expectErr: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			repository, parseError := githubapi.ParseRepository(testCase.identifier)
			if testCase.expectErr {
				var inputError githubapi.InvalidInputError
				require.ErrorAs(testInstance, parseError, &inputError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expected, repository)
			require.Equal(testInstance, "owner/example", repository.String())
		})
	}
}

func TestListBranchesWaitsOutSecondaryRateLimitLongerThanTimeout(testInstance *testing.T) {
	var callCount atomic.Int32
	handler := http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		if callCount.Add(1) == 1 {
			responseWriter.Header().Set("Content-Type", "application/json")
			responseWriter.Header().Set("Retry-After", "1")
			responseWriter.WriteHeader(http.StatusForbidden)
			_, _ = responseWriter.Write([]byte(`{"message":"You have exceeded a secondary rate limit","documentation_url":"https://docs.github.com/rest/overview/rate-limits-for-the-rest-api#about-secondary-rate-limits"}`))
			return
		}
		responseWriter.Header().Set("Content-Type", "application/json")
		_, _ = responseWriter.Write([]byte(`[{"name":"main"}]`))
	})

	server := httptest.NewServer(handler)
	testInstance.Cleanup(server.Close)

	observedCore, observedLogs := observer.New(zapcore.WarnLevel)
	client, clientError := githubapi.NewClient(githubapi.ClientConfiguration{
		BaseURL:        server.URL,
		Credentials:    githubauth.Credentials{Username: testUsernameConstant, Token: testTokenConstant},
		RequestTimeout: 300 * time.Millisecond,
		Transport:      server.Client().Transport,
		Logger:         zap.New(observedCore),
	})
	require.NoError(testInstance, clientError)

	branches, listError := client.ListBranches(context.Background(), testRepository())
	require.NoError(testInstance, listError)
	require.Equal(testInstance, []string{"main"}, branches)
	require.Equal(testInstance, int32(2), callCount.Load())
	require.Equal(testInstance, 1, observedLogs.FilterMessage("github secondary rate limit, waiting").Len())
}

func TestRequestTimeoutBoundsEachAttempt(testInstance *testing.T) {
	handler := http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		select {
		case <-request.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})

	server := httptest.NewServer(handler)
	testInstance.Cleanup(server.Close)

	client, clientError := githubapi.NewClient(githubapi.ClientConfiguration{
		BaseURL:        server.URL,
		Credentials:    githubauth.Credentials{Username: testUsernameConstant, Token: testTokenConstant},
		RequestTimeout: 200 * time.Millisecond,
		Transport:      server.Client().Transport,
	})
	require.NoError(testInstance, clientError)

	startTime := time.Now()
	_, listError := client.ListBranches(context.Background(), testRepository())
	require.Error(testInstance, listError)
	require.ErrorContains(testInstance, listError, "deadline exceeded")

	var operationError githubapi.OperationError
	require.ErrorAs(testInstance, listError, &operationError)
	require.Equal(testInstance, githubapi.ListBranchesOperation, operationError.Operation)
	require.Less(testInstance, time.Since(startTime), 4*time.Second)
}
