package prune_test

import (
	"context"
	"sync"
	"time"

	gh "github.com/google/go-github/v82/github"

	"github.com/temirov/runsweep/internal/githubapi"
)

type stubClient struct {
	mutex          sync.Mutex
	branches       []string
	branchesError  error
	runs           []*gh.WorkflowRun
	listError      error
	deleteFailures map[int64]error
	deleteHook     func(runIdentifier int64)
	branchCalls    int
	pageRequests   []int
	deletedRuns    []int64
}

func (client *stubClient) ListBranches(executionContext context.Context, repository githubapi.Repository) ([]string, error) {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	client.branchCalls++
	if client.branchesError != nil {
		return nil, client.branchesError
	}
	return append([]string(nil), client.branches...), nil
}

func (client *stubClient) ListWorkflowRuns(executionContext context.Context, repository githubapi.Repository, page int, pageSize int) (githubapi.WorkflowRunPage, error) {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	client.pageRequests = append(client.pageRequests, page)
	if client.listError != nil {
		return githubapi.WorkflowRunPage{}, client.listError
	}

	startIndex := min((page-1)*pageSize, len(client.runs))
	endIndex := min(startIndex+pageSize, len(client.runs))
	return githubapi.WorkflowRunPage{
		TotalCount: len(client.runs),
		Runs:       append([]*gh.WorkflowRun(nil), client.runs[startIndex:endIndex]...),
	}, nil
}

func (client *stubClient) DeleteWorkflowRun(executionContext context.Context, repository githubapi.Repository, runIdentifier int64) error {
	if client.deleteHook != nil {
		client.deleteHook(runIdentifier)
	}

	client.mutex.Lock()
	defer client.mutex.Unlock()
	if failure, failed := client.deleteFailures[runIdentifier]; failed {
		return failure
	}
	client.deletedRuns = append(client.deletedRuns, runIdentifier)
	return nil
}

func (client *stubClient) deleted() []int64 {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	return append([]int64(nil), client.deletedRuns...)
}

func commitRun(identifier int64, branch string, commitSeconds int64) *gh.WorkflowRun {
	return &gh.WorkflowRun{
		ID:         gh.Ptr(identifier),
		HeadBranch: gh.Ptr(branch),
		HeadSHA:    gh.Ptr("sha-" + branch),
		Event:      gh.Ptr("push"),
		HeadCommit: &gh.HeadCommit{Timestamp: &gh.Timestamp{Time: time.Unix(commitSeconds, 0).UTC()}},
		CreatedAt:  &gh.Timestamp{Time: time.Unix(commitSeconds+30, 0).UTC()},
	}
}

func scenarioRuns() []*gh.WorkflowRun {
	return []*gh.WorkflowRun{
		commitRun(1, "main", 100),
		commitRun(2, "main", 200),
		commitRun(3, "feature", 150),
	}
}
