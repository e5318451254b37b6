package runs_test

import (
	"testing"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/stretchr/testify/require"

	"github.com/temirov/runsweep/internal/runs"
)

const (
	pushEventConstant = "push"
)

func commitRun(identifier int64, branch string, commitSeconds int64) *gh.WorkflowRun {
	return &gh.WorkflowRun{
		ID:         gh.Ptr(identifier),
		HeadBranch: gh.Ptr(branch),
		HeadSHA:    gh.Ptr("sha-" + branch),
		Event:      gh.Ptr(pushEventConstant),
		HeadCommit: &gh.HeadCommit{Timestamp: &gh.Timestamp{Time: time.Unix(commitSeconds, 0).UTC()}},
		CreatedAt:  &gh.Timestamp{Time: time.Unix(commitSeconds+60, 0).UTC()},
	}
}

func scheduledRun(identifier int64, headBranch string, createdAt time.Time) *gh.WorkflowRun {
	return &gh.WorkflowRun{
		ID:         gh.Ptr(identifier),
		HeadBranch: gh.Ptr(headBranch),
		HeadSHA:    gh.Ptr("sha-schedule"),
		Event:      gh.Ptr(runs.ScheduledEventName),
		HeadCommit: &gh.HeadCommit{Timestamp: &gh.Timestamp{Time: createdAt.Add(-48 * time.Hour)}},
		CreatedAt:  &gh.Timestamp{Time: createdAt},
	}
}

func TestSelectForDeletionScenarios(testInstance *testing.T) {
	testCases := []struct {
		name           string
		workflowRuns   []*gh.WorkflowRun
		activeBranches []string
		keep           int
		expected       []int64
	}{
		{
			name: "inactive_branch_and_old_bucket",
			workflowRuns: []*gh.WorkflowRun{
				commitRun(1, "main", 100),
				commitRun(2, "main", 200),
				commitRun(3, "feature", 150),
			},
			activeBranches: []string{"main"},
			keep:           1,
			expected:       []int64{1, 3},
		},
		{
			name:           "no_runs",
			workflowRuns:   nil,
			activeBranches: []string{runs.ScheduledBranchName, "main"},
			keep:           1,
			expected:       nil,
		},
		{
			name: "keep_zero_deletes_everything",
			workflowRuns: []*gh.WorkflowRun{
				commitRun(1, "main", 100),
				commitRun(2, "main", 200),
			},
			activeBranches: []string{"main"},
			keep:           0,
			expected:       []int64{2, 1},
		},
		{
			name: "keep_exceeds_bucket_count",
			workflowRuns: []*gh.WorkflowRun{
				commitRun(1, "main", 100),
				commitRun(2, "main", 200),
			},
			activeBranches: []string{"main"},
			keep:           5,
			expected:       nil,
		},
		{
			name: "bucket_shared_by_reruns",
			workflowRuns: []*gh.WorkflowRun{
				commitRun(10, "main", 300),
				commitRun(11, "main", 100),
				commitRun(12, "main", 100),
				commitRun(13, "main", 200),
			},
			activeBranches: []string{"main"},
			keep:           1,
			expected:       []int64{13, 11, 12},
		},
		{
			name: "scheduled_runs_by_date",
			workflowRuns: []*gh.WorkflowRun{
				scheduledRun(20, "main", time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)),
				scheduledRun(21, "main", time.Date(2024, 5, 2, 3, 0, 0, 0, time.UTC)),
				scheduledRun(22, "develop", time.Date(2024, 5, 2, 23, 59, 0, 0, time.UTC)),
				commitRun(23, "main", 500),
			},
			activeBranches: []string{runs.ScheduledBranchName, "main"},
			keep:           1,
			expected:       []int64{20},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			groups := runs.NewGrouper(nil).Group(testCase.workflowRuns)
			selected, selectError := runs.SelectForDeletion(groups, testCase.activeBranches, testCase.keep)
			require.NoError(testInstance, selectError)
			require.Equal(testInstance, testCase.expected, selected)
		})
	}
}

func TestSelectForDeletionRejectsNegativeKeep(testInstance *testing.T) {
	groups := runs.NewGrouper(nil).Group([]*gh.WorkflowRun{commitRun(1, "main", 100)})
	_, selectError := runs.SelectForDeletion(groups, []string{"main"}, -1)
	require.ErrorIs(testInstance, selectError, runs.ErrNegativeKeep)
}

func TestSelectForDeletionRetainsNewestBuckets(testInstance *testing.T) {
	var workflowRuns []*gh.WorkflowRun
	for identifier := int64(1); identifier <= 6; identifier++ {
		workflowRuns = append(workflowRuns, commitRun(identifier, "main", identifier*1000))
	}
	groups := runs.NewGrouper(nil).Group(workflowRuns)

	for keep := 0; keep <= 7; keep++ {
		selected, selectError := runs.SelectForDeletion(groups, []string{"main"}, keep)
		require.NoError(testInstance, selectError)

		retainedKeys := groups.Keys("main")
		if keep < len(retainedKeys) {
			retainedKeys = retainedKeys[:keep]
		}
		for _, key := range retainedKeys {
			bucket, exists := groups.Bucket("main", key)
			require.True(testInstance, exists)
			for _, runIdentifier := range bucket.RunIDs {
				require.NotContains(testInstance, selected, runIdentifier)
			}
		}
		require.Len(testInstance, selected, max(0, 6-keep))
	}
}

func TestGroupPlacesScheduledRunsUnderPseudoBranch(testInstance *testing.T) {
	createdAt := time.Date(2024, 2, 29, 23, 30, 0, 0, time.FixedZone("west", -5*60*60))
	groups := runs.NewGrouper(nil).Group([]*gh.WorkflowRun{
		scheduledRun(7, "main", createdAt),
		scheduledRun(8, "release", createdAt.Add(10*time.Minute)),
	})

	require.Equal(testInstance, []string{runs.ScheduledBranchName}, groups.Branches())

	keys := groups.Keys(runs.ScheduledBranchName)
	require.Len(testInstance, keys, 1)
	require.Equal(testInstance, "2024-03-01", keys[0].Date)
	require.Equal(testInstance, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Unix(), keys[0].Seconds)
	require.Equal(testInstance, "2024-03-01", keys[0].String())

	bucket, exists := groups.Bucket(runs.ScheduledBranchName, keys[0])
	require.True(testInstance, exists)
	require.Equal(testInstance, []int64{7, 8}, bucket.RunIDs)
	require.Equal(testInstance, "sha-schedule", bucket.Commit)
}

func TestGroupKeepsFirstCommitForBucket(testInstance *testing.T) {
	first := commitRun(1, "main", 100)
	second := commitRun(2, "main", 100)
	second.HeadSHA = gh.Ptr("different-sha")

	groups := runs.NewGrouper(nil).Group([]*gh.WorkflowRun{first, second})
	bucket, exists := groups.Bucket("main", runs.BucketKey{Seconds: 100})
	require.True(testInstance, exists)
	require.Equal(testInstance, "sha-main", bucket.Commit)
	require.Equal(testInstance, []int64{1, 2}, bucket.RunIDs)
}

func TestGroupSkipsMalformedRuns(testInstance *testing.T) {
	missingIdentifier := commitRun(1, "main", 100)
	missingIdentifier.ID = nil
	missingBranch := commitRun(2, "main", 100)
	missingBranch.HeadBranch = nil
	missingSHA := commitRun(3, "main", 100)
	missingSHA.HeadSHA = nil
	missingCommit := commitRun(4, "main", 100)
	missingCommit.HeadCommit = nil
	missingTimestamp := commitRun(5, "main", 100)
	missingTimestamp.HeadCommit = &gh.HeadCommit{}
	missingCreatedAt := scheduledRun(6, "main", time.Now())
	missingCreatedAt.CreatedAt = nil

	workflowRuns := []*gh.WorkflowRun{
		nil,
		missingIdentifier,
		missingBranch,
		missingSHA,
		missingCommit,
		missingTimestamp,
		missingCreatedAt,
		commitRun(9, "main", 900),
	}

	groups := runs.NewGrouper(nil).Group(workflowRuns)
	require.Equal(testInstance, 1, groups.RunCount())
	require.Equal(testInstance, []string{"main"}, groups.Branches())

	selected, selectError := runs.SelectForDeletion(groups, nil, 0)
	require.NoError(testInstance, selectError)
	require.Equal(testInstance, []int64{9}, selected)

	_, _, accepted := runs.KeyForRun(missingSHA)
	require.False(testInstance, accepted)
}

func TestGroupIsIdempotent(testInstance *testing.T) {
	workflowRuns := []*gh.WorkflowRun{
		commitRun(1, "main", 100),
		commitRun(2, "feature", 150),
		scheduledRun(3, "main", time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)),
		commitRun(4, "main", 200),
	}

	grouper := runs.NewGrouper(nil)
	require.Equal(testInstance, grouper.Group(workflowRuns), grouper.Group(workflowRuns))
}

func TestBranchGroupsCounts(testInstance *testing.T) {
	groups := runs.NewGrouper(nil).Group([]*gh.WorkflowRun{
		commitRun(1, "main", 100),
		commitRun(2, "main", 100),
		commitRun(3, "feature", 150),
	})

	require.Equal(testInstance, 2, groups.BranchCount())
	require.Equal(testInstance, 2, groups.BucketCount())
	require.Equal(testInstance, 3, groups.RunCount())
	require.Equal(testInstance, []string{"main", "feature"}, groups.Branches())

	_, exists := groups.Bucket("missing", runs.BucketKey{Seconds: 1})
	require.False(testInstance, exists)
}
