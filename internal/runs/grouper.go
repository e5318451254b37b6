package runs

import (
	"time"

	gh "github.com/google/go-github/v82/github"
	"go.uber.org/zap"
)

const (
	skippedRunLogMessageConstant    = "skipping workflow run"
	groupedBucketLogMessageConstant = "grouped bucket"
	logFieldRunIdentifierConstant   = "run_id"
	logFieldReasonConstant          = "reason"
	logFieldBranchConstant          = "branch"
	logFieldKeyConstant             = "key"
	logFieldCommitConstant          = "commit"
	logFieldRunCountConstant        = "runs"
	missingIdentifierReason         = "missing id"
	missingHeadBranchReason         = "missing head_branch"
	missingHeadSHAReason            = "missing head_sha"
	missingHeadCommitReason         = "missing head_commit"
	missingCommitTimestampReason    = "missing head_commit.timestamp"
	missingCreatedAtReason          = "missing created_at"
)

// Grouper partitions workflow runs into branch retention buckets.
type Grouper struct {
	logger *zap.Logger
}

// NewGrouper constructs a Grouper; a nil logger discards diagnostics.
func NewGrouper(logger *zap.Logger) *Grouper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Grouper{logger: logger}
}

// Group files every well-formed run into its bucket. Malformed runs are skipped.
func (grouper *Grouper) Group(workflowRuns []*gh.WorkflowRun) *BranchGroups {
	groups := NewBranchGroups()

	for _, workflowRun := range workflowRuns {
		branch, key, reason := classify(workflowRun)
		if len(reason) > 0 {
			grouper.logger.Debug(
				skippedRunLogMessageConstant,
				zap.Int64(logFieldRunIdentifierConstant, workflowRun.GetID()),
				zap.String(logFieldReasonConstant, reason),
			)
			continue
		}
		groups.Add(branch, key, workflowRun.GetHeadSHA(), workflowRun.GetID())
	}

	if grouper.logger.Core().Enabled(zap.DebugLevel) {
		for _, branch := range groups.Branches() {
			for _, key := range groups.Keys(branch) {
				bucket, _ := groups.Bucket(branch, key)
				grouper.logger.Debug(
					groupedBucketLogMessageConstant,
					zap.String(logFieldBranchConstant, branch),
					zap.Stringer(logFieldKeyConstant, key),
					zap.String(logFieldCommitConstant, bucket.Commit),
					zap.Int(logFieldRunCountConstant, len(bucket.RunIDs)),
				)
			}
		}
	}

	return groups
}

// KeyForRun computes the branch and bucket key of a run, reporting false for malformed runs.
func KeyForRun(workflowRun *gh.WorkflowRun) (string, BucketKey, bool) {
	branch, key, reason := classify(workflowRun)
	return branch, key, len(reason) == 0
}

func classify(workflowRun *gh.WorkflowRun) (string, BucketKey, string) {
	switch {
	case workflowRun == nil || workflowRun.ID == nil:
		return "", BucketKey{}, missingIdentifierReason
	case workflowRun.HeadBranch == nil:
		return "", BucketKey{}, missingHeadBranchReason
	case workflowRun.HeadSHA == nil:
		return "", BucketKey{}, missingHeadSHAReason
	case workflowRun.HeadCommit == nil:
		return "", BucketKey{}, missingHeadCommitReason
	}

	if workflowRun.GetEvent() == ScheduledEventName {
		if workflowRun.CreatedAt == nil {
			return "", BucketKey{}, missingCreatedAtReason
		}
		return ScheduledBranchName, scheduledKey(workflowRun.CreatedAt.Time), ""
	}

	if workflowRun.HeadCommit.Timestamp == nil {
		return "", BucketKey{}, missingCommitTimestampReason
	}
	return workflowRun.GetHeadBranch(), BucketKey{Seconds: workflowRun.HeadCommit.Timestamp.Unix()}, ""
}

func scheduledKey(createdAt time.Time) BucketKey {
	utcCreatedAt := createdAt.UTC()
	midnight := time.Date(utcCreatedAt.Year(), utcCreatedAt.Month(), utcCreatedAt.Day(), 0, 0, 0, 0, time.UTC)
	return BucketKey{Seconds: midnight.Unix(), Date: midnight.Format(ScheduledDateLayout)}
}
