package runs

import (
	"sort"
	"strconv"
)

const (
	// ScheduledBranchName is the pseudo-branch that collects runs triggered by a schedule.
	ScheduledBranchName = "scheduled"
	// ScheduledEventName is the workflow run event reported for cron-triggered runs.
	ScheduledEventName = "schedule"
	// ScheduledDateLayout formats the UTC calendar date keying scheduled buckets.
	ScheduledDateLayout = "2006-01-02"
)

// BucketKey orders retention buckets within a branch.
//
// Commit buckets carry the commit timestamp in Unix seconds and an empty Date.
// Scheduled buckets carry the UTC calendar date together with the Unix seconds of
// that date's midnight.
type BucketKey struct {
	Seconds int64
	Date    string
}

// String renders the key as the date for scheduled buckets and the seconds otherwise.
func (key BucketKey) String() string {
	if len(key.Date) > 0 {
		return key.Date
	}
	return strconv.FormatInt(key.Seconds, 10)
}

// newerThan reports whether key sorts before other in descending retention order.
func (key BucketKey) newerThan(other BucketKey) bool {
	if key.Seconds != other.Seconds {
		return key.Seconds > other.Seconds
	}
	return key.Date > other.Date
}

// Bucket holds the runs sharing one retention key.
type Bucket struct {
	Commit string
	RunIDs []int64
}

// BranchGroups maps branch names to their retention buckets while remembering
// the order in which branches were first encountered.
type BranchGroups struct {
	branchOrder []string
	buckets     map[string]map[BucketKey]*Bucket
}

// NewBranchGroups returns an empty grouping.
func NewBranchGroups() *BranchGroups {
	return &BranchGroups{buckets: map[string]map[BucketKey]*Bucket{}}
}

// Add files a run under the branch and key, creating the bucket with commit when absent.
func (groups *BranchGroups) Add(branch string, key BucketKey, commit string, runID int64) {
	branchBuckets, branchExists := groups.buckets[branch]
	if !branchExists {
		branchBuckets = map[BucketKey]*Bucket{}
		groups.buckets[branch] = branchBuckets
		groups.branchOrder = append(groups.branchOrder, branch)
	}

	bucket, bucketExists := branchBuckets[key]
	if !bucketExists {
		bucket = &Bucket{Commit: commit}
		branchBuckets[key] = bucket
	}
	bucket.RunIDs = append(bucket.RunIDs, runID)
}

// Branches returns branch names in first-encounter order.
func (groups *BranchGroups) Branches() []string {
	return append([]string(nil), groups.branchOrder...)
}

// Keys returns the bucket keys of a branch, newest first.
func (groups *BranchGroups) Keys(branch string) []BucketKey {
	branchBuckets := groups.buckets[branch]
	keys := make([]BucketKey, 0, len(branchBuckets))
	for key := range branchBuckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(leftIndex, rightIndex int) bool {
		return keys[leftIndex].newerThan(keys[rightIndex])
	})
	return keys
}

// Bucket returns the bucket stored under branch and key.
func (groups *BranchGroups) Bucket(branch string, key BucketKey) (Bucket, bool) {
	bucket, exists := groups.buckets[branch][key]
	if !exists {
		return Bucket{}, false
	}
	return Bucket{Commit: bucket.Commit, RunIDs: append([]int64(nil), bucket.RunIDs...)}, true
}

// BranchCount reports the number of grouped branches.
func (groups *BranchGroups) BranchCount() int {
	return len(groups.branchOrder)
}

// BucketCount reports the number of buckets across all branches.
func (groups *BranchGroups) BucketCount() int {
	total := 0
	for _, branchBuckets := range groups.buckets {
		total += len(branchBuckets)
	}
	return total
}

// RunCount reports the number of grouped run identifiers.
func (groups *BranchGroups) RunCount() int {
	total := 0
	for _, branchBuckets := range groups.buckets {
		for _, bucket := range branchBuckets {
			total += len(bucket.RunIDs)
		}
	}
	return total
}
