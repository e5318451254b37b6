package runs

import (
	"errors"
	"slices"
)

// ErrNegativeKeep indicates a retention count below zero.
var ErrNegativeKeep = errors.New("retention count must not be negative")

// SelectForDeletion returns the run identifiers outside the retained buckets.
//
// Branches absent from activeBranches lose every run. Active branches keep their
// newest keep buckets. Identifiers are ordered by branch encounter order, then by
// descending bucket key, then by run order within the bucket.
func SelectForDeletion(groups *BranchGroups, activeBranches []string, keep int) ([]int64, error) {
	if keep < 0 {
		return nil, ErrNegativeKeep
	}

	var selected []int64
	for _, branch := range groups.Branches() {
		retained := 0
		if slices.Contains(activeBranches, branch) {
			retained = keep
		}

		for index, key := range groups.Keys(branch) {
			if index < retained {
				continue
			}
			bucket, _ := groups.Bucket(branch, key)
			selected = append(selected, bucket.RunIDs...)
		}
	}

	return selected, nil
}
