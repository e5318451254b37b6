// Package prune orchestrates workflow run retention: it lists active branches,
// fetches workflow runs, groups them into retention buckets, and deletes the runs
// outside the retained buckets.
package prune
