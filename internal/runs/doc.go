// Package runs groups workflow runs into per-branch retention buckets and selects
// the runs that fall outside the retained buckets.
package runs
