// Package githubapi wraps the GitHub REST endpoints runsweep depends on: branch
// listing, workflow run listing, and workflow run deletion.
//
// The client authenticates with basic auth, applies a per-request timeout, waits
// out secondary rate limits, and revalidates cached pages through ETags.
package githubapi
