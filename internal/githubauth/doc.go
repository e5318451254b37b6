// Package githubauth resolves the basic-auth credentials runsweep sends to the GitHub API.
package githubauth
