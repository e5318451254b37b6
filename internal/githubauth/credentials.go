package githubauth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names consulted for GitHub credentials, in preference order.
const (
	EnvRunsweepToken    = "RUNSWEEP_TOKEN"
	EnvGitHubCLIToken   = "GH_TOKEN"
	EnvGitHubToken      = "GITHUB_TOKEN"
	EnvGitHubAPIToken   = "GITHUB_API_TOKEN"
	EnvRunsweepUsername = "RUNSWEEP_USERNAME"
	EnvGitHubActor      = "GITHUB_ACTOR"
)

const (
	credentialsIncompleteMessageConstant = "authentication incomplete (either user or token are missing)"
	environmentFileReadTemplateConstant  = "unable to read environment file %s: %w"
)

// ErrCredentialsIncomplete indicates that either the username or the token could not be resolved.
var ErrCredentialsIncomplete = errors.New(credentialsIncompleteMessageConstant)

var tokenPreference = []string{
	EnvRunsweepToken,
	EnvGitHubCLIToken,
	EnvGitHubToken,
	EnvGitHubAPIToken,
}

var usernamePreference = []string{
	EnvRunsweepUsername,
	EnvGitHubActor,
}

// Credentials pairs the basic-auth username with its personal access token.
type Credentials struct {
	Username string
	Token    string
}

// EnvironmentLookup obtains a process environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// Resolver resolves credentials from explicit values, a dotenv file, and the process environment.
type Resolver struct {
	environmentLookup EnvironmentLookup
}

// NewResolver constructs a Resolver; a nil lookup falls back to os.LookupEnv.
func NewResolver(environmentLookup EnvironmentLookup) *Resolver {
	if environmentLookup == nil {
		environmentLookup = os.LookupEnv
	}
	return &Resolver{environmentLookup: environmentLookup}
}

// ReadEnvironmentFile loads KEY=VALUE pairs from a dotenv file. A missing file yields an empty map.
func ReadEnvironmentFile(environmentFilePath string) (map[string]string, error) {
	trimmedPath := strings.TrimSpace(environmentFilePath)
	if len(trimmedPath) == 0 {
		return map[string]string{}, nil
	}

	environment, readError := godotenv.Read(trimmedPath)
	if readError != nil {
		if errors.Is(readError, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf(environmentFileReadTemplateConstant, trimmedPath, readError)
	}
	return environment, nil
}

// Resolve fills missing username and token values from the provided environment map first
// and the process environment second. Both values must be present afterwards.
func (resolver *Resolver) Resolve(explicit Credentials, environment map[string]string) (Credentials, error) {
	resolved := Credentials{
		Username: strings.TrimSpace(explicit.Username),
		Token:    strings.TrimSpace(explicit.Token),
	}

	if len(resolved.Token) == 0 {
		resolved.Token = resolver.firstValue(tokenPreference, environment)
	}
	if len(resolved.Username) == 0 {
		resolved.Username = resolver.firstValue(usernamePreference, environment)
	}

	if len(resolved.Username) == 0 || len(resolved.Token) == 0 {
		return Credentials{}, ErrCredentialsIncomplete
	}
	return resolved, nil
}

func (resolver *Resolver) firstValue(preference []string, environment map[string]string) string {
	for _, key := range preference {
		if value, ok := lookup(environment, key); ok {
			return value
		}
	}
	for _, key := range preference {
		if value, ok := resolver.environmentLookup(key); ok {
			value = strings.TrimSpace(value)
			if len(value) > 0 {
				return value
			}
		}
	}
	return ""
}

func lookup(environment map[string]string, key string) (string, bool) {
	if environment == nil {
		return "", false
	}
	value, exists := environment[key]
	if !exists {
		return "", false
	}
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return "", false
	}
	return value, true
}
