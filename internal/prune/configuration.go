package prune

import (
	"strings"
	"time"

	"github.com/temirov/runsweep/internal/githubapi"
)

const (
	// DefaultKeep is the number of retention buckets kept per active branch.
	DefaultKeep = 1
	// DefaultPageSize is the workflow run page size requested from the API.
	DefaultPageSize = githubapi.MaximumPageSize
	// DefaultDeleteConcurrency issues deletes strictly one after another.
	DefaultDeleteConcurrency = 1
	// DefaultEnvironmentFile is the dotenv file consulted for credentials.
	DefaultEnvironmentFile = ".env"

	configurationKeySeparatorConstant = "."
	repositoryConfigurationKey        = "repository"
	usernameConfigurationKey          = "username"
	tokenConfigurationKey             = "token"
	keepConfigurationKey              = "keep"
	branchesConfigurationKey          = "branches"
	apiBaseURLConfigurationKey        = "api_base_url"
	requestTimeoutConfigurationKey    = "request_timeout"
	pageSizeConfigurationKey          = "page_size"
	deleteConcurrencyConfigurationKey = "delete_concurrency"
	dryRunConfigurationKey            = "dry_run"
	environmentFileConfigurationKey   = "env_file"
	runsInputConfigurationKey         = "runs_input"
	runsOutputConfigurationKey        = "runs_output"
)

// CommandConfiguration captures configuration values for the prune command.
type CommandConfiguration struct {
	Repository        string        `mapstructure:"repository"`
	Username          string        `mapstructure:"username"`
	Token             string        `mapstructure:"token"`
	Keep              int           `mapstructure:"keep"`
	Branches          []string      `mapstructure:"branches"`
	APIBaseURL        string        `mapstructure:"api_base_url"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	PageSize          int           `mapstructure:"page_size"`
	DeleteConcurrency int           `mapstructure:"delete_concurrency"`
	DryRun            bool          `mapstructure:"dry_run"`
	EnvironmentFile   string        `mapstructure:"env_file"`
	RunsInput         string        `mapstructure:"runs_input"`
	RunsOutput        string        `mapstructure:"runs_output"`
}

// DefaultCommandConfiguration provides baseline configuration values for the prune command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Keep:              DefaultKeep,
		APIBaseURL:        githubapi.DefaultBaseURL,
		RequestTimeout:    githubapi.DefaultRequestTimeout,
		PageSize:          DefaultPageSize,
		DeleteConcurrency: DefaultDeleteConcurrency,
		EnvironmentFile:   DefaultEnvironmentFile,
	}
}

// DefaultConfigurationValues returns the defaults keyed under the provided configuration prefix.
func DefaultConfigurationValues(configurationPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	qualify := func(key string) string {
		if len(configurationPrefix) == 0 {
			return key
		}
		return configurationPrefix + configurationKeySeparatorConstant + key
	}

	return map[string]any{
		qualify(repositoryConfigurationKey):        defaults.Repository,
		qualify(usernameConfigurationKey):          defaults.Username,
		qualify(tokenConfigurationKey):             defaults.Token,
		qualify(keepConfigurationKey):              defaults.Keep,
		qualify(branchesConfigurationKey):          []string{},
		qualify(apiBaseURLConfigurationKey):        defaults.APIBaseURL,
		qualify(requestTimeoutConfigurationKey):    defaults.RequestTimeout.String(),
		qualify(pageSizeConfigurationKey):          defaults.PageSize,
		qualify(deleteConcurrencyConfigurationKey): defaults.DeleteConcurrency,
		qualify(dryRunConfigurationKey):            defaults.DryRun,
		qualify(environmentFileConfigurationKey):   defaults.EnvironmentFile,
		qualify(runsInputConfigurationKey):         defaults.RunsInput,
		qualify(runsOutputConfigurationKey):        defaults.RunsOutput,
	}
}

// Sanitize trims configured values and removes empty branch entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Repository = strings.TrimSpace(configuration.Repository)
	sanitized.Username = strings.TrimSpace(configuration.Username)
	sanitized.Token = strings.TrimSpace(configuration.Token)
	sanitized.Branches = sanitizeBranches(configuration.Branches)
	sanitized.APIBaseURL = strings.TrimSpace(configuration.APIBaseURL)
	sanitized.EnvironmentFile = strings.TrimSpace(configuration.EnvironmentFile)
	sanitized.RunsInput = strings.TrimSpace(configuration.RunsInput)
	sanitized.RunsOutput = strings.TrimSpace(configuration.RunsOutput)
	return sanitized
}

// ParseBranchList splits a comma-separated branch list, dropping blank entries.
func ParseBranchList(rawBranchList string) []string {
	return sanitizeBranches(strings.Split(rawBranchList, ","))
}

func sanitizeBranches(candidateBranches []string) []string {
	sanitizedBranches := make([]string, 0, len(candidateBranches))
	for _, candidateBranch := range candidateBranches {
		trimmedBranch := strings.TrimSpace(candidateBranch)
		if len(trimmedBranch) == 0 {
			continue
		}
		sanitizedBranches = append(sanitizedBranches, trimmedBranch)
	}
	if len(sanitizedBranches) == 0 {
		return nil
	}
	return sanitizedBranches
}
