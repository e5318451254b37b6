package prune

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/runsweep/internal/githubapi"
	"github.com/temirov/runsweep/internal/githubauth"
	"github.com/temirov/runsweep/internal/ui"
)

const (
	commandUseConstant                     = "runsweep"
	commandShortDescriptionConstant        = "Delete stale GitHub Actions workflow runs"
	commandLongDescriptionConstant         = "runsweep keeps the newest workflow run buckets of every active branch, deletes every run of branches that no longer exist, and groups scheduled runs by UTC date."
	commandExecutionErrorTemplateConstant  = "workflow run pruning failed: %w"
	unexpectedArgumentsMessageConstant     = "runsweep does not accept positional arguments"
	repositoryFlagNameConstant             = "reponame"
	repositoryFlagShorthandConstant        = "r"
	repositoryFlagDescriptionConstant      = "Repository in owner/name form"
	usernameFlagNameConstant               = "username"
	usernameFlagShorthandConstant          = "u"
	usernameFlagDescriptionConstant        = "GitHub username used for basic authentication"
	tokenFlagNameConstant                  = "token"
	tokenFlagShorthandConstant             = "t"
	tokenFlagDescriptionConstant           = "GitHub personal access token"
	commitsFlagNameConstant                = "commits"
	commitsFlagShorthandConstant           = "c"
	commitsFlagDescriptionConstant         = "Number of newest commit buckets kept per active branch"
	branchListFlagNameConstant             = "branchlist"
	branchListFlagDescriptionConstant      = "Comma-separated active branch list used instead of querying GitHub"
	dryRunFlagNameConstant                 = "dry-run"
	dryRunFlagDescriptionConstant          = "Report the runs that would be deleted without deleting them"
	concurrencyFlagNameConstant            = "concurrency"
	concurrencyFlagDescriptionConstant     = "Number of concurrent delete requests"
	timeoutFlagNameConstant                = "timeout"
	timeoutFlagDescriptionConstant         = "Timeout applied to each GitHub request attempt"
	apiURLFlagNameConstant                 = "api-url"
	apiURLFlagDescriptionConstant          = "GitHub REST API base URL"
	runsInputFlagNameConstant              = "runs-input"
	runsInputFlagDescriptionConstant       = "Read workflow runs from a JSON snapshot instead of GitHub"
	runsOutputFlagNameConstant             = "runs-output"
	runsOutputFlagDescriptionConstant      = "Write fetched workflow runs to a JSON snapshot"
	environmentFileFlagNameConstant        = "env-file"
	environmentFileFlagDescriptionConstant = "Dotenv file consulted for credentials"
	environmentFileReadFailedConstant      = "unable to read environment file"
	logFieldEnvironmentFileConstant        = "env_file"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current prune configuration.
type ConfigurationProvider func() CommandConfiguration

// Client groups the GitHub operations the prune command depends on.
type Client interface {
	BranchLister
	RunLister
	RunDeleter
}

// ClientFactory creates a GitHub client from a resolved client configuration.
type ClientFactory func(configuration githubapi.ClientConfiguration) (Client, error)

// CommandBuilder assembles the Cobra command that prunes workflow runs.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	ClientFactory         ClientFactory
	EnvironmentLookup     githubauth.EnvironmentLookup
}

// Build constructs the prune command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().StringP(repositoryFlagNameConstant, repositoryFlagShorthandConstant, "", repositoryFlagDescriptionConstant)
	command.Flags().StringP(usernameFlagNameConstant, usernameFlagShorthandConstant, "", usernameFlagDescriptionConstant)
	command.Flags().StringP(tokenFlagNameConstant, tokenFlagShorthandConstant, "", tokenFlagDescriptionConstant)
	command.Flags().IntP(commitsFlagNameConstant, commitsFlagShorthandConstant, defaults.Keep, commitsFlagDescriptionConstant)
	command.Flags().String(branchListFlagNameConstant, "", branchListFlagDescriptionConstant)
	command.Flags().Bool(dryRunFlagNameConstant, false, dryRunFlagDescriptionConstant)
	command.Flags().Int(concurrencyFlagNameConstant, defaults.DeleteConcurrency, concurrencyFlagDescriptionConstant)
	command.Flags().Duration(timeoutFlagNameConstant, defaults.RequestTimeout, timeoutFlagDescriptionConstant)
	command.Flags().String(apiURLFlagNameConstant, "", apiURLFlagDescriptionConstant)
	command.Flags().String(runsInputFlagNameConstant, "", runsInputFlagDescriptionConstant)
	command.Flags().String(runsOutputFlagNameConstant, "", runsOutputFlagDescriptionConstant)
	command.Flags().String(environmentFileFlagNameConstant, "", environmentFileFlagDescriptionConstant)

	return command, nil
}

// commandSettings is the merged view of flags and configuration for one invocation.
type commandSettings struct {
	options             Options
	clientConfiguration githubapi.ClientConfiguration
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	logger := builder.resolveLogger()

	settings, settingsError := builder.resolveSettings(command, logger)
	if settingsError != nil {
		return settingsError
	}

	client, clientError := builder.resolveClientFactory()(settings.clientConfiguration)
	if clientError != nil {
		return ConfigurationError{Field: apiBaseURLFieldNameConstant, Cause: clientError}
	}

	service, serviceError := NewService(Dependencies{
		BranchLister: client,
		RunLister:    client,
		RunDeleter:   client,
		Logger:       logger,
	})
	if serviceError != nil {
		return serviceError
	}

	result, pruneError := service.Prune(command.Context(), settings.options)
	writeResult(command.OutOrStdout(), result, pruneError == nil)
	if pruneError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, pruneError)
	}

	return nil
}

func (builder *CommandBuilder) resolveSettings(command *cobra.Command, logger *zap.Logger) (commandSettings, error) {
	configuration := builder.resolveConfiguration()
	flags := command.Flags()

	repositoryFlagValue, _ := flags.GetString(repositoryFlagNameConstant)
	repository, repositoryError := githubapi.ParseRepository(selectStringValue(repositoryFlagValue, configuration.Repository))
	if repositoryError != nil {
		return commandSettings{}, ConfigurationError{Field: repositoryFieldNameConstant, Cause: repositoryError}
	}

	keepValue := configuration.Keep
	if flags.Changed(commitsFlagNameConstant) {
		keepValue, _ = flags.GetInt(commitsFlagNameConstant)
	}
	if keepValue < 0 {
		return commandSettings{}, ConfigurationError{Field: keepFieldNameConstant, Message: keepNonNegativeMessageConstant}
	}

	concurrencyValue := configuration.DeleteConcurrency
	if flags.Changed(concurrencyFlagNameConstant) {
		concurrencyValue, _ = flags.GetInt(concurrencyFlagNameConstant)
	}
	if concurrencyValue < 1 {
		return commandSettings{}, ConfigurationError{Field: concurrencyFieldNameConstant, Message: concurrencyPositiveMessageConstant}
	}

	timeoutValue := configuration.RequestTimeout
	if flags.Changed(timeoutFlagNameConstant) {
		timeoutValue, _ = flags.GetDuration(timeoutFlagNameConstant)
	}
	if timeoutValue < 0 {
		return commandSettings{}, ConfigurationError{Field: timeoutFieldNameConstant, Message: timeoutNonNegativeMessageConstant}
	}
	if timeoutValue == 0 {
		timeoutValue = githubapi.DefaultRequestTimeout
	}

	pageSizeValue := configuration.PageSize
	if pageSizeValue == 0 {
		pageSizeValue = DefaultPageSize
	}
	if pageSizeValue < 1 || pageSizeValue > githubapi.MaximumPageSize {
		return commandSettings{}, ConfigurationError{Field: pageSizeFieldNameConstant, Message: pageSizeOutOfRangeMessageConstant}
	}

	dryRunValue := configuration.DryRun
	if flags.Changed(dryRunFlagNameConstant) {
		dryRunValue, _ = flags.GetBool(dryRunFlagNameConstant)
	}

	branchListFlagValue, _ := flags.GetString(branchListFlagNameConstant)
	branches := configuration.Branches
	if flags.Changed(branchListFlagNameConstant) {
		branches = ParseBranchList(branchListFlagValue)
	}

	apiURLFlagValue, _ := flags.GetString(apiURLFlagNameConstant)
	runsInputFlagValue, _ := flags.GetString(runsInputFlagNameConstant)
	runsOutputFlagValue, _ := flags.GetString(runsOutputFlagNameConstant)

	credentials, credentialsError := builder.resolveCredentials(flags, configuration, logger)
	if credentialsError != nil {
		return commandSettings{}, credentialsError
	}

	return commandSettings{
		options: Options{
			Repository:        repository,
			Keep:              keepValue,
			Branches:          branches,
			PageSize:          pageSizeValue,
			DeleteConcurrency: concurrencyValue,
			DryRun:            dryRunValue,
			RunsInputPath:     selectStringValue(runsInputFlagValue, configuration.RunsInput),
			RunsOutputPath:    selectStringValue(runsOutputFlagValue, configuration.RunsOutput),
		},
		clientConfiguration: githubapi.ClientConfiguration{
			BaseURL:        selectStringValue(apiURLFlagValue, configuration.APIBaseURL),
			Credentials:    credentials,
			RequestTimeout: timeoutValue,
			Logger:         logger,
		},
	}, nil
}

func (builder *CommandBuilder) resolveCredentials(flags *pflag.FlagSet, configuration CommandConfiguration, logger *zap.Logger) (githubauth.Credentials, error) {
	usernameFlagValue, _ := flags.GetString(usernameFlagNameConstant)
	tokenFlagValue, _ := flags.GetString(tokenFlagNameConstant)
	environmentFileFlagValue, _ := flags.GetString(environmentFileFlagNameConstant)

	environmentFilePath := selectStringValue(environmentFileFlagValue, configuration.EnvironmentFile)
	environment, environmentError := githubauth.ReadEnvironmentFile(environmentFilePath)
	if environmentError != nil {
		logger.Warn(environmentFileReadFailedConstant, zap.String(logFieldEnvironmentFileConstant, environmentFilePath), zap.Error(environmentError))
		environment = map[string]string{}
	}

	explicitCredentials := githubauth.Credentials{
		Username: selectStringValue(usernameFlagValue, configuration.Username),
		Token:    selectStringValue(tokenFlagValue, configuration.Token),
	}

	credentials, resolveError := githubauth.NewResolver(builder.EnvironmentLookup).Resolve(explicitCredentials, environment)
	if resolveError != nil {
		return githubauth.Credentials{}, ConfigurationError{Field: credentialsFieldNameConstant, Cause: resolveError}
	}
	return credentials, nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

func (builder *CommandBuilder) resolveClientFactory() ClientFactory {
	if builder.ClientFactory != nil {
		return builder.ClientFactory
	}
	return func(configuration githubapi.ClientConfiguration) (Client, error) {
		client, clientError := githubapi.NewClient(configuration)
		if clientError != nil {
			return nil, clientError
		}
		return client, nil
	}
}

func writeResult(writer io.Writer, result Result, includeSummary bool) {
	reportWriter := ui.NewRunReportWriter(writer)
	if result.DryRun {
		reportWriter.Planned(result.SelectedRunIDs)
	}
	for _, outcome := range result.Outcomes {
		switch {
		case outcome.Skipped:
			reportWriter.Skipped(outcome.RunID)
		case outcome.Error != nil:
			reportWriter.Failed(outcome.RunID)
		default:
			reportWriter.Deleted(outcome.RunID)
		}
	}

	if !includeSummary {
		return
	}

	reportWriter.Summary(ui.RunReportSummary{
		Repository:        result.Repository.String(),
		RunCount:          result.GroupedRunCount,
		BucketCount:       result.BucketCount,
		ActiveBranchCount: len(result.ActiveBranches),
		SelectedCount:     len(result.SelectedRunIDs),
		DeletedCount:      len(result.DeletedRunIDs),
		FailedCount:       len(result.FailedRunIDs),
		DryRun:            result.DryRun,
	})
}

func selectStringValue(flagValue string, configurationValue string) string {
	trimmedFlagValue := strings.TrimSpace(flagValue)
	if len(trimmedFlagValue) > 0 {
		return trimmedFlagValue
	}
	return strings.TrimSpace(configurationValue)
}
