// Package utils exposes reusable helpers consumed by the runsweep CLI.
//
// It houses the ConfigurationLoader, which layers embedded defaults, configuration
// files, and RUNSWEEP_* environment variables through Viper, and the LoggerFactory,
// which builds zap loggers in structured or console format.
package utils
