package utils

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	logLevelDebugStringConstant          = "debug"
	logLevelInfoStringConstant           = "info"
	logLevelWarnStringConstant           = "warn"
	logLevelErrorStringConstant          = "error"
	logFormatStructuredStringConstant    = "structured"
	logFormatConsoleStringConstant       = "console"
	timeEncoderKeyConstant               = "ts"
	messageEncoderKeyConstant            = "msg"
	levelEncoderKeyConstant              = "level"
	callerEncoderKeyConstant             = "caller"
	unsupportedLogLevelTemplateConstant  = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant = "unsupported log format: %s"
)

// LogLevel enumerates supported logging granularities.
type LogLevel string

// Exported log level constants for reuse across packages.
const (
	LogLevelDebug LogLevel = LogLevel(logLevelDebugStringConstant)
	LogLevelInfo  LogLevel = LogLevel(logLevelInfoStringConstant)
	LogLevelWarn  LogLevel = LogLevel(logLevelWarnStringConstant)
	LogLevelError LogLevel = LogLevel(logLevelErrorStringConstant)
)

// LogFormat enumerates supported logger output encodings.
type LogFormat string

// Exported log format constants for reuse across packages.
const (
	LogFormatStructured LogFormat = LogFormat(logFormatStructuredStringConstant)
	LogFormatConsole    LogFormat = LogFormat(logFormatConsoleStringConstant)
)

var logLevelMapping = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

// LoggerFactory builds zap.Logger instances writing to a single diagnostic sink.
type LoggerFactory struct {
	diagnosticWriter io.Writer
}

// NewLoggerFactory constructs a logger factory writing diagnostics to standard error.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{diagnosticWriter: os.Stderr}
}

// NewLoggerFactoryWithWriter constructs a logger factory writing diagnostics to the provided writer.
func NewLoggerFactoryWithWriter(diagnosticWriter io.Writer) *LoggerFactory {
	if diagnosticWriter == nil {
		diagnosticWriter = os.Stderr
	}
	return &LoggerFactory{diagnosticWriter: diagnosticWriter}
}

// ParseLogLevel normalizes a textual log level.
func ParseLogLevel(rawLogLevel string) (LogLevel, error) {
	normalizedLogLevel := LogLevel(strings.ToLower(strings.TrimSpace(rawLogLevel)))
	if _, levelExists := logLevelMapping[normalizedLogLevel]; !levelExists {
		return "", fmt.Errorf(unsupportedLogLevelTemplateConstant, rawLogLevel)
	}
	return normalizedLogLevel, nil
}

// ParseLogFormat normalizes a textual log format.
func ParseLogFormat(rawLogFormat string) (LogFormat, error) {
	normalizedLogFormat := LogFormat(strings.ToLower(strings.TrimSpace(rawLogFormat)))
	switch normalizedLogFormat {
	case LogFormatStructured, LogFormatConsole:
		return normalizedLogFormat, nil
	default:
		return "", fmt.Errorf(unsupportedLogFormatTemplateConstant, rawLogFormat)
	}
}

// CreateLogger produces a zap.Logger honoring the requested log level and format.
func (factory *LoggerFactory) CreateLogger(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (*zap.Logger, error) {
	parsedLogLevel, levelError := ParseLogLevel(string(requestedLogLevel))
	if levelError != nil {
		return nil, levelError
	}

	parsedLogFormat, formatError := ParseLogFormat(string(requestedLogFormat))
	if formatError != nil {
		return nil, formatError
	}

	encoderConfiguration := zapcore.EncoderConfig{
		TimeKey:        timeEncoderKeyConstant,
		LevelKey:       levelEncoderKeyConstant,
		MessageKey:     messageEncoderKeyConstant,
		CallerKey:      callerEncoderKeyConstant,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	switch parsedLogFormat {
	case LogFormatConsole:
		encoderConfiguration.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfiguration)
	default:
		encoderConfiguration.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfiguration)
	}

	diagnosticWriter := factory.diagnosticWriter
	if diagnosticWriter == nil {
		diagnosticWriter = os.Stderr
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(diagnosticWriter), zap.NewAtomicLevelAt(logLevelMapping[parsedLogLevel]))
	return zap.New(core), nil
}
