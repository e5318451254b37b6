package ui

import (
	"fmt"
	"io"
)

const (
	plannedRunMessageTemplateConstant = "would delete run %d"
	deletedRunMessageTemplateConstant = "deleted run %d"
	failedRunMessageTemplateConstant  = "failed to delete run %d"
	skippedRunMessageTemplateConstant = "skipped run %d (interrupted)"
	summaryMessageTemplateConstant    = "%s: %d runs in %d buckets across %d active branches, %d selected, %d deleted, %d failed"
	dryRunSuffixConstant              = " (dry run)"
	reportLineTemplateConstant        = "%s\n"
)

// RunReportSummary carries the totals printed at the end of a pruning pass.
type RunReportSummary struct {
	Repository        string
	RunCount          int
	BucketCount       int
	ActiveBranchCount int
	SelectedCount     int
	DeletedCount      int
	FailedCount       int
	DryRun            bool
}

// RunReportFormatter builds the report lines for workflow run deletions.
type RunReportFormatter struct{}

// BuildPlannedMessage describes a run a dry run would delete.
func (formatter RunReportFormatter) BuildPlannedMessage(runIdentifier int64) string {
	return fmt.Sprintf(plannedRunMessageTemplateConstant, runIdentifier)
}

// BuildDeletedMessage describes a deleted run.
func (formatter RunReportFormatter) BuildDeletedMessage(runIdentifier int64) string {
	return fmt.Sprintf(deletedRunMessageTemplateConstant, runIdentifier)
}

// BuildFailedMessage describes a run whose deletion failed.
func (formatter RunReportFormatter) BuildFailedMessage(runIdentifier int64) string {
	return fmt.Sprintf(failedRunMessageTemplateConstant, runIdentifier)
}

// BuildSkippedMessage describes a run whose deletion was never attempted.
func (formatter RunReportFormatter) BuildSkippedMessage(runIdentifier int64) string {
	return fmt.Sprintf(skippedRunMessageTemplateConstant, runIdentifier)
}

// BuildSummaryMessage describes the totals of a pruning pass.
func (formatter RunReportFormatter) BuildSummaryMessage(summary RunReportSummary) string {
	message := fmt.Sprintf(
		summaryMessageTemplateConstant,
		summary.Repository,
		summary.RunCount,
		summary.BucketCount,
		summary.ActiveBranchCount,
		summary.SelectedCount,
		summary.DeletedCount,
		summary.FailedCount,
	)
	if summary.DryRun {
		return message + dryRunSuffixConstant
	}
	return message
}

// RunReportWriter writes report lines to an output stream.
type RunReportWriter struct {
	writer    io.Writer
	formatter RunReportFormatter
}

// NewRunReportWriter constructs a RunReportWriter; a nil writer discards output.
func NewRunReportWriter(writer io.Writer) *RunReportWriter {
	if writer == nil {
		writer = io.Discard
	}
	return &RunReportWriter{writer: writer}
}

// Planned reports runs a dry run would delete.
func (reportWriter *RunReportWriter) Planned(runIdentifiers []int64) {
	for _, runIdentifier := range runIdentifiers {
		reportWriter.writeLine(reportWriter.formatter.BuildPlannedMessage(runIdentifier))
	}
}

// Deleted reports a deleted run.
func (reportWriter *RunReportWriter) Deleted(runIdentifier int64) {
	reportWriter.writeLine(reportWriter.formatter.BuildDeletedMessage(runIdentifier))
}

// Failed reports a run whose deletion failed.
func (reportWriter *RunReportWriter) Failed(runIdentifier int64) {
	reportWriter.writeLine(reportWriter.formatter.BuildFailedMessage(runIdentifier))
}

// Skipped reports a run left in place because the pass was interrupted.
func (reportWriter *RunReportWriter) Skipped(runIdentifier int64) {
	reportWriter.writeLine(reportWriter.formatter.BuildSkippedMessage(runIdentifier))
}

// Summary reports the totals of a pruning pass.
func (reportWriter *RunReportWriter) Summary(summary RunReportSummary) {
	reportWriter.writeLine(reportWriter.formatter.BuildSummaryMessage(summary))
}

func (reportWriter *RunReportWriter) writeLine(message string) {
	fmt.Fprintf(reportWriter.writer, reportLineTemplateConstant, message)
}
