// Package cli provides CLI output helpers for Chushaku.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hyperjump/chushaku/internal/models"
	"github.com/hyperjump/chushaku/internal/processor"
	"github.com/hyperjump/chushaku/internal/storage"
	"github.com/hyperjump/chushaku/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// contextRadius is how many runes of paragraph text surround a match in text output.
const contextRadius = 40

const rule = "─────────────────────────────────────────────────────────"

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d annotations in %dms", response.Total, response.QueryTime)
	if response.AutoFuzzy {
		fmt.Fprint(w, " (no exact matches, showing fuzzy results)")
	}
	fmt.Fprint(w, "\n\n")
	for _, result := range response.Results {
		a := result.Annotation
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", result.Rank, result.Score)
		fmt.Fprintf(w, "Job: %s | Comment: %d | Paragraph: %d\n", a.JobID, a.CommentID, a.Paragraph)
		fmt.Fprintf(w, "\n%s\n\n", utils.Excerpt(a.Context, a.Offset, a.Length, contextRadius))
	}
	return nil
}

// WriteJob writes a job and its annotations.
func WriteJob(w io.Writer, detail *models.JobDetail, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, detail)
	}
	job := detail.Job
	fmt.Fprintf(w, "Job:      %s\n", job.ID)
	fmt.Fprintf(w, "Status:   %s\n", job.Status)
	fmt.Fprintf(w, "Source:   %s\n", job.SourcePath)
	if job.OutputPath != "" {
		fmt.Fprintf(w, "Output:   %s\n", job.OutputPath)
	}
	fmt.Fprintf(w, "Phrase:   %q (case-sensitive: %t)\n", job.Phrase, job.CaseSensitive)
	fmt.Fprintf(w, "Matches:  %d\n", job.Matches)
	if job.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", job.Error)
	}
	if len(detail.Annotations) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COMMENT\tPARAGRAPH\tOFFSET\tCONTEXT")
	for _, a := range detail.Annotations {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\n", a.CommentID, a.Paragraph, a.Offset,
			utils.Excerpt(a.Context, a.Offset, a.Length, contextRadius))
	}
	return tw.Flush()
}

// WriteJobs writes a job listing, newest first as given.
func WriteJobs(w io.Writer, jobs []*models.Job, format OutputFormat) error {
	if format == OutputJSON {
		if jobs == nil {
			jobs = []*models.Job{}
		}
		return writeJSON(w, jobs)
	}
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSTATUS\tMATCHES\tSOURCE")
	for _, job := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", job.ID, job.CreatedAt.Format("2006-01-02 15:04:05"),
			job.Status, job.Matches, utils.Truncate(job.SourcePath, 60))
	}
	return tw.Flush()
}

// WriteStatus writes journal and index counts with their disk usage.
func WriteStatus(w io.Writer, status *processor.Status, usage storage.Usage, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{
			"jobs":             status.Jobs,
			"annotations":      status.Annotations,
			"indexed":          status.Indexed,
			"disk_usage":       usage,
			"disk_usage_bytes": usage.Total(),
		})
	}
	fmt.Fprintf(w, "Jobs:         %d\n", status.Jobs)
	fmt.Fprintf(w, "Annotations:  %d\n", status.Annotations)
	fmt.Fprintf(w, "Indexed:      %d\n", status.Indexed)
	fmt.Fprintf(w, "Disk usage:   %s (journal %s, index %s)\n",
		FormatBytes(usage.Total()), FormatBytes(usage.DatabaseBytes), FormatBytes(usage.IndexBytes))
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
