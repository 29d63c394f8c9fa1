// Package report renders a job's annotations as an XLSX workbook.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/hyperjump/chushaku/internal/models"
	"github.com/xuri/excelize/v2"
)

// AnnotationsSheet lists one row per comment.
const AnnotationsSheet = "Annotations"

// JobSheet holds the job summary.
const JobSheet = "Job"

// maxCellChars is the largest text Excel accepts in one cell.
const maxCellChars = 32767

var header = []any{"Comment ID", "Paragraph", "Offset", "Match", "Author", "Context"}

// Write renders job and its annotations to w.
func Write(w io.Writer, job *models.Job, annotations []*models.Annotation) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", AnnotationsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := f.SetSheetRow(AnnotationsSheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(AnnotationsSheet, "A1", "F1", bold); err != nil {
		return err
	}
	for i, a := range annotations {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{a.CommentID, a.Paragraph, a.Offset, a.Text, a.Author, truncate(a.Context, maxCellChars)}
		if err := f.SetSheetRow(AnnotationsSheet, cell, &row); err != nil {
			return fmt.Errorf("write comment %d: %w", a.CommentID, err)
		}
	}
	if err := f.SetColWidth(AnnotationsSheet, "D", "D", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(AnnotationsSheet, "F", "F", 80); err != nil {
		return err
	}

	if _, err := f.NewSheet(JobSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	summary := [][]any{
		{"Job ID", job.ID},
		{"Document ID", job.DocumentID},
		{"Source", job.SourcePath},
		{"Output", job.OutputPath},
		{"Phrase", job.Phrase},
		{"Case Sensitive", job.CaseSensitive},
		{"Status", string(job.Status)},
		{"Matches", job.Matches},
		{"Created", job.CreatedAt.Format("2006-01-02 15:04:05")},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(JobSheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(JobSheet, "A1", fmt.Sprintf("A%d", len(summary)), bold); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}

// Bytes renders the workbook in memory.
func Bytes(job *models.Job, annotations []*models.Annotation) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, job, annotations); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save renders the workbook to path.
func Save(path string, job *models.Job, annotations []*models.Annotation) error {
	data, err := Bytes(job, annotations)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// truncate cuts s to at most max characters, marking the cut with "...".
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max-3 {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
