package attendance

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Report renders the review sheet for an upload as a PDF.
func (s *Service) Report(ctx context.Context, uploadID string) ([]byte, error) {
	upload, err := s.Get(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	return RenderReport(upload)
}

// RenderReport lays out the upload counts followed by every unmatched device
// name so that HR can fix the directory and re-import.
func RenderReport(u Upload) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Attendance upload "+u.ID, true)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Attendance upload review")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Upload: %s", u.ID),
		fmt.Sprintf("File: %s", u.FileName),
		fmt.Sprintf("Site: %s", u.SiteID),
		fmt.Sprintf("Period: %s to %s", u.DateFrom.Format(time.DateOnly), u.DateTo.Format(time.DateOnly)),
		fmt.Sprintf("Status: %s", u.Status),
	}
	if u.ErrorMessage != "" {
		lines = append(lines, fmt.Sprintf("Error: %s", u.ErrorMessage))
	}
	for _, line := range lines {
		pdf.Cell(0, 8, line)
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Records")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 12)
	counts := []struct {
		label string
		value int
	}{
		{"Total", u.TotalRecords},
		{"Matched", u.MatchedRecords},
		{"Unmatched", u.UnmatchedRecords},
		{"Skipped", u.SkippedRecords},
		{"Days updated", u.DaysUpserted},
	}
	for _, c := range counts {
		pdf.CellFormat(60, 7, c.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", c.value), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Unmatched names (%d)", len(u.UnmatchedNames)))
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	if len(u.UnmatchedNames) == 0 {
		pdf.Cell(0, 7, "None")
		pdf.Ln(7)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, name := range u.UnmatchedNames {
		pdf.Cell(0, 7, tr(name))
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render upload report: %w", err)
	}
	return buf.Bytes(), nil
}
