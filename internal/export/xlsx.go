// Package export renders a claim report as an Excel workbook for adjusters
// who review claims outside the API.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"claimflow/internal/domain"
)

// WriteReportXLSX writes a three-sheet workbook (Summary, Documents,
// Discrepancies) for one claim report.
func WriteReportXLSX(w io.Writer, runID string, report *domain.ClaimReport) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := writeSummarySheet(f, runID, report); err != nil {
		return err
	}
	if err := writeDocumentsSheet(f, report); err != nil {
		return err
	}
	if err := writeDiscrepanciesSheet(f, report); err != nil {
		return err
	}

	// The default sheet excelize creates becomes Summary; drop nothing.
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, runID string, report *domain.ClaimReport) error {
	const sheet = "Summary"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}

	missing := make([]string, 0, len(report.Validation.MissingDocuments))
	for _, t := range report.Validation.MissingDocuments {
		missing = append(missing, string(t))
	}

	rows := [][]interface{}{
		{"Run ID", runID},
		{"Decision", string(report.Decision.Status)},
		{"Reason", report.Decision.Reason},
		{"Confidence", report.Decision.Confidence},
		{"Validation Passed", report.Validation.Passed},
		{"Missing Documents", strings.Join(missing, ", ")},
		{"Recommended Actions", strings.Join(report.Decision.RecommendedActions, "; ")},
		{"Processing Time (s)", report.ProcessingTime},
		{"Processed At", report.ProcessedAt.Format("2006-01-02 15:04:05 MST")},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("summary cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("summary row %d: %w", i+1, err)
		}
	}
	return nil
}

func writeDocumentsSheet(f *excelize.File, report *domain.ClaimReport) error {
	const sheet = "Documents"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create documents sheet: %w", err)
	}

	header := []interface{}{"Filename", "Type", "Confidence", "Extracted Fields", "Processing Errors"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("documents header: %w", err)
	}
	for i, doc := range report.Documents {
		row := []interface{}{
			doc.Filename,
			string(doc.Type),
			doc.Confidence,
			doc.ExtractedData.FieldCount(),
			strings.Join(doc.ProcessingErrors, "; "),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("documents cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("documents row %d: %w", i+2, err)
		}
	}
	return nil
}

func writeDiscrepanciesSheet(f *excelize.File, report *domain.ClaimReport) error {
	const sheet = "Discrepancies"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create discrepancies sheet: %w", err)
	}

	header := []interface{}{"Field", "Document A", "Value A", "Document B", "Value B", "Description"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("discrepancies header: %w", err)
	}
	for i, d := range report.Validation.Discrepancies {
		row := []interface{}{
			d.Field,
			string(d.DocumentA),
			d.ValueA,
			string(d.DocumentB),
			d.ValueB,
			d.Description,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("discrepancies cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("discrepancies row %d: %w", i+2, err)
		}
	}
	return nil
}
