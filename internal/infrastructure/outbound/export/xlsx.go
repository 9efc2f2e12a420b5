// Package export writes conformance results as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/sophialabs/declarecheck/internal/infrastructure/outbound/report"
)

// Sheet names of the exported workbook.
const (
	SummarySheet   = "Summary"
	VerdictsSheet  = "Verdicts"
	MalformedSheet = "Malformed"
)

var summaryHeader = []any{
	"Constraint", "Satisfied", "Violated", "Possibly satisfied",
	"Possibly violated", "Skipped", "Conformance",
}

// WriteXLSX writes a workbook with a summary sheet, a trace by constraint
// verdict matrix, and the malformed constraints.
func WriteXLSX(w io.Writer, ctx report.Context) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	for _, name := range []string{VerdictsSheet, MalformedSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %q: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	if err := writeSummary(f, ctx, bold); err != nil {
		return err
	}
	if err := writeVerdicts(f, ctx, bold); err != nil {
		return err
	}
	if err := writeMalformed(f, ctx, bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, ctx report.Context, headerStyle int) error {
	if err := writeRow(f, SummarySheet, 1, summaryHeader); err != nil {
		return err
	}
	if err := styleHeader(f, SummarySheet, len(summaryHeader), headerStyle); err != nil {
		return err
	}

	for i, r := range ctx.Rows {
		row := []any{
			r.Constraint, r.Satisfied, r.Violated, r.PossiblySatisfied,
			r.PossiblyViolated, r.Skipped, r.Conformance,
		}
		if err := writeRow(f, SummarySheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeVerdicts(f *excelize.File, ctx report.Context, headerStyle int) error {
	header := make([]any, 0, len(ctx.Rows)+1)
	header = append(header, "Trace")
	for _, r := range ctx.Rows {
		header = append(header, r.Constraint)
	}
	if err := writeRow(f, VerdictsSheet, 1, header); err != nil {
		return err
	}
	if err := styleHeader(f, VerdictsSheet, len(header), headerStyle); err != nil {
		return err
	}

	for i, trace := range ctx.TraceKeys {
		row := make([]any, 0, len(header))
		row = append(row, trace)
		for _, r := range ctx.Rows {
			row = append(row, ctx.State(trace, r.Constraint))
		}
		if err := writeRow(f, VerdictsSheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeMalformed(f *excelize.File, ctx report.Context, headerStyle int) error {
	if err := writeRow(f, MalformedSheet, 1, []any{"Constraint"}); err != nil {
		return err
	}
	if err := styleHeader(f, MalformedSheet, 1, headerStyle); err != nil {
		return err
	}
	for i, key := range ctx.Malformed {
		if err := writeRow(f, MalformedSheet, i+2, []any{key}); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, rowNum, err)
	}
	return nil
}

func styleHeader(f *excelize.File, sheet string, cols, style int) error {
	last, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}
