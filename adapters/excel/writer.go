package excel

import (
	"fmt"
	"log"
	"math"
	"time"

	"gozunis/domain/integration"
	"gozunis/domain/run"

	"github.com/xuri/excelize/v2"
)

// Writer exports runs and benchmark tables to xlsx workbooks
type Writer struct{}

// NewWriter creates a workbook writer
func NewWriter() *Writer { return &Writer{} }

// WriteRun writes a Summary sheet with the manifest and pooled result, and a
// History sheet with one row per iteration.
func (w *Writer) WriteRun(path string, r *run.Run) error {
	start := time.Now()
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("failed to rename summary sheet: %w", err)
	}
	plan := r.Manifest.Config.Plan()
	summary := [][]interface{}{
		{"run_id", r.Manifest.RunID.String()},
		{"integrand", r.Manifest.Integrand.Name},
		{"dims", r.Manifest.Integrand.Dims},
		{"variant", string(r.Manifest.Variant)},
		{"seed", r.Manifest.Seed},
		{"fingerprint", string(r.Manifest.Fingerprint.Fingerprint)},
		{"n_iter_survey", plan.NIterSurvey},
		{"n_iter_refine", plan.NIterRefine},
		{"n_points_survey", plan.NPointsSurvey},
		{"n_points_refine", plan.NPointsRefine},
		{"use_survey", plan.UseSurvey},
		{"value", r.Value},
		{"error", r.Error},
		{"interrupted", r.Interrupted},
	}
	for i, row := range summary {
		if err := setRow(f, SheetSummary, i+1, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SheetHistory); err != nil {
		return fmt.Errorf("failed to create history sheet: %w", err)
	}
	if err := setRow(f, SheetHistory, 1, headerRow(historyHeader)); err != nil {
		return err
	}
	for i, rec := range r.History {
		loss := interface{}("")
		if rec.Training != nil {
			loss = rec.Training.Loss
		}
		pooled := plan.UseSurvey || rec.Phase == integration.PhaseRefine
		row := []interface{}{rec.Step, string(rec.Phase), rec.Integral, rec.Error, rec.NPoints, loss, pooled}
		if err := setRow(f, SheetHistory, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	log.Printf("[ExcelWriter] wrote %d history rows to %s in %.2fms", len(r.History), path, float64(time.Since(start).Nanoseconds())/1e6)
	return nil
}

// WriteBenchmarks writes benchmark rows to a single sheet
func (w *Writer) WriteBenchmarks(path string, rows []run.BenchmarkRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetBenchmarks); err != nil {
		return fmt.Errorf("failed to rename benchmark sheet: %w", err)
	}
	if err := setRow(f, SheetBenchmarks, 1, headerRow(benchmarkHeader)); err != nil {
		return err
	}
	for i, b := range rows {
		row := []interface{}{
			b.Suite, b.Integrand, b.Dims, b.Target, b.Value, b.Error,
			b.FlatValue, b.FlatError, cell(b.Pull), b.SigmaCutoff, b.Match, cell(b.FlatVarianceRatio),
		}
		if err := setRow(f, SheetBenchmarks, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cellRef, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cellRef, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func headerRow(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// cell writes non-finite numbers as text, which spreadsheets cannot store as numbers
func cell(v float64) interface{} {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return fmt.Sprint(v)
	}
	return v
}
