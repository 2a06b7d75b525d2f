// Package report writes estimate series to spreadsheets.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"wisefido-rppg/internal/models"
)

const (
	estimatesSheet = "Estimates"
	waveformSheet  = "Waveform"
)

// EstimateHeaders are the columns of the estimates sheet.
var EstimateHeaders = []string{"Time", "Heart Rate (BPM)", "HRV (ms)", "Eye Redness", "Level"}

// WriteEstimates writes one row per estimate. Missing metrics are left blank.
func WriteEstimates(w io.Writer, estimates []*models.MetricEstimate) error {
	return WriteReplay(w, estimates, nil, 0)
}

// WriteReplay writes the estimates and, when waveform is not empty, a second sheet with
// the filtered signal sampled at fps.
func WriteReplay(w io.Writer, estimates []*models.MetricEstimate, waveform []float64, fps float64) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(estimatesSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}
	index, err := f.GetSheetIndex(estimatesSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeHeader(f, estimatesSheet, EstimateHeaders, headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(estimatesSheet, "A", "E", 18); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	for i, est := range estimates {
		if est == nil {
			continue
		}
		row := []any{est.Timestamp, optional(est.HeartRateBPM), optional(est.HRVMs), optional(est.EyeRedness), est.Label}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(estimatesSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(estimatesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}

	if len(waveform) > 0 {
		if err := writeWaveform(f, waveform, fps, headerStyle); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeWaveform(f *excelize.File, waveform []float64, fps float64, headerStyle int) error {
	if _, err := f.NewSheet(waveformSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeHeader(f, waveformSheet, []string{"Time", "Filtered"}, headerStyle); err != nil {
		return err
	}
	for i, v := range waveform {
		t := float64(i)
		if fps > 0 {
			t /= fps
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(waveformSheet, cell, &[]any{t, v}); err != nil {
			return fmt.Errorf("failed to write sample %d: %w", i, err)
		}
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}
	return nil
}

// optional renders a nil metric as an empty cell.
func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
