package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// WorkbookFile is the spreadsheet mirror of the manifest.
const WorkbookFile = "drawings_info.xlsx"

const workbookSheet = "Drawings"

// BuildWorkbook lays the manifest out as one row per region.
func BuildWorkbook(m *Manifest) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), workbookSheet); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(workbookSheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{"Page", "Region", "Filename", "X", "Y", "Width", "Height", "Formats"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(workbookSheet, cell, h)
	}

	row := 2
	for _, n := range m.Pages() {
		for i, e := range m.Entries(n) {
			write := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, row)
				_ = f.SetCellValue(workbookSheet, cell, v)
			}
			write(1, n)
			write(2, i+1)
			write(3, e.Filename)
			for c, v := range e.Coordinates {
				write(4+c, v)
			}
			write(8, strings.Join(e.Formats, ","))
			row++
		}
	}

	_ = f.SetColWidth(workbookSheet, "C", "C", 24)
	_ = f.SetColWidth(workbookSheet, "H", "H", 16)
	return f, nil
}

// WriteWorkbook saves drawings_info.xlsx under the output root.
func (w *Writer) WriteWorkbook(m *Manifest) (string, error) {
	start := time.Now()
	f, err := BuildWorkbook(m)
	if err != nil {
		return "", fmt.Errorf("failed to build workbook: %w", err)
	}
	defer f.Close()

	path := filepath.Join(w.root, WorkbookFile)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to write workbook: %w", err)
	}
	w.logger.Info("export.xlsx.ok", "file", path, "regions", m.Regions(), "duration_ms", time.Since(start).Milliseconds())
	return path, nil
}
