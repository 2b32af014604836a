package export

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/hyperifyio/tablepick/internal/extract"
)

const (
	MIMEXLSX  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	sheetName = "Selection"
)

// WriteXLSX writes m as a single-sheet workbook. Every cell is stored as a
// string; no number or date inference takes place. When header is true the
// first row is styled bold.
func WriteXLSX(w io.Writer, m extract.Matrix, header bool) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	width := 0
	for r, row := range m {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellStr(sheetName, cell, v); err != nil {
				return fmt.Errorf("xlsx cell %s: %w", cell, err)
			}
		}
		if len(row) > width {
			width = len(row)
		}
	}
	if header && len(m) > 0 && width > 0 {
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(width, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, "A1", last, style); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// XLSX saves the selection as table-selection.xlsx through the downloader.
func (e *Exporter) XLSX(ctx context.Context, m extract.Matrix, opts Options) (string, error) {
	path, err := e.saveRendered(ctx, BaseFilename+".xlsx", MIMEXLSX, func(w io.Writer) error {
		return WriteXLSX(w, m, opts.IncludeHeader)
	})
	e.recorder().Export(SinkXLSX, err)
	return path, err
}

func (e *Exporter) saveRendered(ctx context.Context, name, mime string, render func(io.Writer) error) (string, error) {
	if e.Downloader == nil {
		return "", fmt.Errorf("no downloader configured")
	}
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return "", err
	}
	return e.Downloader.Save(ctx, name, buf.Bytes(), mime)
}
