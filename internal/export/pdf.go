package export

import (
    "context"
    "io"
    "strings"

    "github.com/jung-kurt/gofpdf"

    "github.com/hyperifyio/tablepick/internal/extract"
)

const MIMEPDF = "application/pdf"

// WritePDF renders m as a plain grid. Wide selections switch to landscape;
// text that does not fit its column is truncated with an ellipsis. The core
// fonts only cover cp1252, so text is translated and unmapped runes are lost.
func WritePDF(w io.Writer, m extract.Matrix, title string, header bool) error {
    cols := 0
    for _, row := range m {
        if len(row) > cols { cols = len(row) }
    }
    orientation := "P"
    if cols > 5 { orientation = "L" }

    pdf := gofpdf.New(orientation, "mm", "A4", "")
    tr := pdf.UnicodeTranslatorFromDescriptor("")
    pdf.SetTitle(title, true)
    pdf.SetFont("Helvetica", "", 9)
    pdf.AddPage()

    if strings.TrimSpace(title) != "" {
        pdf.SetFont("Helvetica", "B", 12)
        pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
        pdf.SetFont("Helvetica", "", 9)
    }
    if cols == 0 {
        return pdf.Output(w)
    }

    pageW, _ := pdf.GetPageSize()
    left, _, right, _ := pdf.GetMargins()
    colW := (pageW - left - right) / float64(cols)
    const rowH = 6.0

    for r, row := range m {
        bold := header && r == 0
        if bold {
            pdf.SetFont("Helvetica", "B", 9)
            pdf.SetFillColor(230, 230, 230)
        }
        for c := 0; c < cols; c++ {
            v := ""
            if c < len(row) { v = row[c] }
            pdf.CellFormat(colW, rowH, fit(pdf, tr(oneLine(v)), colW-2), "1", 0, "L", bold, 0, "")
        }
        pdf.Ln(rowH)
        if bold {
            pdf.SetFont("Helvetica", "", 9)
        }
    }
    return pdf.Output(w)
}

func oneLine(s string) string {
    return strings.Join(strings.Fields(s), " ")
}

// fit shortens s until it is at most width wide. s is already translated to
// a single-byte code page, so it is cut by bytes.
func fit(pdf *gofpdf.Fpdf, s string, width float64) string {
    if pdf.GetStringWidth(s) <= width { return s }
    const ell = "..."
    for len(s) > 0 && pdf.GetStringWidth(s+ell) > width {
        s = s[:len(s)-1]
    }
    return s + ell
}

// PDF saves the selection as table-selection.pdf through the downloader.
func (e *Exporter) PDF(ctx context.Context, m extract.Matrix, title string, opts Options) (string, error) {
    path, err := e.saveRendered(ctx, BaseFilename+".pdf", MIMEPDF, func(w io.Writer) error {
        return WritePDF(w, m, title, opts.IncludeHeader)
    })
    e.recorder().Export(SinkPDF, err)
    return path, err
}
