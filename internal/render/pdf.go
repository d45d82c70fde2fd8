package render

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/zombor/invoice-chat/internal/layout"
)

const fontFamily = "Helvetica"

// PDFWriter implements DocumentWriter with gofpdf and the core Helvetica font
type PDFWriter struct {
	pdf     *gofpdf.Fpdf
	created time.Time
	encoder *encoding.Encoder
}

// NewPDFWriter creates a writer whose document creation date is fixed to created,
// so identical plans produce identical bytes.
func NewPDFWriter(created time.Time) *PDFWriter {
	return &PDFWriter{
		created: created.UTC(),
		encoder: charmap.Windows1252.NewEncoder(),
	}
}

// AddPage starts a new page of the given size in points
func (w *PDFWriter) AddPage(width, height float64) error {
	size := gofpdf.SizeType{Wd: width, Ht: height}
	if w.pdf == nil {
		pdf := gofpdf.NewCustom(&gofpdf.InitType{
			OrientationStr: "P",
			UnitStr:        "pt",
			Size:           size,
		})
		pdf.SetCreationDate(w.created)
		pdf.SetModificationDate(w.created)
		pdf.SetCatalogSort(true)
		pdf.SetAutoPageBreak(false, 0)
		pdf.SetMargins(0, 0, 0)
		w.pdf = pdf
	}
	w.pdf.AddPageFormat("P", size)
	return w.pdf.Error()
}

// Text draws text with its baseline at (x, y). Characters outside the core
// font's encoding are rejected.
func (w *PDFWriter) Text(x, y float64, text string, size float64, bold bool, color layout.Color) error {
	if err := w.ready(); err != nil {
		return err
	}
	encoded, err := w.encoder.String(text)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", text, err)
	}
	style := ""
	if bold {
		style = "B"
	}
	w.pdf.SetFont(fontFamily, style, size)
	w.pdf.SetTextColor(int(color.R), int(color.G), int(color.B))
	w.pdf.Text(x, y, encoded)
	return w.pdf.Error()
}

// Line draws a line from (x1, y1) to (x2, y2)
func (w *PDFWriter) Line(x1, y1, x2, y2, thickness float64, color layout.Color) error {
	if err := w.ready(); err != nil {
		return err
	}
	w.pdf.SetDrawColor(int(color.R), int(color.G), int(color.B))
	w.pdf.SetLineWidth(thickness)
	w.pdf.Line(x1, y1, x2, y2)
	return w.pdf.Error()
}

// FillRect draws a filled rectangle with its top-left corner at (x, y)
func (w *PDFWriter) FillRect(x, y, width, height float64, color layout.Color) error {
	if err := w.ready(); err != nil {
		return err
	}
	w.pdf.SetFillColor(int(color.R), int(color.G), int(color.B))
	w.pdf.Rect(x, y, width, height, "F")
	return w.pdf.Error()
}

// Bytes closes the document and returns its serialized form
func (w *PDFWriter) Bytes() ([]byte, error) {
	if err := w.ready(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := w.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (w *PDFWriter) ready() error {
	if w.pdf == nil {
		return fmt.Errorf("no page added")
	}
	return nil
}
