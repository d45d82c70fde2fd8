package render

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/zombor/invoice-chat/internal/invoice"
	"github.com/zombor/invoice-chat/internal/layout"
)

// ErrRenderFailed is returned when the document writer rejects an instruction
// or cannot serialize the document. No bytes are returned with it.
var ErrRenderFailed = errors.New("render failed")

// DocumentWriter is the document-writing collaborator. Coordinates are in
// points from the top-left corner of the current page.
type DocumentWriter interface {
	AddPage(width, height float64) error
	Text(x, y float64, text string, size float64, bold bool, color layout.Color) error
	Line(x1, y1, x2, y2, thickness float64, color layout.Color) error
	FillRect(x, y, width, height float64, color layout.Color) error
	Bytes() ([]byte, error)
}

// Render walks the plan in document order and returns the serialized document
func Render(plan layout.Plan, w DocumentWriter) ([]byte, error) {
	if len(plan.Pages) == 0 {
		return nil, fmt.Errorf("%w: plan has no pages", ErrRenderFailed)
	}

	for i, page := range plan.Pages {
		if err := w.AddPage(plan.Page.Width, plan.Page.Height); err != nil {
			return nil, fmt.Errorf("%w: adding page %d: %w", ErrRenderFailed, i+1, err)
		}
		for _, in := range page {
			if err := draw(w, in); err != nil {
				return nil, fmt.Errorf("%w: drawing %s on page %d: %w", ErrRenderFailed, in.Kind, i+1, err)
			}
		}
	}

	b, err := w.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: serializing: %w", ErrRenderFailed, err)
	}
	return b, nil
}

func draw(w DocumentWriter, in layout.Instruction) error {
	switch in.Kind {
	case layout.KindText:
		return w.Text(in.X, in.Y, in.Text, in.Size, in.Bold, in.Color)
	case layout.KindLine:
		return w.Line(in.X, in.Y, in.X2, in.Y2, in.Thickness, in.Color)
	case layout.KindRect:
		return w.FillRect(in.X, in.Y, in.W, in.H, in.Color)
	default:
		return fmt.Errorf("unknown instruction kind %d", int(in.Kind))
	}
}

// Invoice validates state before laying it out and rendering it to w.
// An invalid state returns an error wrapping invoice.ErrInvalidState and w is never called.
func Invoice(state invoice.State, page layout.Page, opts layout.Options, w DocumentWriter) ([]byte, error) {
	if err := state.Validate(); err != nil {
		return nil, err
	}
	return Render(layout.Layout(state, page, opts), w)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename returns invoice_<invoiceNumber>.pdf with unsafe characters replaced
func Filename(invoiceNumber string) string {
	return "invoice_" + unsafeFilenameChars.ReplaceAllString(invoiceNumber, "_") + ".pdf"
}
