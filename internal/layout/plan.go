package layout

import (
	"fmt"
	"strings"
)

// Page is a page size in points. Coordinates in a Plan use a top-left origin.
type Page struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

var (
	A4     = Page{Width: 595.28, Height: 841.89}
	Letter = Page{Width: 612, Height: 792}
)

// PageSize resolves a page size name (A4 or Letter, case-insensitive)
func PageSize(name string) (Page, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "a4":
		return A4, nil
	case "letter":
		return Letter, nil
	default:
		return Page{}, fmt.Errorf("unknown page size %q", name)
	}
}

// Color is an RGB color
type Color struct {
	R, G, B uint8
}

var (
	Black     = Color{0, 0, 0}
	White     = Color{255, 255, 255}
	Green     = Color{0, 128, 0}
	DarkGray  = Color{77, 77, 77}
	Gray      = Color{102, 102, 102}
	LightGray = Color{179, 179, 179}
	Rule      = Color{204, 204, 204}
	RowRule   = Color{230, 230, 230}
	Stripe    = Color{247, 247, 247}
)

// Kind is the type of a draw instruction
type Kind int

const (
	KindText Kind = iota
	KindLine
	KindRect
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindLine:
		return "line"
	case KindRect:
		return "rect"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Instruction is one primitive draw call.
//
// Text is drawn with its baseline at (X, Y). A line runs from (X, Y) to (X2, Y2).
// A filled rect has its top-left corner at (X, Y) and size W×H.
type Instruction struct {
	Kind      Kind
	X, Y      float64
	X2, Y2    float64
	W, H      float64
	Text      string
	Size      float64
	Bold      bool
	Thickness float64
	Color     Color
}

func text(x, y float64, s string, size float64, c Color) Instruction {
	return Instruction{Kind: KindText, X: x, Y: y, Text: s, Size: size, Color: c}
}

func boldText(x, y float64, s string, size float64, c Color) Instruction {
	i := text(x, y, s, size, c)
	i.Bold = true
	return i
}

func line(x1, y1, x2, y2, thickness float64, c Color) Instruction {
	return Instruction{Kind: KindLine, X: x1, Y: y1, X2: x2, Y2: y2, Thickness: thickness, Color: c}
}

func rect(x, y, w, h float64, c Color) Instruction {
	return Instruction{Kind: KindRect, X: x, Y: y, W: w, H: h, Color: c}
}

// Plan is the ordered list of draw instructions for every page
type Plan struct {
	Page  Page
	Pages [][]Instruction
}

// Instructions returns every instruction in document order
func (p Plan) Instructions() []Instruction {
	var out []Instruction
	for _, page := range p.Pages {
		out = append(out, page...)
	}
	return out
}

// Texts returns the text of every text instruction in document order
func (p Plan) Texts() []string {
	var out []string
	for _, in := range p.Instructions() {
		if in.Kind == KindText {
			out = append(out, in.Text)
		}
	}
	return out
}
