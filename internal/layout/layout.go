package layout

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/zombor/invoice-chat/internal/invoice"
)

// DisplayDateLayout is the date format printed in the header
const DisplayDateLayout = "2 Jan 2006"

// Options tweaks the fixed parts of the document
type Options struct {
	// Brand is printed in small type under the footer message; empty omits it
	Brand string
}

// DefaultOptions returns the options used by the server
func DefaultOptions() Options {
	return Options{Brand: "Created with invoice-chat"}
}

// Vertical budget, in points from the top of the page
const (
	margin       = 50.0
	borderInset  = 20.0
	nameY        = 50.0
	titleY       = 75.0
	detailsWidth = 150.0
	dateY        = 70.0
	dividerY     = 95.0
	partiesY     = 130.0
	billToX      = 300.0

	labelStep  = 18.0
	nameStep   = 14.0
	fieldStep  = 12.0
	sectionGap = 10.0

	itemsHeadingGap = 35.0
	tableGap        = 25.0
	rowHeight       = 20.0
	rowBaseline     = 13.0
	qtyColumn       = 250.0
	rateColumn      = 350.0
	amountColumn    = 430.0
	labelInset      = 10.0
	maxLabelRunes   = 40

	totalsGap    = 15.0
	totalsWidth  = 190.0
	totalsHeight = 22.0
	notesGap     = 18.0
	notesStep    = 15.0
	notesSize    = 10.0

	footerRuleOffset    = 70.0
	footerMessageOffset = 45.0
	footerBrandOffset   = 25.0
	contentBottomOffset = 80.0
	continuationTop     = 50.0
)

// Layout computes the draw instructions for state on pages of the given size.
// It is a pure function of its inputs. Items that do not fit above the footer
// continue on a new page under a repeated table header.
func Layout(state invoice.State, page Page, opts Options) Plan {
	b := &builder{page: page, opts: opts}
	b.newPage()
	b.header(state)
	b.parties(state)
	b.items(state.Items)
	b.totals(state.Total())
	b.notes(state.Notes)
	return Plan{Page: page, Pages: b.finish()}
}

type builder struct {
	page  Page
	opts  Options
	pages [][]Instruction
	cur   []Instruction
	y     float64
}

func (b *builder) add(in ...Instruction) {
	b.cur = append(b.cur, in...)
}

func (b *builder) bottom() float64 {
	return b.page.Height - contentBottomOffset
}

func (b *builder) fits(height float64) bool {
	return b.y+height <= b.bottom()
}

func (b *builder) newPage() {
	if b.cur != nil {
		b.pages = append(b.pages, b.cur)
	}
	w, h := b.page.Width, b.page.Height
	b.cur = []Instruction{
		line(borderInset, borderInset, w-borderInset, borderInset, 1, Black),
		line(w-borderInset, borderInset, w-borderInset, h-borderInset, 1, Black),
		line(w-borderInset, h-borderInset, borderInset, h-borderInset, 1, Black),
		line(borderInset, h-borderInset, borderInset, borderInset, 1, Black),
	}
	b.y = continuationTop
}

func (b *builder) finish() [][]Instruction {
	pages := append(b.pages, b.cur)
	for i := range pages {
		pages[i] = append(pages[i], b.footer(i+1, len(pages))...)
	}
	return pages
}

func (b *builder) header(state invoice.State) {
	w := b.page.Width
	b.add(
		text(margin, nameY, fit(strings.ToUpper(state.FullName), w-detailsWidth-margin-sectionGap, 18), 18, Green),
		boldText(margin, titleY, "INVOICE", 24, Black),
		text(w-detailsWidth, nameY, "Invoice #"+state.InvoiceNumber, 12, Black),
		text(w-detailsWidth, dateY, "Date: "+FormatDate(state.Date), 11, Gray),
		line(margin, dividerY, w-margin, dividerY, 1, Rule),
	)
}

// parties draws the FROM and BILL TO columns. The block is as tall as the
// taller column, so the second divider moves with the populated fields.
func (b *builder) parties(state invoice.State) {
	from := b.column(margin, billToX-margin-sectionGap, "FROM", state.FullName,
		state.Email, state.Phone, "ABN: "+state.ABN, state.Address)
	to := b.column(billToX, b.page.Width-margin-billToX, "BILL TO", state.ClientName,
		state.ClientEmail, state.ClientAddress)

	b.y = max(from, to) + sectionGap
	b.add(line(margin, b.y, b.page.Width-margin, b.y, 1, Rule))
}

// column returns the y position below its last line. Text longer than width is cut.
func (b *builder) column(x, width float64, label, name string, fields ...string) float64 {
	y := partiesY
	b.add(boldText(x, y, label, 11, Green))
	y += labelStep
	b.add(text(x, y, fit(name, width, 11), 11, Black))
	y += nameStep
	for _, field := range fields {
		if strings.TrimSpace(field) == "" {
			continue
		}
		b.add(text(x, y, fit(field, width, 10), 10, Black))
		y += fieldStep
	}
	return y
}

func (b *builder) items(items []invoice.LineItem) {
	b.y += itemsHeadingGap
	b.add(boldText(margin, b.y, "ITEMS", 13, Black))
	b.y += tableGap
	b.tableHeader()

	width := b.page.Width - 2*margin
	for i, item := range items {
		if !b.fits(rowHeight) {
			b.newPage()
			b.tableHeader()
		}
		if i%2 == 0 {
			b.add(rect(margin, b.y, width, rowHeight, Stripe))
		}
		baseline := b.y + rowBaseline
		b.add(
			text(margin+labelInset, baseline, truncate(item.Label(), maxLabelRunes), 11, Black),
			text(margin+qtyColumn, baseline, item.Units().String(), 11, Black),
			text(margin+rateColumn, baseline, Money(item.Price()), 11, Black),
			text(margin+amountColumn, baseline, Money(item.Total()), 11, Black),
			line(margin, b.y+rowHeight, margin+width, b.y+rowHeight, 0.5, RowRule),
		)
		b.y += rowHeight
	}

	b.add(line(margin, b.y, margin+width, b.y, 1.5, Green))
}

func (b *builder) tableHeader() {
	width := b.page.Width - 2*margin
	baseline := b.y + rowBaseline
	b.add(
		rect(margin, b.y, width, rowHeight, Green),
		text(margin+labelInset, baseline, "Description", 11, White),
		text(margin+qtyColumn, baseline, "Qty/Hours", 11, White),
		text(margin+rateColumn, baseline, "Rate", 11, White),
		text(margin+amountColumn, baseline, "Amount", 11, White),
	)
	b.y += rowHeight
}

func (b *builder) totals(total decimal.Decimal) {
	b.y += totalsGap
	if !b.fits(totalsHeight) {
		b.newPage()
	}
	x := b.page.Width - margin - totalsWidth
	b.add(
		rect(x, b.y, totalsWidth, totalsHeight, Green),
		boldText(x+15, b.y+15, "TOTAL: "+Money(total), 13, White),
	)
	b.y += totalsHeight
}

func (b *builder) notes(notes string) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return
	}

	b.y += notesGap
	if !b.fits(notesStep) {
		b.newPage()
	}
	b.add(boldText(margin, b.y, "NOTES", 11, Black))
	b.y += notesStep

	for _, l := range wrap(notes, runesFor(b.page.Width-2*margin, notesSize)) {
		if !b.fits(0) {
			b.newPage()
		}
		b.add(text(margin, b.y, l, notesSize, DarkGray))
		b.y += fieldStep
	}
}

func (b *builder) footer(page, pages int) []Instruction {
	w, h := b.page.Width, b.page.Height
	out := []Instruction{
		line(margin, h-footerRuleOffset, w-margin, h-footerRuleOffset, 1, Rule),
		text(w/2-100, h-footerMessageOffset, "Thank you for your business!", 11, Gray),
	}
	if b.opts.Brand != "" {
		out = append(out, text(w/2-80, h-footerBrandOffset, b.opts.Brand, 9, LightGray))
	}
	if pages > 1 {
		out = append(out, text(w-margin-60, h-footerBrandOffset, PageLabel(page, pages), 9, Gray))
	}
	return out
}

// Money formats an amount with a dollar sign and two decimals
func Money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// FormatDate prints a YYYY-MM-DD date as "2 Jan 2006". Other input is returned unchanged.
func FormatDate(date string) string {
	t, err := time.Parse(invoice.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format(DisplayDateLayout)
}

// PageLabel is the footer page counter
func PageLabel(page, pages int) string {
	return fmt.Sprintf("Page %d of %d", page, pages)
}

// runesFor estimates how many Helvetica runes of the given size fit in width.
// It is never less than one.
func runesFor(width, size float64) int {
	return max(int(width/(size*0.5)), 1)
}

// fit truncates s to the width available for it
func fit(s string, width, size float64) string {
	return truncate(s, runesFor(width, size))
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n <= 3 {
		return string(r[:max(n, 0)])
	}
	return string(r[:n-3]) + "..."
}

// wrap breaks text into lines of at most n runes on word boundaries.
// Existing line breaks are kept; n below one is treated as one.
func wrap(s string, n int) []string {
	n = max(n, 1)
	var out []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		cur := ""
		for _, word := range words {
			for utf8.RuneCountInString(word) > n {
				if cur != "" {
					out = append(out, cur)
					cur = ""
				}
				r := []rune(word)
				out = append(out, string(r[:n]))
				word = string(r[n:])
			}
			switch {
			case cur == "":
				cur = word
			case utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(word) <= n:
				cur += " " + word
			default:
				out = append(out, cur)
				cur = word
			}
		}
		if cur != "" {
			out = append(out, cur)
		}
	}
	return out
}
