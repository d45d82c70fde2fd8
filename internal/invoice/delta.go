package invoice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Delta is a sparse update to a State. A nil pointer means the field was not
// mentioned. Items is nil when absent; an empty non-nil slice clears the items.
type Delta struct {
	InvoiceNumber *string `json:"invoiceNumber,omitempty"`
	Date          *string `json:"date,omitempty"`
	FullName      *string `json:"fullName,omitempty"`
	ABN           *string `json:"abn,omitempty"`
	Email         *string `json:"email,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	Address       *string `json:"address,omitempty"`
	ClientName    *string `json:"clientName,omitempty"`
	ClientEmail   *string `json:"clientEmail,omitempty"`
	ClientAddress *string `json:"clientAddress,omitempty"`

	// Aliases resolved by Merge
	To       *string `json:"to,omitempty"`
	Company  *string `json:"company,omitempty"`
	YourName *string `json:"yourName,omitempty"`
	LastName *string `json:"lastName,omitempty"`

	Rate  *decimal.Decimal `json:"rate,omitempty"`
	Items []LineItem       `json:"items"`
	Notes *string          `json:"notes,omitempty"`
}

// IsEmpty reports whether the delta mentions no field at all
func (d Delta) IsEmpty() bool {
	return d.InvoiceNumber == nil && d.Date == nil && d.FullName == nil && d.ABN == nil &&
		d.Email == nil && d.Phone == nil && d.Address == nil &&
		d.ClientName == nil && d.ClientEmail == nil && d.ClientAddress == nil &&
		d.To == nil && d.Company == nil && d.YourName == nil && d.LastName == nil &&
		d.Rate == nil && d.Items == nil && d.Notes == nil
}

// MarshalJSON omits absent items but keeps an explicit empty list
func (d Delta) MarshalJSON() ([]byte, error) {
	type plain Delta
	var items *[]LineItem
	if d.Items != nil {
		items = &d.Items
	}
	return json.Marshal(struct {
		plain
		Items *[]LineItem `json:"items,omitempty"`
	}{plain(d), items})
}

// Decoded is the result of DecodeDelta
type Decoded struct {
	Delta Delta
	// Recognized is true when the object carried at least one known key
	Recognized bool
	// Ignored lists keys that were unknown or could not be coerced
	Ignored []string
}

// stringKeys maps every accepted string key, including synonyms, to its Delta field
var stringKeys = map[string]func(d *Delta) **string{
	"invoiceNumber": func(d *Delta) **string { return &d.InvoiceNumber },
	"invoice":       func(d *Delta) **string { return &d.InvoiceNumber },
	"fullName":      func(d *Delta) **string { return &d.FullName },
	"abn":           func(d *Delta) **string { return &d.ABN },
	"email":         func(d *Delta) **string { return &d.Email },
	"yourEmail":     func(d *Delta) **string { return &d.Email },
	"phone":         func(d *Delta) **string { return &d.Phone },
	"yourNumber":    func(d *Delta) **string { return &d.Phone },
	"address":       func(d *Delta) **string { return &d.Address },
	"yourAddress":   func(d *Delta) **string { return &d.Address },
	"clientName":    func(d *Delta) **string { return &d.ClientName },
	"clientEmail":   func(d *Delta) **string { return &d.ClientEmail },
	"clientAddress": func(d *Delta) **string { return &d.ClientAddress },
	"to":            func(d *Delta) **string { return &d.To },
	"company":       func(d *Delta) **string { return &d.Company },
	"yourName":      func(d *Delta) **string { return &d.YourName },
	"lastName":      func(d *Delta) **string { return &d.LastName },
	"notes":         func(d *Delta) **string { return &d.Notes },
	"note":          func(d *Delta) **string { return &d.Notes },
}

// dateLayouts are tried in order; day-first wins over month-first
var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2 Jan 2006",
	"January 2, 2006",
}

// RecognizedKeys returns every key DecodeDelta understands, sorted
func RecognizedKeys() []string {
	keys := []string{"date", "rate", "items"}
	for k := range stringKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DecodeDelta turns a loosely typed JSON object into a Delta. Blank strings
// are treated as absent; numbers given as strings are coerced; invalid item
// numbers become zero. It fails only when raw is not a JSON object.
func DecodeDelta(raw []byte) (Decoded, error) {
	return decodeDelta(raw, false)
}

// DecodeEdit decodes a direct form edit. It differs from DecodeDelta only in
// keeping blank strings, so an edit can clear a field. A blank date is still ignored.
func DecodeEdit(raw []byte) (Decoded, error) {
	return decodeDelta(raw, true)
}

func decodeDelta(raw []byte, keepBlank bool) (Decoded, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return Decoded{}, fmt.Errorf("decoding delta: %w", err)
	}
	if m == nil {
		return Decoded{}, fmt.Errorf("decoding delta: not a JSON object")
	}

	var out Decoded
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := m[key]
		switch {
		case stringKeys[key] != nil:
			out.Recognized = true
			s, ok := coerceString(value)
			if !ok {
				out.Ignored = append(out.Ignored, key)
				continue
			}
			if s == "" && !keepBlank {
				continue
			}
			*stringKeys[key](&out.Delta) = &s
		case key == "date":
			out.Recognized = true
			s, _ := coerceString(value)
			if s == "" {
				continue
			}
			date, ok := NormalizeDate(s)
			if !ok {
				out.Ignored = append(out.Ignored, key)
				continue
			}
			out.Delta.Date = &date
		case key == "rate":
			out.Recognized = true
			rate, ok := coerceDecimal(value)
			if !ok {
				out.Ignored = append(out.Ignored, key)
				continue
			}
			rate = nonNegative(rate)
			out.Delta.Rate = &rate
		case key == "items":
			out.Recognized = true
			list, ok := value.([]any)
			if !ok {
				out.Ignored = append(out.Ignored, key)
				continue
			}
			items := make([]LineItem, 0, len(list))
			for i, entry := range list {
				fields, ok := entry.(map[string]any)
				if !ok {
					out.Ignored = append(out.Ignored, fmt.Sprintf("items[%d]", i))
					continue
				}
				items = append(items, coerceItem(fields))
			}
			out.Delta.Items = items
		default:
			out.Ignored = append(out.Ignored, key)
		}
	}
	return out, nil
}

// NormalizeDate parses s with the accepted layouts and returns it as YYYY-MM-DD
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format(DateLayout), true
		}
	}
	return "", false
}

func coerceItem(fields map[string]any) LineItem {
	var item LineItem
	if t, ok := coerceString(fields["type"]); ok && strings.EqualFold(t, string(ItemPurchase)) {
		item.Type = ItemPurchase
	} else {
		item.Type = ItemWork
	}
	item.Day, _ = coerceString(fields["day"])
	item.Description, _ = coerceString(fields["description"])
	item.Hours, _ = coerceDecimal(fields["hours"])
	item.Rate, _ = coerceDecimal(fields["rate"])
	item.Quantity, _ = coerceDecimal(fields["quantity"])
	item.UnitPrice, _ = coerceDecimal(fields["unitPrice"])
	return item.Normalize()
}

func coerceString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}

// coerceDecimal returns zero and false for anything that is not a number
func coerceDecimal(v any) (decimal.Decimal, bool) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case float64:
		return decimal.NewFromFloat(t), true
	case string:
		s = normalizeSeparators(strings.TrimPrefix(strings.TrimSpace(t), "$"))
	default:
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// thousandsRe matches commas used only as thousands separators, e.g. 1,234,567
var thousandsRe = regexp.MustCompile(`^-?\d{1,3}(?:,\d{3})+$`)

// normalizeSeparators rewrites a number written with grouping or a decimal
// comma into plain decimal form. The rightmost of "," and "." is the decimal
// separator; a lone comma is a decimal comma unless every group after it has
// exactly three digits.
func normalizeSeparators(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma < 0:
		return s
	case dot > comma:
		return strings.ReplaceAll(s, ",", "")
	case dot >= 0:
		return strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
	case thousandsRe.MatchString(s):
		return strings.ReplaceAll(s, ",", "")
	default:
		return strings.ReplaceAll(s, ",", ".")
	}
}
