package invoice

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// ItemType discriminates the two LineItem variants
type ItemType string

const (
	ItemWork     ItemType = "work"
	ItemPurchase ItemType = "purchase"
)

// DateLayout is the canonical calendar date format stored in State.Date
const DateLayout = "2006-01-02"

// LineItem is either a work item (day, hours, rate) or a purchase item
// (description, quantity, unit price). Fields of the other variant are ignored.
type LineItem struct {
	Type        ItemType        `json:"type"`
	Day         string          `json:"day,omitempty"`
	Hours       decimal.Decimal `json:"hours"`
	Rate        decimal.Decimal `json:"rate"`
	Description string          `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// WorkItem builds a work line item
func WorkItem(day string, hours, rate decimal.Decimal) LineItem {
	return LineItem{Type: ItemWork, Day: day, Hours: hours, Rate: rate}.Normalize()
}

// PurchaseItem builds a purchase line item
func PurchaseItem(description string, quantity, unitPrice decimal.Decimal) LineItem {
	return LineItem{Type: ItemPurchase, Description: description, Quantity: quantity, UnitPrice: unitPrice}.Normalize()
}

// Normalize defaults the type to work, clamps negative numbers to zero and
// clears the fields that belong to the other variant.
func (li LineItem) Normalize() LineItem {
	if li.Type != ItemPurchase {
		li.Type = ItemWork
	}
	switch li.Type {
	case ItemWork:
		li.Hours = nonNegative(li.Hours)
		li.Rate = nonNegative(li.Rate)
		li.Quantity = decimal.Zero
		li.UnitPrice = decimal.Zero
	case ItemPurchase:
		li.Quantity = nonNegative(li.Quantity)
		li.UnitPrice = nonNegative(li.UnitPrice)
		li.Day = ""
		li.Hours = decimal.Zero
		li.Rate = decimal.Zero
	}
	return li
}

// Label is the text shown in the first table column
func (li LineItem) Label() string {
	if li.Type == ItemPurchase {
		return li.Description
	}
	return li.Day
}

// Units is hours for work items and quantity for purchases
func (li LineItem) Units() decimal.Decimal {
	if li.Type == ItemPurchase {
		return li.Quantity
	}
	return li.Hours
}

// Price is the rate for work items and the unit price for purchases
func (li LineItem) Price() decimal.Decimal {
	if li.Type == ItemPurchase {
		return li.UnitPrice
	}
	return li.Rate
}

// Total returns units × price rounded half away from zero to cents
func (li LineItem) Total() decimal.Decimal {
	return li.Units().Mul(li.Price()).Round(2)
}

// State is the canonical invoice record owned by a single session
type State struct {
	InvoiceNumber string     `json:"invoiceNumber"`
	Date          string     `json:"date"`
	FullName      string     `json:"fullName"`
	ABN           string     `json:"abn"`
	Email         string     `json:"email,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Address       string     `json:"address,omitempty"`
	ClientName    string     `json:"clientName"`
	ClientEmail   string     `json:"clientEmail,omitempty"`
	ClientAddress string     `json:"clientAddress,omitempty"`
	Items         []LineItem `json:"items"`
	Notes         string     `json:"notes,omitempty"`
}

// NewState returns an empty state with identity fields filled in
func NewState(invoiceNumber string, date time.Time) State {
	if invoiceNumber == "" {
		invoiceNumber = "1"
	}
	return State{
		InvoiceNumber: invoiceNumber,
		Date:          date.Format(DateLayout),
		Items:         []LineItem{},
	}
}

// Clone returns a copy that shares no slices with s
func (s State) Clone() State {
	s.Items = slices.Clone(s.Items)
	return s
}

// Total is the invoice total: the sum of the rounded line totals
func (s State) Total() decimal.Decimal {
	return Total(s.Items)
}

// Total sums the per-line rounded totals and rounds the aggregate once
func Total(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Total())
	}
	return sum.Round(2)
}

// ParsedDate returns State.Date as a time.Time
func (s State) ParsedDate() (time.Time, error) {
	return time.Parse(DateLayout, s.Date)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
