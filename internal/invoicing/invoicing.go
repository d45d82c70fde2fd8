package invoicing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/invoice-chat/internal/extraction"
	"github.com/zombor/invoice-chat/internal/invoice"
)

var (
	// ErrNotFound is returned when a session or issued invoice does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidDelta is returned when a direct edit does not match the delta schema
	ErrInvalidDelta = errors.New("invalid delta")
	// ErrEmptyMessage is returned when a chat message has no content
	ErrEmptyMessage = errors.New("empty message")
)

// Session owns one invoice draft. State always equals
// invoice.Replay(Initial, Deltas...).
type Session struct {
	ID         string                `json:"id"`
	Initial    invoice.State         `json:"initial"`
	State      invoice.State         `json:"state"`
	Transcript extraction.Transcript `json:"transcript"`
	Deltas     []invoice.Delta       `json:"deltas"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// IssuedInvoice is a rendered invoice kept in the history
type IssuedInvoice struct {
	ID            string          `json:"id"`
	SessionID     string          `json:"session_id"`
	InvoiceNumber string          `json:"invoice_number"`
	ClientName    string          `json:"client_name"`
	Date          string          `json:"date"`
	Total         decimal.Decimal `json:"total"`
	Filename      string          `json:"filename"`
	State         invoice.State   `json:"state"`
	CreatedAt     time.Time       `json:"created_at"`
}
