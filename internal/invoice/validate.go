package invoice

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidState is returned when a state is missing fields required for rendering
var ErrInvalidState = errors.New("invalid invoice state")

// Validate checks the fields a render needs. The returned error wraps
// ErrInvalidState and names every missing field.
func (s State) Validate() error {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"invoiceNumber", s.InvoiceNumber},
		{"date", s.Date},
		{"fullName", s.FullName},
		{"abn", s.ABN},
		{"clientName", s.ClientName},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidState, strings.Join(missing, ", "))
	}
	if _, err := s.ParsedDate(); err != nil {
		return fmt.Errorf("%w: date %q is not %s", ErrInvalidState, s.Date, DateLayout)
	}
	return nil
}
