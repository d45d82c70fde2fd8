package invoice

import "strings"

// Merge applies d to s and returns the result. s is not modified. Fields the
// delta does not mention keep their value. Rules run in order:
//  1. direct fields overwrite
//  2. aliases fill fields the delta left absent: to/company -> clientName,
//     yourName [+ lastName] -> fullName
//  3. a top-level rate rewrites the rate of every existing work item
//  4. items replace the whole sequence
//  5. notes overwrite
func Merge(s State, d Delta) State {
	out := s.Clone()

	assign(&out.InvoiceNumber, d.InvoiceNumber)
	assign(&out.Date, d.Date)
	assign(&out.FullName, d.FullName)
	assign(&out.ABN, d.ABN)
	assign(&out.Email, d.Email)
	assign(&out.Phone, d.Phone)
	assign(&out.Address, d.Address)
	assign(&out.ClientName, d.ClientName)
	assign(&out.ClientEmail, d.ClientEmail)
	assign(&out.ClientAddress, d.ClientAddress)

	if d.ClientName == nil {
		switch {
		case d.To != nil:
			out.ClientName = *d.To
		case d.Company != nil:
			out.ClientName = *d.Company
		}
	}
	if d.FullName == nil && d.YourName != nil {
		name := *d.YourName
		if d.LastName != nil {
			name = strings.TrimSpace(name + " " + *d.LastName)
		}
		out.FullName = name
	}

	if d.Rate != nil {
		for i, item := range out.Items {
			if item.Type == ItemWork {
				out.Items[i].Rate = nonNegative(*d.Rate)
			}
		}
	}

	if d.Items != nil {
		out.Items = make([]LineItem, 0, len(d.Items))
		for _, item := range d.Items {
			out.Items = append(out.Items, item.Normalize())
		}
	}

	assign(&out.Notes, d.Notes)
	return out
}

// Replay folds deltas over initial in order
func Replay(initial State, deltas ...Delta) State {
	state := initial.Clone()
	for _, d := range deltas {
		state = Merge(state, d)
	}
	return state
}

func assign(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
