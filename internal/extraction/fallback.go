package extraction

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zombor/invoice-chat/internal/invoice"
)

var (
	// rateRe matches "<n> la hora" style suffixes or "a <n>" / "at <n>" prefixes;
	// the leftmost match wins. "a" and "at" must start a word; \b is ASCII-only
	// and would split words like "montaña".
	rateRe = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:la\s+hora|por\s+hora|per\s+hour|an\s+hour|/\s*h(?:r|our)?\b)|(?:^|[^\p{L}\p{N}_])(?:a|at)\s+\$?(\d+(?:[.,]\d+)?)`)

	// dayHoursRe matches "<token> <number>" pairs
	dayHoursRe = regexp.MustCompile(`(\p{L}+)[.:]?\s+(\d+(?:[.,]\d+)?)`)
)

// dayNames maps lower-cased Spanish and English day names to English day codes
var dayNames = map[string]string{
	"lun": "Mon", "lunes": "Mon",
	"mar": "Tue", "martes": "Tue",
	"mie": "Wed", "mié": "Wed", "miercoles": "Wed", "miércoles": "Wed",
	"jue": "Thu", "jueves": "Thu",
	"vie": "Fri", "viernes": "Fri",
	"sab": "Sat", "sáb": "Sat", "sabado": "Sat", "sábado": "Sat",
	"dom": "Sun", "domingo": "Sun",

	"mon": "Mon", "monday": "Mon",
	"tue": "Tue", "tues": "Tue", "tuesday": "Tue",
	"wed": "Wed", "wednesday": "Wed",
	"thu": "Thu", "thur": "Thu", "thurs": "Thu", "thursday": "Thu",
	"fri": "Fri", "friday": "Fri",
	"sat": "Sat", "saturday": "Sat",
	"sun": "Sun", "sunday": "Sun",
}

// DayCode maps a day token to its English code. Unknown tokens are returned verbatim.
func DayCode(token string) string {
	if code, ok := dayNames[strings.ToLower(token)]; ok {
		return code
	}
	return token
}

// Fallback parses "<day> <hours> ... a <rate>" style text without a model.
// Every day/hours pair becomes one work item carrying the detected rate.
func Fallback(text string) (invoice.Delta, error) {
	rate := decimal.Zero
	if loc := rateRe.FindStringSubmatchIndex(text); loc != nil {
		num := submatch(text, loc, 1)
		if num == "" {
			num = submatch(text, loc, 2)
		}
		rate = parseNumber(num)
		text = text[:loc[0]] + " " + text[loc[1]:]
	}

	items := make([]invoice.LineItem, 0)
	for _, m := range dayHoursRe.FindAllStringSubmatch(text, -1) {
		items = append(items, invoice.WorkItem(DayCode(m[1]), parseNumber(m[2]), rate))
	}

	if len(items) == 0 {
		return invoice.Delta{}, ErrNoParsableContent
	}
	return invoice.Delta{Items: items}, nil
}

func submatch(text string, loc []int, group int) string {
	start, end := loc[2*group], loc[2*group+1]
	if start < 0 {
		return ""
	}
	return text[start:end]
}

func parseNumber(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil {
		return decimal.Zero
	}
	return d
}
