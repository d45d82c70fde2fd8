package extraction

import (
	"strings"

	"github.com/zombor/invoice-chat/internal/invoice"
)

// Source records which path produced a Result
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
	SourceMessage  Source = "message"
)

// Result is either a delta or a conversational message for the user
type Result struct {
	Delta   invoice.Delta
	Message string
	Source  Source
	// Ignored lists reply keys that were unknown or could not be coerced
	Ignored []string
}

// HasDelta reports whether the result carries a delta rather than a message
func (r Result) HasDelta() bool {
	return r.Source == SourceModel || r.Source == SourceFallback
}

// ParseResponse classifies a completer reply. A JSON object with at least one
// recognized key becomes a delta; anything else is returned unchanged as a message.
func ParseResponse(text string) Result {
	message := Result{Message: text, Source: SourceMessage}

	candidate, ok := jsonObject(text)
	if !ok {
		return message
	}

	decoded, err := invoice.DecodeDelta([]byte(candidate))
	if err != nil || !decoded.Recognized {
		return message
	}

	return Result{
		Delta:   decoded.Delta,
		Source:  SourceModel,
		Ignored: decoded.Ignored,
	}
}

// jsonObject strips markdown fences and returns the outermost {...} span
func jsonObject(text string) (string, bool) {
	text = strings.TrimSpace(text)

	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return "", false
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return "", false
	}

	return text[startIdx : endIdx+1], true
}
