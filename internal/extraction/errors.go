package extraction

import "errors"

var (
	// ErrServiceUnavailable means the completer could not be reached or gave an unusable reply.
	// Extract recovers from it with the fallback parser.
	ErrServiceUnavailable = errors.New("extraction service unavailable")

	// ErrNoParsableContent means neither path produced a delta
	ErrNoParsableContent = errors.New("no parsable content")
)

// MissingInfoMessage is shown to the user when ErrNoParsableContent is returned
const MissingInfoMessage = "Missing info. Please include hours and rate."
