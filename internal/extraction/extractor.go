package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zombor/invoice-chat/internal/invoice"
)

// DefaultTimeout bounds a single completer call
const DefaultTimeout = 30 * time.Second

// Extractor turns a transcript into a Result. It asks the completer first and
// falls back to the heuristic parser when the completer fails.
type Extractor struct {
	completer Completer
	system    string
	timeout   time.Duration
	logger    *slog.Logger
}

// NewExtractor creates an Extractor. A nil completer always uses the fallback parser.
func NewExtractor(completer Completer, timeout time.Duration, logger *slog.Logger) *Extractor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		completer: completer,
		system:    SystemInstruction(),
		timeout:   timeout,
		logger:    logger,
	}
}

// Extract returns a delta or a conversational message for the transcript.
// The only error it returns is ErrNoParsableContent.
func (e *Extractor) Extract(ctx context.Context, transcript Transcript) (Result, error) {
	result, err := e.primary(ctx, transcript)
	if err == nil {
		return result, nil
	}

	e.logger.Warn("Primary extraction failed, using fallback parser",
		"turns", len(transcript),
		"error", err,
	)

	delta, err := Fallback(transcript.LastUserMessage())
	if err != nil {
		return Result{}, err
	}
	return Result{Delta: delta, Source: SourceFallback}, nil
}

// primary returns an error wrapping ErrServiceUnavailable on any failure
func (e *Extractor) primary(ctx context.Context, transcript Transcript) (Result, error) {
	if e.completer == nil {
		return Result{}, fmt.Errorf("%w: no completer configured", ErrServiceUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text, err := e.completer.Complete(ctx, e.system, transcript)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("%w: deadline exceeded: %w", ErrServiceUnavailable, err)
		}
		return Result{}, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("%w: empty reply", ErrServiceUnavailable)
	}

	result := ParseResponse(text)
	if result.HasDelta() {
		if candidate, ok := jsonObject(text); ok {
			if err := invoice.ValidateDelta([]byte(candidate)); err != nil {
				e.logger.Warn("Model reply does not match delta schema, coercing", "error", err)
			}
		}
		if len(result.Ignored) > 0 {
			e.logger.Warn("Ignored keys in model reply", "keys", result.Ignored)
		}
	}
	return result, nil
}
