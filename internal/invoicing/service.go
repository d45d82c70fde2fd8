package invoicing

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/invoice-chat/internal/extraction"
	"github.com/zombor/invoice-chat/internal/invoice"
	"github.com/zombor/invoice-chat/internal/layout"
	"github.com/zombor/invoice-chat/internal/render"
)

// DeltaReply is the assistant turn recorded when a message produced a delta
const DeltaReply = "Done. I populated the form with the details you gave me. Review it and download the PDF when ready."

// Extractor turns a transcript into a delta or a conversational message
type Extractor interface {
	Extract(ctx context.Context, transcript extraction.Transcript) (extraction.Result, error)
}

// IDGenerator generates unique IDs for sessions and issued invoices
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Config holds the document settings used for every render
type Config struct {
	Page   layout.Page
	Layout layout.Options
}

// DefaultConfig renders A4 pages with the default footer
func DefaultConfig() Config {
	return Config{Page: layout.A4, Layout: layout.DefaultOptions()}
}

// Reply is the outcome of one chat turn
type Reply struct {
	// Delta is set when the turn produced a delta
	Delta   *invoice.Delta    `json:"delta,omitempty"`
	Message string            `json:"message"`
	Source  extraction.Source `json:"source"`
}

// Service handles invoice sessions
type Service struct {
	db          DB
	extractor   Extractor
	storage     Storage
	config      Config
	idGenerator IDGenerator
	timeSource  TimeSource

	locks sync.Map // session ID -> *sync.Mutex
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, extractor Extractor, storage Storage, config Config) *Service {
	return NewServiceWithDeps(db, extractor, storage, config, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor Extractor, storage Storage, config Config, idGen IDGenerator, timeSrc TimeSource) *Service {
	if config.Page == (layout.Page{}) {
		config.Page = layout.A4
	}
	return &Service{
		db:          db,
		extractor:   extractor,
		storage:     storage,
		config:      config,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// lock serializes updates to one session
func (s *Service) lock(id string) func() {
	m, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Extract runs one stateless extraction. A transcript nothing can be parsed
// from yields the missing-info message instead of an error.
func (s *Service) Extract(ctx context.Context, transcript extraction.Transcript) (Reply, error) {
	result, err := s.extractor.Extract(ctx, transcript)
	if errors.Is(err, extraction.ErrNoParsableContent) {
		return Reply{Message: extraction.MissingInfoMessage, Source: extraction.SourceMessage}, nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("extracting: %w", err)
	}

	if !result.HasDelta() {
		return Reply{Message: result.Message, Source: result.Source}, nil
	}
	delta := result.Delta
	return Reply{Delta: &delta, Message: DeltaReply, Source: result.Source}, nil
}

// Generate renders a complete invoice given as loosely typed JSON, without a session
func (s *Service) Generate(raw []byte) ([]byte, string, error) {
	decoded, err := invoice.DecodeDelta(raw)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidDelta, err)
	}
	state := invoice.Merge(invoice.State{}, decoded.Delta)
	pdf, err := s.renderState(state)
	if err != nil {
		return nil, "", err
	}
	return pdf, render.Filename(state.InvoiceNumber), nil
}

// CreateSession starts a draft seeded with today's date, the next invoice
// number, and the issuer and client details of the latest session
func (s *Service) CreateSession() (*Session, error) {
	now := s.timeSource.Now()

	next, err := s.db.NextInvoiceNumber()
	if err != nil {
		return nil, fmt.Errorf("getting next invoice number: %w", err)
	}

	state := invoice.NewState(strconv.Itoa(next), now)
	latest, err := s.db.LatestSession()
	if err != nil {
		return nil, fmt.Errorf("getting latest session: %w", err)
	}
	if latest != nil {
		carryOver(&state, latest.State)
	}

	session := &Session{
		ID:         s.idGenerator.Generate(),
		Initial:    state.Clone(),
		State:      state,
		Transcript: extraction.Transcript{},
		Deltas:     []invoice.Delta{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.db.SaveSession(session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return session, nil
}

func carryOver(dst *invoice.State, src invoice.State) {
	dst.FullName = src.FullName
	dst.ABN = src.ABN
	dst.Email = src.Email
	dst.Phone = src.Phone
	dst.Address = src.Address
	dst.ClientName = src.ClientName
	dst.ClientEmail = src.ClientEmail
	dst.ClientAddress = src.ClientAddress
}

// GetSession retrieves a session by ID
func (s *Service) GetSession(id string) (*Session, error) {
	session, err := s.db.GetSession(id)
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return session, nil
}

// Chat appends a user message to the session transcript and folds the
// extracted delta into the session state
func (s *Service) Chat(ctx context.Context, id, message string) (*Session, Reply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, Reply{}, ErrEmptyMessage
	}

	defer s.lock(id)()

	session, err := s.GetSession(id)
	if err != nil {
		return nil, Reply{}, err
	}

	session.Transcript = append(session.Transcript, extraction.Turn{Role: extraction.RoleUser, Content: message})
	reply, err := s.Extract(ctx, session.Transcript)
	if err != nil {
		return nil, Reply{}, err
	}

	if reply.Delta != nil {
		session.State = invoice.Merge(session.State, *reply.Delta)
		session.Deltas = append(session.Deltas, *reply.Delta)
	}
	session.Transcript = append(session.Transcript, extraction.Turn{Role: extraction.RoleAssistant, Content: reply.Message})
	session.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveSession(session); err != nil {
		return nil, Reply{}, fmt.Errorf("saving session: %w", err)
	}

	slog.Info("Chat turn applied",
		"session", id,
		"source", reply.Source,
		"delta", reply.Delta != nil,
		"turns", len(session.Transcript),
	)
	return session, reply, nil
}

// Edit applies a direct form edit. The raw JSON must match the delta schema;
// blank strings clear the fields they name.
func (s *Service) Edit(id string, raw []byte) (*Session, error) {
	if err := invoice.ValidateDelta(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDelta, err)
	}
	decoded, err := invoice.DecodeEdit(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDelta, err)
	}

	defer s.lock(id)()

	session, err := s.GetSession(id)
	if err != nil {
		return nil, err
	}
	if decoded.Delta.IsEmpty() {
		return session, nil
	}

	session.State = invoice.Merge(session.State, decoded.Delta)
	session.Deltas = append(session.Deltas, decoded.Delta)
	session.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveSession(session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return session, nil
}

// Replay recomputes a session state from its initial state and delta log
func (s *Service) Replay(id string) (invoice.State, error) {
	session, err := s.GetSession(id)
	if err != nil {
		return invoice.State{}, err
	}
	return invoice.Replay(session.Initial, session.Deltas...), nil
}

// Render renders the session invoice, archives the document, records it in
// the history and advances the next invoice number
func (s *Service) Render(id string) (*IssuedInvoice, []byte, error) {
	session, err := s.GetSession(id)
	if err != nil {
		return nil, nil, err
	}

	pdf, err := s.renderState(session.State)
	if err != nil {
		return nil, nil, err
	}

	issuedID := s.idGenerator.Generate()
	filename := render.Filename(session.State.InvoiceNumber)
	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", issuedID, filename), pdf)
	if err != nil {
		return nil, nil, fmt.Errorf("saving file: %w", err)
	}

	issued := &IssuedInvoice{
		ID:            issuedID,
		SessionID:     session.ID,
		InvoiceNumber: session.State.InvoiceNumber,
		ClientName:    session.State.ClientName,
		Date:          session.State.Date,
		Total:         session.State.Total(),
		Filename:      savedPath,
		State:         session.State.Clone(),
		CreatedAt:     s.timeSource.Now(),
	}
	if err := s.db.SaveInvoice(issued); err != nil {
		s.storage.Delete(savedPath)
		return nil, nil, fmt.Errorf("saving invoice to database: %w", err)
	}

	if err := s.advanceInvoiceNumber(session.State.InvoiceNumber); err != nil {
		slog.Warn("Failed to advance invoice number", "invoice_number", session.State.InvoiceNumber, "error", err)
	}

	slog.Info("Invoice rendered",
		"session", session.ID,
		"invoice_number", issued.InvoiceNumber,
		"total", issued.Total.StringFixed(2),
		"bytes", len(pdf),
	)
	return issued, pdf, nil
}

// advanceInvoiceNumber moves the next number past a numeric invoice number
func (s *Service) advanceInvoiceNumber(number string) error {
	n, err := strconv.Atoi(strings.TrimSpace(number))
	if err != nil {
		return nil
	}
	_, err = s.db.AdvanceInvoiceNumber(n)
	return err
}

// Preview renders the session invoice and rasterizes its first page to PNG
func (s *Service) Preview(id string) ([]byte, error) {
	session, err := s.GetSession(id)
	if err != nil {
		return nil, err
	}
	pdf, err := s.renderState(session.State)
	if err != nil {
		return nil, err
	}
	png, err := render.Preview(pdf)
	if err != nil {
		return nil, fmt.Errorf("%w: preview: %w", render.ErrRenderFailed, err)
	}
	return png, nil
}

func (s *Service) renderState(state invoice.State) ([]byte, error) {
	if err := state.Validate(); err != nil {
		return nil, err
	}
	created, _ := state.ParsedDate()
	pdf, err := render.Invoice(state, s.config.Page, s.config.Layout, render.NewPDFWriter(created))
	if err != nil {
		slog.Error("Failed to render invoice", "invoice_number", state.InvoiceNumber, "error", err)
		return nil, err
	}
	return pdf, nil
}

// ListInvoices returns issued invoices, newest first. A non-empty query keeps
// invoices whose client name or invoice number contains it, ignoring case.
func (s *Service) ListInvoices(query string) ([]*IssuedInvoice, error) {
	invoices, err := s.db.ListInvoices()
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query != "" {
		invoices = slices.DeleteFunc(invoices, func(issued *IssuedInvoice) bool {
			return !strings.Contains(strings.ToLower(issued.ClientName), query) &&
				!strings.Contains(strings.ToLower(issued.InvoiceNumber), query)
		})
	}

	slices.SortStableFunc(invoices, func(a, b *IssuedInvoice) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return invoices, nil
}

// GetInvoice retrieves an issued invoice by ID
func (s *Service) GetInvoice(id string) (*IssuedInvoice, error) {
	issued, err := s.db.GetInvoice(id)
	if err != nil {
		return nil, fmt.Errorf("getting invoice: %w", err)
	}
	return issued, nil
}

// GetInvoiceFile returns the archived document of an issued invoice and its download name
func (s *Service) GetInvoiceFile(id string) ([]byte, string, error) {
	issued, err := s.GetInvoice(id)
	if err != nil {
		return nil, "", err
	}

	data, err := s.storage.Get(issued.Filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("invoice file %s: %w", issued.Filename, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting invoice file: %w", err)
	}
	return data, render.Filename(issued.InvoiceNumber), nil
}
