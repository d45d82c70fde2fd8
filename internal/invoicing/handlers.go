package invoicing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/zombor/invoice-chat/internal/extraction"
	"github.com/zombor/invoice-chat/internal/invoice"
	"github.com/zombor/invoice-chat/internal/render"
)

// maxBodySize bounds JSON request bodies
const maxBodySize = 1 << 20

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes v as a JSON response
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// jsonError writes an {"error": message} response with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	writeJSON(w, code, map[string]string{"error": message})
}

// writeError maps service errors to HTTP responses
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		jsonError(w, "Not found", http.StatusNotFound)
	case errors.Is(err, invoice.ErrInvalidState), errors.Is(err, ErrInvalidDelta), errors.Is(err, ErrEmptyMessage):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, render.ErrRenderFailed):
		slog.Error("Error "+op, "error", err)
		jsonError(w, "Failed to generate PDF", http.StatusInternalServerError)
	default:
		slog.Error("Error "+op, "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

func writePDF(w http.ResponseWriter, filename string, pdf []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Write(pdf)
}

// chatRequest accepts a full transcript or a single message
type chatRequest struct {
	Messages extraction.Transcript `json:"messages"`
	Message  string                `json:"message"`
}

func (c chatRequest) transcript() extraction.Transcript {
	if len(c.Messages) > 0 {
		return c.Messages
	}
	if c.Message != "" {
		return extraction.Utterance(c.Message)
	}
	return nil
}

// handleChat returns the extracted delta as JSON, or {"message": ...}
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	transcript := req.transcript()
	if transcript.LastUserMessage() == "" {
		jsonError(w, "A user message is required", http.StatusBadRequest)
		return
	}

	reply, err := s.service.Extract(r.Context(), transcript)
	if err != nil {
		writeError(w, "extracting", err)
		return
	}

	if reply.Delta != nil {
		writeJSON(w, http.StatusOK, reply.Delta)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": reply.Message})
}

// handleGenerate renders a complete invoice posted as JSON
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	pdf, filename, err := s.service.Generate(body)
	if err != nil {
		writeError(w, "generating invoice", err)
		return
	}
	writePDF(w, filename, pdf)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.CreateSession()
	if err != nil {
		writeError(w, "creating session", err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.PathValue("id"))
	if err != nil {
		writeError(w, "getting session", err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// handleEditSession applies a direct form edit given as a delta object
func (s *Server) handleEditSession(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	session, err := s.service.Edit(r.PathValue("id"), body)
	if err != nil {
		writeError(w, "editing session", err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleSessionMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session, reply, err := s.service.Chat(r.Context(), r.PathValue("id"), req.Message)
	if err != nil {
		writeError(w, "applying chat message", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session": session,
		"reply":   reply,
	})
}

func (s *Server) handleReplaySession(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.Replay(r.PathValue("id"))
	if err != nil {
		writeError(w, "replaying session", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleRenderSession(w http.ResponseWriter, r *http.Request) {
	issued, pdf, err := s.service.Render(r.PathValue("id"))
	if err != nil {
		writeError(w, "rendering session", err)
		return
	}
	w.Header().Set("X-Invoice-Id", issued.ID)
	writePDF(w, render.Filename(issued.InvoiceNumber), pdf)
}

func (s *Server) handlePreviewSession(w http.ResponseWriter, r *http.Request) {
	png, err := s.service.Preview(r.PathValue("id"))
	if err != nil {
		writeError(w, "previewing session", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// handleListInvoices returns the invoice history filtered by ?q=
func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.service.ListInvoices(r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, "listing invoices", err)
		return
	}
	if invoices == nil {
		invoices = []*IssuedInvoice{}
	}
	writeJSON(w, http.StatusOK, invoices)
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	issued, err := s.service.GetInvoice(r.PathValue("id"))
	if err != nil {
		writeError(w, "getting invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, issued)
}

func (s *Server) handleGetInvoiceFile(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.service.GetInvoiceFile(r.PathValue("id"))
	if err != nil {
		writeError(w, "getting invoice file", err)
		return
	}
	writePDF(w, filename, data)
}
