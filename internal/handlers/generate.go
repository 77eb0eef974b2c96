package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/benvon/smart-calendar/internal/logger"
	"github.com/benvon/smart-calendar/internal/models"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Responder produces the assistant reply for a prompt
type Responder interface {
	Generate(ctx context.Context, prompt string, history []models.ChatMessage) (string, error)
}

// GenerateHandler serves POST /api/generate
type GenerateHandler struct {
	responder Responder
	stream    bool
	logger    *zap.Logger
}

// NewGenerateHandler creates a generate handler. With stream set the reply is
// written as newline-delimited {"response": ...} chunks.
func NewGenerateHandler(responder Responder, stream bool, log *zap.Logger) *GenerateHandler {
	return &GenerateHandler{responder: responder, stream: stream, logger: logger.OrNop(log)}
}

// RegisterRoutes registers the generate route on the given router
func (h *GenerateHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/generate", h.Generate).Methods("POST").Name(RouteGenerate)
}

type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate answers a prompt
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, r, http.StatusBadRequest, "Bad Request", "Invalid JSON body", h.logger)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		respondJSONError(w, r, http.StatusBadRequest, "Bad Request", "prompt is required", h.logger)
		return
	}

	h.logger.Debug("generate_request", zap.String("prompt_preview", logger.Preview(req.Prompt)))
	reply, err := h.responder.Generate(r.Context(), req.Prompt, req.History)
	if err != nil {
		h.logger.Error("generate_failed", zap.String("error", logger.SanitizeError(err)))
		respondJSONError(w, r, http.StatusBadGateway, "Bad Gateway", "Assistant is unavailable", h.logger)
		return
	}

	if !h.stream {
		respondJSON(w, http.StatusOK, generateChunk{Response: reply, Done: true})
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)
	for _, part := range splitChunks(reply) {
		if err := enc.Encode(generateChunk{Response: part}); err != nil {
			h.logger.Warn("generate_stream_write_failed", zap.String("error", logger.SanitizeError(err)))
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	if err := enc.Encode(generateChunk{Done: true}); err != nil {
		h.logger.Warn("generate_stream_write_failed", zap.String("error", logger.SanitizeError(err)))
	}
}

// splitChunks cuts s after each newline and space so the pieces concatenate back to s
func splitChunks(s string) []string {
	var parts []string
	start := 0
	for i, c := range s {
		if c == ' ' || c == '\n' {
			parts = append(parts, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		parts = append(parts, s[start:])
	}
	return parts
}
