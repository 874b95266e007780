// Package httpapi exposes the chat service over HTTP and WebSocket.
// Every JSON response uses the {success, data, ...} envelope; timestamps
// are millisecond-epoch strings.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/matheus3301/inboxd/internal/chat"
	"github.com/matheus3301/inboxd/internal/store"
	"go.uber.org/zap"
)

// Handlers holds the HTTP endpoint implementations.
type Handlers struct {
	svc    *chat.Service
	logger *zap.Logger
}

// NewHandlers creates the endpoint set.
func NewHandlers(svc *chat.Service, logger *zap.Logger) *Handlers {
	return &Handlers{svc: svc, logger: logger}
}

// writeStoreError maps store errors onto HTTP statuses: validation 400,
// unknown entity 404, rejected transition 409, everything else 500.
func (h *Handlers) writeStoreError(w http.ResponseWriter, err error) {
	var vErr *store.ValidationError
	var tErr *store.InvalidTransitionError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Error())
	case errors.As(err, &tErr):
		writeError(w, http.StatusConflict, tErr.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ListConversations handles GET /api/conversations.
func (h *Handlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r, 20, 100)
	includeArchived := r.URL.Query().Get("includeArchived") == "true"

	views, err := h.svc.ListConversations(page, limit, includeArchived)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	total, err := h.svc.ConversationCount()
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	data := make([]conversationDTO, 0, len(views))
	for i := range views {
		data = append(data, toConversationDTO(&views[i]))
	}
	writeJSON(w, http.StatusOK, envelope{
		Success:    true,
		Data:       data,
		Pagination: &paginationDTO{Page: page, Limit: limit, Total: total},
	})
}

// SearchConversations handles GET /api/conversations/search.
func (h *Handlers) SearchConversations(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing search term")
		return
	}
	_, limit := pageParams(r, 20, 100)

	views, err := h.svc.SearchConversations(q, limit)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	data := make([]conversationDTO, 0, len(views))
	for i := range views {
		data = append(data, toConversationDTO(&views[i]))
	}
	n := len(data)
	writeJSON(w, http.StatusOK, envelope{
		Success:      true,
		Data:         data,
		SearchTerm:   q,
		ResultsCount: &n,
	})
}

// ListMessages handles GET /api/conversations/{id}/messages. Fetching a
// page marks the conversation read.
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	page, limit := pageParams(r, 50, 200)
	descending := r.URL.Query().Get("sortOrder") == "desc"

	msgs, err := h.svc.OpenConversation(conversationID, page, limit, descending)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	total, err := h.svc.ConversationMessageCount(conversationID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	data := make([]messageDTO, 0, len(msgs))
	for i := range msgs {
		data = append(data, toMessageDTO(&msgs[i]))
	}
	writeJSON(w, http.StatusOK, envelope{
		Success:    true,
		Data:       data,
		Pagination: &paginationDTO{Page: page, Limit: limit, Total: total},
	})
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

// SendMessage handles POST /api/conversations/{id}/messages.
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.svc.Send(conversationID, req.Text)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeData(w, http.StatusCreated, toMessageDTO(msg))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /api/messages/{id}/status.
func (h *Handlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, err := store.ParseStatus(req.Status)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	msg, err := h.svc.UpdateStatus(messageID, status)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeData(w, http.StatusOK, toMessageDTO(msg))
}

type webhookRequest struct {
	From string `json:"from"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// Webhook handles POST /api/webhook/messages: an inbound message from a
// contact, creating the conversation on first contact.
func (h *Handlers) Webhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.svc.Receive(req.From, req.Name, req.Text)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeData(w, http.StatusCreated, toMessageDTO(msg))
}

// SearchMessages handles GET /api/messages/search.
func (h *Handlers) SearchMessages(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing search term")
		return
	}
	conversationID := r.URL.Query().Get("conversationId")
	_, limit := pageParams(r, 20, 100)

	hits, err := h.svc.SearchMessages(q, conversationID, limit)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	data := make([]searchHitDTO, 0, len(hits))
	for i := range hits {
		data = append(data, searchHitDTO{
			Message: toMessageDTO(&hits[i].Message),
			Snippet: hits[i].Snippet,
		})
	}
	n := len(data)
	writeJSON(w, http.StatusOK, envelope{
		Success:      true,
		Data:         data,
		SearchTerm:   q,
		ResultsCount: &n,
	})
}

// Healthz handles GET /healthz.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	conversations, messages, err := h.svc.Counts()
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"conversations": conversations,
		"messages":      messages,
	})
}
