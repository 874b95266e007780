package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/matheus3301/inboxd/internal/store"
)

// messageDTO is the wire form of a message. Timestamps travel as
// millisecond-epoch strings.
type messageDTO struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	Sender         string `json:"sender"`
	Recipient      string `json:"recipient"`
	Text           string `json:"text"`
	Direction      string `json:"direction"`
	Status         string `json:"status"`
	Timestamp      string `json:"timestamp"`
}

func toMessageDTO(m *store.Message) messageDTO {
	return messageDTO{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender:         m.Sender,
		Recipient:      m.Recipient,
		Text:           m.Body,
		Direction:      string(m.Direction),
		Status:         string(m.Status),
		Timestamp:      strconv.FormatInt(m.CreatedAt, 10),
	}
}

type conversationDTO struct {
	ID             string `json:"id"`
	ContactPhone   string `json:"contactPhone"`
	ContactName    string `json:"contactName"`
	ContactAvatar  string `json:"contactAvatar"`
	LastMessage    string `json:"lastMessage"`
	LastMessageID  string `json:"lastMessageId,omitempty"`
	LastActivityAt string `json:"lastActivityAt"`
	UnreadCount    int    `json:"unreadCount"`
	IsArchived     bool   `json:"isArchived"`
	IsMuted        bool   `json:"isMuted"`
}

func toConversationDTO(v *store.ConversationView) conversationDTO {
	return conversationDTO{
		ID:             v.ID,
		ContactPhone:   v.ContactPhone,
		ContactName:    v.ContactName,
		ContactAvatar:  v.ContactAvatar,
		LastMessage:    v.LastMessagePreview,
		LastMessageID:  v.LastMessageID,
		LastActivityAt: strconv.FormatInt(v.LastActivityAt, 10),
		UnreadCount:    v.UnreadCount,
		IsArchived:     v.IsArchived,
		IsMuted:        v.IsMuted,
	}
}

type searchHitDTO struct {
	Message messageDTO `json:"message"`
	Snippet string     `json:"snippet"`
}

type paginationDTO struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// envelope is the response wrapper every endpoint uses.
type envelope struct {
	Success      bool           `json:"success"`
	Data         any            `json:"data,omitempty"`
	Error        string         `json:"error,omitempty"`
	Pagination   *paginationDTO `json:"pagination,omitempty"`
	SearchTerm   string         `json:"searchTerm,omitempty"`
	ResultsCount *int           `json:"resultsCount,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Error: message})
}

// pageParams reads page/limit query parameters with bounds applied.
func pageParams(r *http.Request, defaultLimit, maxLimit int) (page, limit int) {
	page, limit = 1, defaultLimit
	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= maxLimit {
			limit = parsed
		}
	}
	return page, limit
}
