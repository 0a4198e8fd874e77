package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/haidarlabs/qanuni-gateway/internal/messaging"
	"github.com/haidarlabs/qanuni-gateway/internal/session"
	"github.com/haidarlabs/qanuni-gateway/pkg/logging"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// sessionLister pages through the session directory.
type sessionLister interface {
	List(ctx context.Context, limit, offset int) ([]session.Session, error)
}

// messageLister pages through one session's message log.
type messageLister interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]messaging.Message, error)
}

// AdminDirectoryHandler exposes read-only operator views over sessions and
// the message log, plus the capability status probe.
type AdminDirectoryHandler struct {
	sessions          sessionLister
	messages          messageLister
	channelConfigured bool
	aiConfigured      bool
	logger            *logging.Logger
}

type AdminDirectoryConfig struct {
	Sessions          sessionLister
	Messages          messageLister
	ChannelConfigured bool
	AIConfigured      bool
	Logger            *logging.Logger
}

func NewAdminDirectoryHandler(cfg AdminDirectoryConfig) *AdminDirectoryHandler {
	if cfg.Sessions == nil {
		panic("handlers: session store required")
	}
	if cfg.Messages == nil {
		panic("handlers: message log required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &AdminDirectoryHandler{
		sessions:          cfg.Sessions,
		messages:          cfg.Messages,
		channelConfigured: cfg.ChannelConfigured,
		aiConfigured:      cfg.AIConfigured,
		logger:            cfg.Logger,
	}
}

// GetStatus reports which optional capabilities this deployment carries.
func (h *AdminDirectoryHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"channel_configured": h.channelConfigured,
		"ai_configured":      h.aiConfigured,
	})
}

type sessionView struct {
	ID              string            `json:"id"`
	Address         string            `json:"address"`
	State           string            `json:"state"`
	Locale          string            `json:"locale"`
	DisplayName     string            `json:"display_name,omitempty"`
	Context         map[string]string `json:"context,omitempty"`
	LinkedAccountID string            `json:"linked_account_id,omitempty"`
	LastActivityAt  time.Time         `json:"last_activity_at"`
	CreatedAt       time.Time         `json:"created_at"`
}

// ListSessions returns sessions ordered by most recent activity.
func (h *AdminDirectoryHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	sessions, err := h.sessions.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list sessions", "error", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{
			ID:              s.ID.String(),
			Address:         s.Address,
			State:           string(s.State),
			Locale:          string(s.Locale),
			DisplayName:     s.DisplayName,
			Context:         s.Context,
			LinkedAccountID: s.LinkedAccountID,
			LastActivityAt:  s.LastActivityAt,
			CreatedAt:       s.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": views})
}

type messageView struct {
	ID           string    `json:"id"`
	Direction    string    `json:"direction"`
	Kind         string    `json:"kind"`
	Body         string    `json:"body"`
	MediaURL     string    `json:"media_url,omitempty"`
	TemplateKey  string    `json:"template_key,omitempty"`
	ProviderSID  string    `json:"provider_sid,omitempty"`
	Status       string    `json:"status"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListMessages returns one session's exchanges, newest first.
func (h *AdminDirectoryHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}
	limit, offset := pageParams(r)
	messages, err := h.messages.ListBySession(r.Context(), sessionID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list messages", "error", err, "session_id", sessionID)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	views := make([]messageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, messageView{
			ID:           m.ID.String(),
			Direction:    string(m.Direction),
			Kind:         string(m.Kind),
			Body:         m.Body,
			MediaURL:     m.MediaURL,
			TemplateKey:  m.TemplateKey,
			ProviderSID:  m.ProviderSID,
			Status:       string(m.Status),
			ErrorCode:    m.ErrorCode,
			ErrorMessage: m.ErrorMessage,
			CreatedAt:    m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": views})
}

// pageParams parses limit/offset query parameters with sane bounds.
func pageParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
