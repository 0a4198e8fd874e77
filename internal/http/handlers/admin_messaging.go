package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/haidarlabs/qanuni-gateway/internal/i18n"
	"github.com/haidarlabs/qanuni-gateway/internal/language"
	"github.com/haidarlabs/qanuni-gateway/internal/messaging"
	obsmetrics "github.com/haidarlabs/qanuni-gateway/internal/observability/metrics"
	"github.com/haidarlabs/qanuni-gateway/internal/session"
	"github.com/haidarlabs/qanuni-gateway/pkg/logging"
)

// outboundDispatcher is the dispatch surface the handler needs.
type outboundDispatcher interface {
	SendOne(ctx context.Context, to, body string) messaging.DispatchOutcome
	SendBulk(ctx context.Context, recipients []messaging.Recipient, resolve messaging.BodyResolver) []messaging.DispatchOutcome
}

// outboundLog persists outbound message rows.
type outboundLog interface {
	InsertMessage(ctx context.Context, rec messaging.Message) (uuid.UUID, error)
}

// recipientSessions resolves the session a logged outbound row attaches to.
type recipientSessions interface {
	GetOrCreate(ctx context.Context, address string, locale language.Locale, displayName string) (*session.Session, bool, error)
}

// AdminMessagingHandler hosts the privileged outbound-send endpoints.
type AdminMessagingHandler struct {
	dispatcher outboundDispatcher
	messages   outboundLog
	sessions   recipientSessions
	configured bool
	logger     *logging.Logger
	metrics    *obsmetrics.GatewayMetrics
}

type AdminMessagingConfig struct {
	Dispatcher outboundDispatcher
	Messages   outboundLog
	Sessions   recipientSessions
	// ChannelConfigured gates sends; without provider credentials the
	// endpoints answer 503 instead of attempting doomed provider calls.
	ChannelConfigured bool
	Logger            *logging.Logger
	Metrics           *obsmetrics.GatewayMetrics
}

func NewAdminMessagingHandler(cfg AdminMessagingConfig) *AdminMessagingHandler {
	if cfg.Messages == nil {
		panic("handlers: message log required")
	}
	if cfg.Sessions == nil {
		panic("handlers: session store required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &AdminMessagingHandler{
		dispatcher: cfg.Dispatcher,
		messages:   cfg.Messages,
		sessions:   cfg.Sessions,
		configured: cfg.ChannelConfigured && cfg.Dispatcher != nil,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

type sendMessageRequest struct {
	To          string            `json:"to"`
	Body        string            `json:"body"`
	TemplateKey string            `json:"template_key"`
	Variables   map[string]string `json:"variables"`
	Locale      string            `json:"locale"`
}

type sendMessageResponse struct {
	MessageID   string `json:"message_id,omitempty"`
	ProviderSID string `json:"provider_sid,omitempty"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}

// SendMessage dispatches a single outbound message, either a free-form body
// or a named template rendered in the requested locale.
func (h *AdminMessagingHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	to := messaging.NormalizeE164(req.To)
	if !messaging.ValidE164(to) {
		http.Error(w, "invalid to address", http.StatusBadRequest)
		return
	}
	loc := language.Locale(req.Locale)
	if req.Locale != "" && !loc.Valid() {
		http.Error(w, "unsupported locale", http.StatusBadRequest)
		return
	}

	body := strings.TrimSpace(req.Body)
	templateKey := strings.TrimSpace(req.TemplateKey)
	if (body == "") == (templateKey == "") {
		http.Error(w, "exactly one of body or template_key required", http.StatusBadRequest)
		return
	}
	kind := messaging.KindText
	if templateKey != "" {
		key, ok := i18n.TemplateKeyFor(templateKey)
		if !ok {
			http.Error(w, "unknown template_key", http.StatusBadRequest)
			return
		}
		rendered, err := i18n.RenderTemplate(key, loc, req.Variables)
		if err != nil {
			http.Error(w, fmt.Sprintf("template error: %v", err), http.StatusBadRequest)
			return
		}
		body = rendered
		kind = messaging.KindTemplate
	}

	if !h.configured {
		http.Error(w, "messaging channel not configured", http.StatusServiceUnavailable)
		return
	}

	outcome := h.dispatcher.SendOne(r.Context(), to, body)
	h.metrics.ObserveOutbound(string(outcome.Status))
	messageID := h.logOutbound(r.Context(), to, loc, "", body, kind, templateKey, outcome)

	status := http.StatusAccepted
	if !outcome.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, sendMessageResponse{
		MessageID:   messageID,
		ProviderSID: outcome.ProviderSID,
		Status:      string(outcome.Status),
		Error:       outcome.Error,
	})
}

type bulkRecipient struct {
	Address string `json:"address"`
	Locale  string `json:"locale"`
	Name    string `json:"name"`
}

type sendBulkRequest struct {
	Recipients  []bulkRecipient   `json:"recipients"`
	TemplateKey string            `json:"template_key"`
	Variables   map[string]string `json:"variables"`
}

type bulkOutcomeView struct {
	Recipient   string `json:"recipient"`
	Success     bool   `json:"success"`
	ProviderSID string `json:"provider_sid,omitempty"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}

type sendBulkResponse struct {
	SentCount int               `json:"sent_count"`
	Outcomes  []bulkOutcomeView `json:"outcomes"`
}

// SendBulk renders the named template per recipient locale and dispatches the
// batch sequentially with provider pacing. One bad recipient never aborts the
// batch; the response carries a per-recipient outcome in input order.
func (h *AdminMessagingHandler) SendBulk(w http.ResponseWriter, r *http.Request) {
	var req sendBulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if len(req.Recipients) == 0 {
		http.Error(w, "recipients required", http.StatusBadRequest)
		return
	}
	key, ok := i18n.TemplateKeyFor(strings.TrimSpace(req.TemplateKey))
	if !ok {
		http.Error(w, "unknown template_key", http.StatusBadRequest)
		return
	}
	if !h.configured {
		http.Error(w, "messaging channel not configured", http.StatusServiceUnavailable)
		return
	}

	recipients := make([]messaging.Recipient, 0, len(req.Recipients))
	for _, rec := range req.Recipients {
		recipients = append(recipients, messaging.Recipient{
			Address: messaging.NormalizeE164(rec.Address),
			Locale:  language.Locale(rec.Locale).OrDefault(),
			Name:    rec.Name,
		})
	}

	bodies := make(map[string]string, len(recipients))
	resolve := func(rec messaging.Recipient) (string, error) {
		vars := make(map[string]string, len(req.Variables)+1)
		for k, v := range req.Variables {
			vars[k] = v
		}
		vars["Name"] = rec.Name
		body, err := i18n.RenderTemplate(key, rec.Locale, vars)
		if err != nil {
			return "", err
		}
		bodies[rec.Address] = body
		return body, nil
	}

	outcomes := h.dispatcher.SendBulk(r.Context(), recipients, resolve)

	resp := sendBulkResponse{Outcomes: make([]bulkOutcomeView, 0, len(outcomes))}
	for i, outcome := range outcomes {
		h.metrics.ObserveOutbound(string(outcome.Status))
		rec := recipients[i]
		h.logOutbound(r.Context(), rec.Address, rec.Locale, rec.Name, bodies[rec.Address], messaging.KindTemplate, req.TemplateKey, outcome)
		if outcome.Success {
			resp.SentCount++
		}
		resp.Outcomes = append(resp.Outcomes, bulkOutcomeView{
			Recipient:   outcome.Recipient,
			Success:     outcome.Success,
			ProviderSID: outcome.ProviderSID,
			Status:      string(outcome.Status),
			Error:       outcome.Error,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// logOutbound attaches the outbound row to the recipient's session, creating
// one on first contact. An invalid address never attaches a session; every
// session row is keyed by a real channel address. Log failures never fail the
// send that already happened.
func (h *AdminMessagingHandler) logOutbound(ctx context.Context, to string, loc language.Locale, name, body string, kind messaging.Kind, templateKey string, outcome messaging.DispatchOutcome) string {
	if !messaging.ValidE164(to) {
		h.logger.Warn("outbound to invalid recipient not logged", "to", to, "error", outcome.Error)
		return ""
	}
	sess, _, err := h.sessions.GetOrCreate(ctx, to, loc, name)
	if err != nil {
		h.logger.Error("failed to resolve session for outbound log", "error", err, "to", to)
		return ""
	}
	rec := messaging.Message{
		SessionID:    sess.ID,
		Direction:    messaging.DirectionOutbound,
		Kind:         kind,
		Body:         body,
		TemplateKey:  templateKey,
		ProviderSID:  outcome.ProviderSID,
		Status:       outcome.Status,
		ErrorMessage: outcome.Error,
	}
	id, err := h.messages.InsertMessage(ctx, rec)
	if err != nil {
		h.logger.Error("failed to log outbound message", "error", err, "to", to)
		return ""
	}
	return id.String()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
