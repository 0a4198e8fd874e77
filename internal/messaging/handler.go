package messaging

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/haidarlabs/qanuni-gateway/internal/analysis"
	"github.com/haidarlabs/qanuni-gateway/internal/i18n"
	"github.com/haidarlabs/qanuni-gateway/internal/language"
	obsmetrics "github.com/haidarlabs/qanuni-gateway/internal/observability/metrics"
	"github.com/haidarlabs/qanuni-gateway/internal/session"
	"github.com/haidarlabs/qanuni-gateway/pkg/logging"
)

var webhookTracer = otel.Tracer("qanuni.internal.messaging.handler")

const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// sessionStore is the session surface the handler needs.
type sessionStore interface {
	GetOrCreate(ctx context.Context, address string, locale language.Locale, displayName string) (*session.Session, bool, error)
	Touch(ctx context.Context, id uuid.UUID, contextUpdates map[string]string) error
}

// messageLog is the message-log surface the handler needs.
type messageLog interface {
	InsertMessage(ctx context.Context, rec Message) (uuid.UUID, error)
	UpdateStatusBySid(ctx context.Context, providerSID string, status Status, errorCode, errorMessage string) (bool, error)
}

// replyRouter resolves plain-text input to a reply body.
type replyRouter interface {
	Route(text string, sess *session.Session) string
}

// documentAnalyzer runs the document pipeline for one attachment. The reply
// is total: failures inside the pipeline come back as locale-appropriate text.
type documentAnalyzer interface {
	Analyze(ctx context.Context, sess *session.Session, mediaURL, contentType, caption string) string
}

// processedTracker deduplicates provider events on redelivery.
type processedTracker interface {
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

// WebhookHandler terminates the provider's inbound-message and status
// webhooks. The inbound handler replies synchronously in the HTTP response
// body as a TwiML envelope; internal failures degrade to a generic reply
// rather than a non-200, because the provider retries non-200s and the user
// would otherwise see duplicate exchanges.
type WebhookHandler struct {
	webhookSecret string
	publicBaseURL string
	sessions      sessionStore
	messages      messageLog
	router        replyRouter
	analyzer      documentAnalyzer
	processed     processedTracker
	logger        *logging.Logger
	metrics       *obsmetrics.GatewayMetrics
}

// WebhookHandlerConfig collects the handler's dependencies. Sessions,
// messages and router are required; analyzer and processed are optional
// capabilities. Signature validation engages only when WebhookSecret is set.
type WebhookHandlerConfig struct {
	WebhookSecret string
	PublicBaseURL string
	Sessions      sessionStore
	Messages      messageLog
	Router        replyRouter
	Analyzer      documentAnalyzer
	Processed     processedTracker
	Logger        *logging.Logger
	Metrics       *obsmetrics.GatewayMetrics
}

func NewWebhookHandler(cfg WebhookHandlerConfig) *WebhookHandler {
	if cfg.Sessions == nil {
		panic("messaging: session store required")
	}
	if cfg.Messages == nil {
		panic("messaging: message log required")
	}
	if cfg.Router == nil {
		panic("messaging: reply router required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &WebhookHandler{
		webhookSecret: cfg.WebhookSecret,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		sessions:      cfg.Sessions,
		messages:      cfg.Messages,
		router:        cfg.Router,
		analyzer:      cfg.Analyzer,
		processed:     cfg.Processed,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
	}
}

// IncomingMessage handles the provider's inbound-message webhook. The reply
// travels in the response body as TwiML. Only authentication (401) and
// malformed payloads (400) produce non-200s; everything past parsing resolves
// to a 200 with a reply envelope, generic if need be.
func (h *WebhookHandler) IncomingMessage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := webhookTracer.Start(r.Context(), "webhook.incoming_message")
	defer span.End()

	locale := language.LocaleEnglish
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("inbound webhook panicked", "recover", rec)
			h.metrics.ObserveInbound("message.received", "panic")
			h.writeReply(w, i18n.T(i18n.KeyGenericError, locale))
		}
	}()

	if h.webhookSecret != "" && !ValidateTwilioSignature(r, h.webhookSecret, h.webhookURL(r)) {
		h.logger.Warn("invalid webhook signature", "path", r.URL.Path)
		h.metrics.ObserveInbound("message.received", "unauthorized")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	msg, err := ParseInboundWebhook(r)
	if err != nil {
		h.metrics.ObserveInbound("message.received", "malformed")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	from := NormalizeE164(msg.From)
	if msg.MessageSid == "" || from == "" {
		h.metrics.ObserveInbound("message.received", "malformed")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	span.SetAttributes(
		attribute.String("qanuni.message_sid", msg.MessageSid),
		attribute.Int("qanuni.media_count", len(msg.Media)),
	)

	if h.processed != nil {
		fresh, err := h.processed.MarkProcessed(ctx, "twilio", msg.MessageSid)
		if err != nil {
			// Fail open: a dead tracker must not drop messages.
			h.logger.Warn("processed tracker unavailable", "error", err, "message_sid", msg.MessageSid)
		} else if !fresh {
			h.logger.Info("duplicate inbound event ignored", "message_sid", msg.MessageSid)
			h.metrics.ObserveInbound("message.received", "duplicate")
			h.writeEmptyReply(w)
			return
		}
	}

	locale = language.Detect(msg.Body)

	sess, isNew, err := h.sessions.GetOrCreate(ctx, from, locale, msg.ProfileName)
	if err != nil {
		h.logger.Error("failed to resolve session", "error", err, "message_sid", msg.MessageSid)
		h.metrics.ObserveInbound("message.received", "session_error")
		span.RecordError(err)
		h.writeReply(w, i18n.T(i18n.KeyGenericError, locale))
		return
	}
	locale = sess.Locale
	if isNew {
		h.logger.Info("session created", "session_id", sess.ID, "locale", sess.Locale)
	}

	h.logInbound(ctx, sess.ID, msg)

	reply := h.resolveReply(ctx, sess, msg)

	if err := h.sessions.Touch(ctx, sess.ID, nil); err != nil {
		h.logger.Warn("failed to touch session", "error", err, "session_id", sess.ID)
	}
	h.logReply(ctx, sess.ID, reply)

	h.metrics.ObserveInbound("message.received", "ok")
	h.metrics.ObserveWebhookLatency("message.received", time.Since(start).Seconds())
	h.writeReply(w, reply)
}

// resolveReply routes to the document pipeline when the message carries an
// analyzable attachment, otherwise to the command router. The first
// analyzable attachment wins; additional attachments are ignored.
func (h *WebhookHandler) resolveReply(ctx context.Context, sess *session.Session, msg *InboundMessage) string {
	for _, media := range msg.Media {
		if !analysis.IsAnalyzable(media.ContentType) {
			continue
		}
		if h.analyzer == nil {
			return i18n.T(i18n.KeyAnalysisUnavailable, sess.Locale)
		}
		return h.analyzer.Analyze(ctx, sess, media.URL, media.ContentType, msg.Body)
	}
	return h.router.Route(msg.Body, sess)
}

// logInbound appends the inbound row before any processing so the exchange is
// on record even when the reply path fails. Log failures never block a reply.
func (h *WebhookHandler) logInbound(ctx context.Context, sessionID uuid.UUID, msg *InboundMessage) {
	rec := Message{
		SessionID:   sessionID,
		Direction:   DirectionInbound,
		Kind:        KindText,
		Body:        msg.Body,
		ProviderSID: msg.MessageSid,
		Status:      StatusDelivered,
	}
	if len(msg.Media) > 0 {
		rec.Kind = KindMedia
		rec.MediaURL = msg.Media[0].URL
	}
	if _, err := h.messages.InsertMessage(ctx, rec); err != nil {
		h.logger.Error("failed to log inbound message", "error", err, "message_sid", msg.MessageSid)
	}
}

// logReply appends the synchronous reply row. Replies returned in the webhook
// response have no provider sid and no status callbacks; sent is terminal for
// them.
func (h *WebhookHandler) logReply(ctx context.Context, sessionID uuid.UUID, body string) {
	rec := Message{
		SessionID: sessionID,
		Direction: DirectionOutbound,
		Kind:      KindText,
		Body:      body,
		Status:    StatusSent,
	}
	if _, err := h.messages.InsertMessage(ctx, rec); err != nil {
		h.logger.Error("failed to log reply message", "error", err, "session_id", sessionID)
	}
}

// StatusCallback handles delivery-status updates for previously sent
// messages. It acknowledges with a plain-text 200 "OK" whether or not the sid
// is known; the provider only needs to know we heard it.
func (h *WebhookHandler) StatusCallback(w http.ResponseWriter, r *http.Request) {
	ctx, span := webhookTracer.Start(r.Context(), "webhook.status_callback")
	defer span.End()

	if h.webhookSecret != "" && !ValidateTwilioSignature(r, h.webhookSecret, h.webhookURL(r)) {
		h.logger.Warn("invalid status callback signature", "path", r.URL.Path)
		h.metrics.ObserveInbound("message.status", "unauthorized")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	cb, err := ParseStatusCallback(r)
	if err != nil {
		h.metrics.ObserveInbound("message.status", "malformed")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("qanuni.message_sid", cb.MessageSid))

	status := StatusFromProvider(cb.MessageStatus)
	if status == "" {
		h.logger.Info("ignoring unknown provider status", "status", cb.MessageStatus, "message_sid", cb.MessageSid)
		h.metrics.ObserveInbound("message.status", "ignored")
		writeOK(w)
		return
	}

	updated, err := h.messages.UpdateStatusBySid(ctx, cb.MessageSid, status, cb.ErrorCode, cb.ErrorMessage)
	switch {
	case err != nil:
		h.logger.Error("failed to update message status", "error", err, "message_sid", cb.MessageSid)
		h.metrics.ObserveInbound("message.status", "error")
	case !updated:
		h.logger.Info("status callback matched no message", "message_sid", cb.MessageSid, "status", status)
		h.metrics.ObserveInbound("message.status", "unmatched")
	default:
		h.metrics.ObserveInbound("message.status", "ok")
	}
	writeOK(w)
}

// HealthCheck reports process liveness.
func (h *WebhookHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// webhookURL reconstructs the absolute URL the provider signed. The configured
// public base wins over whatever host the proxy forwarded.
func (h *WebhookHandler) webhookURL(r *http.Request) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL + r.URL.Path
	}
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func (h *WebhookHandler) writeReply(w http.ResponseWriter, body string) {
	var escaped strings.Builder
	if err := xml.EscapeText(&escaped, []byte(body)); err != nil {
		h.logger.Error("failed to escape reply body", "error", err)
		escaped.Reset()
	}
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Response><Message>` + escaped.String() + `</Message></Response>`))
}

func (h *WebhookHandler) writeEmptyReply(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(emptyTwiML))
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
