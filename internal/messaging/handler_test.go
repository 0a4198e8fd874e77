package messaging

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/haidarlabs/qanuni-gateway/internal/commands"
	"github.com/haidarlabs/qanuni-gateway/internal/i18n"
	"github.com/haidarlabs/qanuni-gateway/internal/language"
	"github.com/haidarlabs/qanuni-gateway/internal/session"
)

type fakeSessions struct {
	byAddress map[string]*session.Session
	touched   []uuid.UUID
	err       error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byAddress: map[string]*session.Session{}}
}

func (f *fakeSessions) GetOrCreate(ctx context.Context, address string, locale language.Locale, displayName string) (*session.Session, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	if sess, ok := f.byAddress[address]; ok {
		return sess, false, nil
	}
	sess := &session.Session{
		ID:          uuid.New(),
		Address:     address,
		State:       session.StateActive,
		Locale:      locale.OrDefault(),
		DisplayName: displayName,
		Context:     map[string]string{},
	}
	f.byAddress[address] = sess
	return sess, true, nil
}

func (f *fakeSessions) Touch(ctx context.Context, id uuid.UUID, contextUpdates map[string]string) error {
	f.touched = append(f.touched, id)
	return nil
}

type fakeMessageLog struct {
	inserted     []Message
	insertErr    error
	updates      []string
	updateResult bool
}

func (f *fakeMessageLog) InsertMessage(ctx context.Context, rec Message) (uuid.UUID, error) {
	if f.insertErr != nil {
		return uuid.Nil, f.insertErr
	}
	f.inserted = append(f.inserted, rec)
	return uuid.New(), nil
}

func (f *fakeMessageLog) UpdateStatusBySid(ctx context.Context, providerSID string, status Status, errorCode, errorMessage string) (bool, error) {
	f.updates = append(f.updates, providerSID+":"+string(status))
	return f.updateResult, nil
}

type fakeAnalyzer struct {
	reply  string
	called bool
	url    string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, sess *session.Session, mediaURL, contentType, caption string) string {
	f.called = true
	f.url = mediaURL
	return f.reply
}

type fakeProcessed struct {
	seen map[string]bool
	err  error
}

func (f *fakeProcessed) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	key := provider + ":" + eventID
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func newTestHandler(sessions *fakeSessions, log *fakeMessageLog, analyzer *fakeAnalyzer, processed *fakeProcessed) *WebhookHandler {
	cfg := WebhookHandlerConfig{
		Sessions: sessions,
		Messages: log,
		Router:   commands.NewRouter(),
	}
	if analyzer != nil {
		cfg.Analyzer = analyzer
	}
	if processed != nil {
		cfg.Processed = processed
	}
	return NewWebhookHandler(cfg)
}

func postForm(handler http.HandlerFunc, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestIncomingMessageArabicGreeting(t *testing.T) {
	sessions := newFakeSessions()
	log := &fakeMessageLog{}
	h := newTestHandler(sessions, log, nil, nil)

	form := url.Values{}
	form.Set("MessageSid", "SM100")
	form.Set("From", "whatsapp:+971501234567")
	form.Set("Body", "مرحبا")
	rec := postForm(h.IncomingMessage, "/webhooks/twilio/message", form)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/xml" {
		t.Fatalf("content type = %q", ct)
	}
	sess := sessions.byAddress["+971501234567"]
	if sess == nil {
		t.Fatal("session not created")
	}
	if sess.Locale != language.LocaleArabic {
		t.Fatalf("session locale = %q, want ar", sess.Locale)
	}
	if !strings.Contains(rec.Body.String(), i18n.T(i18n.KeyGreeting, language.LocaleArabic)) {
		t.Fatalf("reply missing Arabic greeting: %s", rec.Body.String())
	}
	if len(log.inserted) != 2 {
		t.Fatalf("expected inbound + reply rows, got %d", len(log.inserted))
	}
	inbound, reply := log.inserted[0], log.inserted[1]
	if inbound.Direction != DirectionInbound || inbound.ProviderSID != "SM100" || inbound.Status != StatusDelivered {
		t.Fatalf("unexpected inbound row: %+v", inbound)
	}
	if reply.Direction != DirectionOutbound || reply.Status != StatusSent {
		t.Fatalf("unexpected reply row: %+v", reply)
	}
	if len(sessions.touched) != 1 {
		t.Fatalf("expected one touch, got %d", len(sessions.touched))
	}
}

func TestIncomingMessageRoutesAnalyzableMedia(t *testing.T) {
	sessions := newFakeSessions()
	log := &fakeMessageLog{}
	analyzer := &fakeAnalyzer{reply: "analysis report text"}
	h := newTestHandler(sessions, log, analyzer, nil)

	form := url.Values{}
	form.Set("MessageSid", "SM101")
	form.Set("From", "whatsapp:+971501234567")
	form.Set("Body", "rental contract")
	form.Set("NumMedia", "2")
	form.Set("MediaUrl0", "https://media/sticker")
	form.Set("MediaContentType0", "image/gif")
	form.Set("MediaUrl1", "https://media/contract")
	form.Set("MediaContentType1", "application/pdf")
	rec := postForm(h.IncomingMessage, "/webhooks/twilio/message", form)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !analyzer.called {
		t.Fatal("analyzer not invoked")
	}
	if analyzer.url != "https://media/contract" {
		t.Fatalf("analyzer got %q, want first analyzable attachment", analyzer.url)
	}
	if !strings.Contains(rec.Body.String(), "analysis report text") {
		t.Fatalf("reply missing analysis text: %s", rec.Body.String())
	}
	if log.inserted[0].Kind != KindMedia {
		t.Fatalf("inbound row kind = %q, want media", log.inserted[0].Kind)
	}
}

func TestIncomingMessageNonAnalyzableMediaFallsToRouter(t *testing.T) {
	sessions := newFakeSessions()
	log := &fakeMessageLog{}
	analyzer := &fakeAnalyzer{reply: "should not appear"}
	h := newTestHandler(sessions, log, analyzer, nil)

	form := url.Values{}
	form.Set("MessageSid", "SM102")
	form.Set("From", "+971501234567")
	form.Set("Body", "help")
	form.Set("NumMedia", "1")
	form.Set("MediaUrl0", "https://media/voice")
	form.Set("MediaContentType0", "audio/ogg")
	rec := postForm(h.IncomingMessage, "/webhooks/twilio/message", form)

	if analyzer.called {
		t.Fatal("analyzer must not run for non-analyzable media")
	}
	if !strings.Contains(rec.Body.String(), i18n.T(i18n.KeyHelp, language.LocaleEnglish)) {
		t.Fatalf("expected help reply: %s", rec.Body.String())
	}
}

func TestIncomingMessageDuplicateEvent(t *testing.T) {
	sessions := newFakeSessions()
	log := &fakeMessageLog{}
	processed := &fakeProcessed{}
	h := newTestHandler(sessions, log, nil, processed)

	form := url.Values{}
	form.Set("MessageSid", "SM103")
	form.Set("From", "+971501234567")
	form.Set("Body", "hello")

	first := postForm(h.IncomingMessage, "/webhooks/twilio/message", form)
	second := postForm(h.IncomingMessage, "/webhooks/twilio/message", form)

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("both deliveries must be acknowledged: %d, %d", first.Code, second.Code)
	}
	if strings.Contains(second.Body.String(), "<Message>") {
		t.Fatalf("duplicate must get an empty envelope: %s", second.Body.String())
	}
	if len(log.inserted) != 2 {
		t.Fatalf("duplicate must not be logged again, got %d rows", len(log.inserted))
	}
}

func TestIncomingMessageTrackerFailureFailsOpen(t *testing.T) {
	sessions := newFakeSessions()
	log := &fakeMessageLog{}
	processed := &fakeProcessed{err: errors.New("redis down")}
	h := newTestHandler(sessions, log, nil, processed)

	form := url.Values{}
	form.Set("MessageSid", "SM104")
	form.Set("From", "+971501234567")
	form.Set("Body", "hello")
	rec := postForm(h.IncomingMessage, "/webhooks/twilio/message", form)

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<Message>") {
		t.Fatalf("tracker outage must not drop the message: %d %s", rec.Code, rec.Body.String())
	}
}

func TestIncomingMessageSessionFailureDegradesToGenericReply(t *testing.T) {
	sessions := newFakeSessions()
	sessions.err = errors.New("db down")
	log := &fakeMessageLog{}
	h := newTestHandler(sessions, log, nil, nil)

	form := url.Values{}
	form.Set("MessageSid", "SM105")
	form.Set("From", "+971501234567")
	form.Set("Body", "مرحبا")
	rec := postForm(h.IncomingMessage, "/webhooks/twilio/message", form)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want degraded 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), i18n.T(i18n.KeyGenericError, language.LocaleArabic)) {
		t.Fatalf("expected generic Arabic reply: %s", rec.Body.String())
	}
}

func TestIncomingMessageLogFailureStillReplies(t *testing.T) {
	sessions := newFakeSessions()
	log := &fakeMessageLog{insertErr: errors.New("db down")}
	h := newTestHandler(sessions, log, nil, nil)

	form := url.Values{}
	form.Set("MessageSid", "SM106")
	form.Set("From", "+971501234567")
	form.Set("Body", "menu")
	rec := postForm(h.IncomingMessage, "/webhooks/twilio/message", form)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), i18n.T(i18n.KeyMenu, language.LocaleEnglish)) {
		t.Fatalf("log failure must not suppress the reply: %s", rec.Body.String())
	}
}

func TestIncomingMessageMissingFields(t *testing.T) {
	h := newTestHandler(newFakeSessions(), &fakeMessageLog{}, nil, nil)

	form := url.Values{}
	form.Set("Body", "hello")
	rec := postForm(h.IncomingMessage, "/webhooks/twilio/message", form)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestIncomingMessageRejectsBadSignature(t *testing.T) {
	h := NewWebhookHandler(WebhookHandlerConfig{
		WebhookSecret: "token",
		PublicBaseURL: "https://gw.example.com",
		Sessions:      newFakeSessions(),
		Messages:      &fakeMessageLog{},
		Router:        commands.NewRouter(),
	})

	form := url.Values{}
	form.Set("MessageSid", "SM107")
	form.Set("From", "+971501234567")
	rec := postForm(h.IncomingMessage, "/webhooks/twilio/message", form)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestIncomingMessageEscapesReplyXML(t *testing.T) {
	sessions := newFakeSessions()
	log := &fakeMessageLog{}
	analyzer := &fakeAnalyzer{reply: `risk <30% & "low"`}
	h := newTestHandler(sessions, log, analyzer, nil)

	form := url.Values{}
	form.Set("MessageSid", "SM108")
	form.Set("From", "+971501234567")
	form.Set("NumMedia", "1")
	form.Set("MediaUrl0", "https://media/doc")
	form.Set("MediaContentType0", "image/jpeg")
	rec := postForm(h.IncomingMessage, "/webhooks/twilio/message", form)

	body := rec.Body.String()
	if strings.Contains(body, `<30%`) || !strings.Contains(body, "&lt;30%") {
		t.Fatalf("reply body not XML-escaped: %s", body)
	}
}

func TestStatusCallbackUpdatesMessage(t *testing.T) {
	log := &fakeMessageLog{updateResult: true}
	h := newTestHandler(newFakeSessions(), log, nil, nil)

	form := url.Values{}
	form.Set("MessageSid", "SM200")
	form.Set("MessageStatus", "delivered")
	rec := postForm(h.StatusCallback, "/webhooks/twilio/status", form)

	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("unexpected ack: %d %q", rec.Code, rec.Body.String())
	}
	if len(log.updates) != 1 || log.updates[0] != "SM200:delivered" {
		t.Fatalf("unexpected updates: %v", log.updates)
	}
}

func TestStatusCallbackUnknownSidStillAcks(t *testing.T) {
	log := &fakeMessageLog{updateResult: false}
	h := newTestHandler(newFakeSessions(), log, nil, nil)

	form := url.Values{}
	form.Set("MessageSid", "SM-unknown")
	form.Set("MessageStatus", "failed")
	rec := postForm(h.StatusCallback, "/webhooks/twilio/status", form)

	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("unknown sid must still be acknowledged: %d %q", rec.Code, rec.Body.String())
	}
}

func TestStatusCallbackIgnoresUnknownStatusToken(t *testing.T) {
	log := &fakeMessageLog{}
	h := newTestHandler(newFakeSessions(), log, nil, nil)

	form := url.Values{}
	form.Set("MessageSid", "SM201")
	form.Set("MessageStatus", "mystery")
	rec := postForm(h.StatusCallback, "/webhooks/twilio/status", form)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(log.updates) != 0 {
		t.Fatalf("unknown token must not update: %v", log.updates)
	}
}
