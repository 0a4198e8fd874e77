package messaging

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ValidateTwilioSignature validates that a request came from Twilio
func ValidateTwilioSignature(r *http.Request, authToken, webhookURL string) bool {
	signature := r.Header.Get("X-Twilio-Signature")
	if signature == "" {
		return false
	}

	if err := r.ParseForm(); err != nil {
		return false
	}

	payload := buildSignaturePayload(webhookURL, r.PostForm)
	expectedSignature := computeSignature(payload, authToken)

	return hmac.Equal([]byte(signature), []byte(expectedSignature))
}

// buildSignaturePayload creates the payload string for signature verification
func buildSignaturePayload(url string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(url)

	for _, key := range keys {
		for _, value := range params[key] {
			payload.WriteString(key)
			payload.WriteString(value)
		}
	}

	return payload.String()
}

// computeSignature computes the HMAC-SHA1 signature
func computeSignature(data, key string) string {
	h := hmac.New(sha1.New, []byte(key))
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// InboundMedia is one attachment carried by an inbound message event.
type InboundMedia struct {
	URL         string
	ContentType string
}

// InboundMessage represents an incoming message webhook from the provider.
type InboundMessage struct {
	MessageSid  string
	AccountSid  string
	From        string
	To          string
	Body        string
	ProfileName string
	Media       []InboundMedia
}

// ParseInboundWebhook parses an incoming-message webhook request, including
// the indexed MediaUrl{i}/MediaContentType{i} attachment fields.
func ParseInboundWebhook(r *http.Request) (*InboundMessage, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("messaging: parse form: %w", err)
	}

	msg := &InboundMessage{
		MessageSid:  r.FormValue("MessageSid"),
		AccountSid:  r.FormValue("AccountSid"),
		From:        r.FormValue("From"),
		To:          r.FormValue("To"),
		Body:        r.FormValue("Body"),
		ProfileName: strings.TrimSpace(r.FormValue("ProfileName")),
	}

	numMedia, err := strconv.Atoi(strings.TrimSpace(r.FormValue("NumMedia")))
	if err != nil || numMedia < 0 {
		numMedia = 0
	}
	for i := 0; i < numMedia; i++ {
		mediaURL := r.FormValue(fmt.Sprintf("MediaUrl%d", i))
		if mediaURL == "" {
			continue
		}
		msg.Media = append(msg.Media, InboundMedia{
			URL:         mediaURL,
			ContentType: r.FormValue(fmt.Sprintf("MediaContentType%d", i)),
		})
	}

	return msg, nil
}

// StatusCallback carries a delivery-status update for a previously sent message.
type StatusCallback struct {
	MessageSid    string
	MessageStatus string
	ErrorCode     string
	ErrorMessage  string
}

// ParseStatusCallback parses a delivery-status webhook request.
func ParseStatusCallback(r *http.Request) (*StatusCallback, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("messaging: parse form: %w", err)
	}
	return &StatusCallback{
		MessageSid:    r.FormValue("MessageSid"),
		MessageStatus: strings.ToLower(strings.TrimSpace(r.FormValue("MessageStatus"))),
		ErrorCode:     r.FormValue("ErrorCode"),
		ErrorMessage:  r.FormValue("ErrorMessage"),
	}, nil
}
