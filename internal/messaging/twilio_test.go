package messaging

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestValidateTwilioSignature(t *testing.T) {
	secret := "auth-token"
	target := "https://gw.example.com/webhooks/twilio/message"
	form := url.Values{}
	form.Set("MessageSid", "SM123")
	form.Set("Body", "hello")

	req := httptest.NewRequest("POST", target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	payload := buildSignaturePayload(target, form)
	req.Header.Set("X-Twilio-Signature", computeSignature(payload, secret))

	if !ValidateTwilioSignature(req, secret, target) {
		t.Fatal("expected valid signature")
	}
}

func TestValidateTwilioSignatureRejectsTampering(t *testing.T) {
	secret := "auth-token"
	target := "https://gw.example.com/webhooks/twilio/message"
	form := url.Values{}
	form.Set("MessageSid", "SM123")
	form.Set("Body", "hello")

	req := httptest.NewRequest("POST", target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	payload := buildSignaturePayload(target, form)
	req.Header.Set("X-Twilio-Signature", computeSignature(payload, "wrong-token"))

	if ValidateTwilioSignature(req, secret, target) {
		t.Fatal("expected invalid signature")
	}
}

func TestValidateTwilioSignatureMissingHeader(t *testing.T) {
	req := httptest.NewRequest("POST", "https://gw.example.com/x", nil)
	if ValidateTwilioSignature(req, "secret", "https://gw.example.com/x") {
		t.Fatal("missing header must fail validation")
	}
}

func TestParseInboundWebhook(t *testing.T) {
	form := url.Values{}
	form.Set("MessageSid", "SM42")
	form.Set("AccountSid", "AC1")
	form.Set("From", "whatsapp:+971501234567")
	form.Set("To", "whatsapp:+14155550123")
	form.Set("Body", "rental contract")
	form.Set("ProfileName", " Aisha ")
	form.Set("NumMedia", "2")
	form.Set("MediaUrl0", "https://api.twilio.com/media/0")
	form.Set("MediaContentType0", "image/jpeg")
	form.Set("MediaUrl1", "https://api.twilio.com/media/1")
	form.Set("MediaContentType1", "application/pdf")

	req := httptest.NewRequest("POST", "/webhooks/twilio/message", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	msg, err := ParseInboundWebhook(req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.MessageSid != "SM42" || msg.From != "whatsapp:+971501234567" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.ProfileName != "Aisha" {
		t.Fatalf("profile name not trimmed: %q", msg.ProfileName)
	}
	if len(msg.Media) != 2 {
		t.Fatalf("expected 2 media, got %d", len(msg.Media))
	}
	if msg.Media[1].ContentType != "application/pdf" {
		t.Fatalf("unexpected media: %+v", msg.Media)
	}
}

func TestParseInboundWebhookBadNumMedia(t *testing.T) {
	form := url.Values{}
	form.Set("MessageSid", "SM1")
	form.Set("NumMedia", "notanumber")

	req := httptest.NewRequest("POST", "/webhooks/twilio/message", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	msg, err := ParseInboundWebhook(req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(msg.Media) != 0 {
		t.Fatalf("expected no media, got %d", len(msg.Media))
	}
}

func TestParseStatusCallbackNormalizesStatus(t *testing.T) {
	form := url.Values{}
	form.Set("MessageSid", "SM9")
	form.Set("MessageStatus", " Delivered ")

	req := httptest.NewRequest("POST", "/webhooks/twilio/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	cb, err := ParseStatusCallback(req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cb.MessageStatus != "delivered" {
		t.Fatalf("status not normalized: %q", cb.MessageStatus)
	}
}

func TestStatusFromProvider(t *testing.T) {
	tests := []struct {
		token string
		want  Status
	}{
		{"queued", StatusQueued},
		{"accepted", StatusQueued},
		{"sending", StatusSent},
		{"sent", StatusSent},
		{"delivered", StatusDelivered},
		{"read", StatusDelivered},
		{"failed", StatusFailed},
		{"undelivered", StatusFailed},
		{"mystery", ""},
	}
	for _, tt := range tests {
		if got := StatusFromProvider(tt.token); got != tt.want {
			t.Errorf("StatusFromProvider(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}
