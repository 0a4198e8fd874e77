package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/haidarlabs/qanuni-gateway/pkg/logging"
)

var senderTracer = otel.Tracer("qanuni.internal.messaging.sender")

// SendResult is the provider's acknowledgement of one accepted message.
type SendResult struct {
	SID    string
	Status Status
}

// Sender dispatches one message body to one recipient through the channel
// provider.
type Sender interface {
	Send(ctx context.Context, to, body string) (SendResult, error)
}

// TwilioSender posts messages through Twilio's REST API. When the configured
// from-number carries the "whatsapp:" channel prefix, recipients are
// addressed on the same channel.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewTwilioSender builds a sender with sane defaults.
func NewTwilioSender(accountSID, authToken, from string, logger *logging.Logger) *TwilioSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Send dispatches a single message, retrying transient failures. The retry
// loop is bounded and internal to this call; there is no cross-call redelivery.
func (s *TwilioSender) Send(ctx context.Context, to, body string) (SendResult, error) {
	if s.accountSID == "" || s.authToken == "" {
		return SendResult{}, errors.New("messaging: twilio credentials missing")
	}
	if to == "" {
		return SendResult{}, errors.New("messaging: to required")
	}
	if strings.TrimSpace(body) == "" {
		return SendResult{}, errors.New("messaging: body required")
	}
	if s.from == "" {
		return SendResult{}, errors.New("messaging: from required")
	}
	if strings.HasPrefix(s.from, "whatsapp:") && !strings.HasPrefix(to, "whatsapp:") {
		to = "whatsapp:" + to
	}

	ctx, span := senderTracer.Start(ctx, "messaging.twilio.send",
		trace.WithAttributes(attribute.String("qanuni.to", to)))
	defer span.End()

	payload := url.Values{}
	payload.Set("To", to)
	payload.Set("From", s.from)
	payload.Set("Body", body)

	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", s.accountSID)

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
		if err != nil {
			lastErr = err
			break
		}
		req.SetBasicAuth(s.accountSID, s.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				result := SendResult{Status: StatusQueued}
				var parsed struct {
					SID    string `json:"sid"`
					Status string `json:"status"`
				}
				if err := json.Unmarshal(respBody, &parsed); err == nil {
					result.SID = parsed.SID
					if mapped := StatusFromProvider(parsed.Status); mapped != "" {
						result.Status = mapped
					}
				}
				s.logger.Info("message sent", "to", to, "provider_sid", result.SID)
				return result, nil
			}
			lastErr = fmt.Errorf("messaging: twilio send failed: %s", formatProviderError(resp.StatusCode, respBody))
			// Don't retry non-rate-limit 4xx errors.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != 429 {
				break
			}
		}

		if attempt < 3 {
			sleep := time.Duration(200+rand.Intn(300)) * time.Millisecond
			time.Sleep(sleep)
		}
	}

	if lastErr != nil {
		span.RecordError(lastErr)
	}
	return SendResult{}, lastErr
}

type providerAPIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func formatProviderError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed providerAPIError
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}
