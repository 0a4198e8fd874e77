package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/haidarlabs/qanuni-gateway/pkg/logging"
)

// Media payloads larger than this are rejected rather than buffered.
const maxMediaBytes = 16 << 20

// MediaClient retrieves attachment payloads from the provider's authenticated
// media endpoint, using the same credential scheme as outbound sends.
type MediaClient struct {
	accountSID string
	authToken  string
	httpClient *http.Client
	logger     *logging.Logger
}

func NewMediaClient(accountSID, authToken string, logger *logging.Logger) *MediaClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &MediaClient{
		accountSID: accountSID,
		authToken:  authToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Fetch downloads the payload at mediaURL and returns it together with the
// response content type.
func (c *MediaClient) Fetch(ctx context.Context, mediaURL string) ([]byte, string, error) {
	if mediaURL == "" {
		return nil, "", errors.New("messaging: media url required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("messaging: build media request: %w", err)
	}
	if c.accountSID != "" && c.authToken != "" {
		req.SetBasicAuth(c.accountSID, c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("messaging: fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("messaging: fetch media: status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("messaging: read media: %w", err)
	}
	if len(payload) > maxMediaBytes {
		return nil, "", errors.New("messaging: media payload too large")
	}

	return payload, resp.Header.Get("Content-Type"), nil
}
