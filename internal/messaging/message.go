package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Direction says whether a message travelled toward us or away from us.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Kind is the content kind of a message.
type Kind string

const (
	KindText     Kind = "text"
	KindMedia    Kind = "media"
	KindTemplate Kind = "template"
)

// Status is the provider delivery status of a message. Transitions are
// monotonic: queued -> sent -> delivered/failed, never backwards.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// StatusRank orders statuses for monotonic transition checks. Delivered and
// failed are both terminal.
func StatusRank(s Status) int {
	switch s {
	case StatusQueued:
		return 0
	case StatusSent:
		return 1
	case StatusDelivered, StatusFailed:
		return 2
	default:
		return -1
	}
}

// StatusFromProvider maps a provider status token to the internal status.
// Unknown tokens return an empty status, which callers treat as a no-op.
func StatusFromProvider(token string) Status {
	switch token {
	case "queued", "accepted", "scheduled":
		return StatusQueued
	case "sending", "sent":
		return StatusSent
	case "delivered", "read":
		return StatusDelivered
	case "failed", "undelivered", "canceled":
		return StatusFailed
	default:
		return ""
	}
}

// Message is one logged inbound or outbound exchange.
type Message struct {
	ID           uuid.UUID
	SessionID    uuid.UUID
	Direction    Direction
	Kind         Kind
	Body         string
	MediaURL     string
	TemplateKey  string
	ProviderSID  string
	Status       Status
	ErrorCode    string
	ErrorMessage string
	CreatedAt    time.Time
}
