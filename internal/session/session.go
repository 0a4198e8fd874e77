package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/haidarlabs/qanuni-gateway/internal/language"
)

// State is the conversational lifecycle state of a session.
type State string

const (
	// StateIdle is the notional initial state before any inbound event.
	StateIdle State = "idle"
	// StateActive is entered on the first inbound event and kept for the
	// life of the session. Multi-step flows extend via the Context blob.
	StateActive State = "active"
)

// Session is the durable per-address conversational context. Exactly one
// session exists per channel address; the locale is fixed at creation from
// the first inbound message.
type Session struct {
	ID              uuid.UUID
	Address         string
	State           State
	Locale          language.Locale
	DisplayName     string
	Context         map[string]string
	LinkedAccountID string
	LastActivityAt  time.Time
	CreatedAt       time.Time
}
