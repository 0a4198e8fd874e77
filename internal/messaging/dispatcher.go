package messaging

import (
	"context"
	"time"

	"github.com/haidarlabs/qanuni-gateway/internal/language"
	"github.com/haidarlabs/qanuni-gateway/pkg/logging"
)

// Pacer spaces consecutive provider calls during a bulk dispatch. Tests
// inject a no-op pacer so batches run without wall-clock delay.
type Pacer interface {
	Pace(ctx context.Context) error
}

// IntervalPacer waits a fixed interval between calls, respecting context
// cancellation. This is the provider-throughput policy from the reference
// deployment (100ms between messages).
type IntervalPacer struct {
	interval time.Duration
}

func NewIntervalPacer(interval time.Duration) *IntervalPacer {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &IntervalPacer{interval: interval}
}

func (p *IntervalPacer) Pace(ctx context.Context) error {
	timer := time.NewTimer(p.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Recipient is one target of a bulk dispatch.
type Recipient struct {
	Address string
	Locale  language.Locale
	Name    string
}

// DispatchOutcome reports the per-recipient result of a send attempt.
type DispatchOutcome struct {
	Recipient   string
	Success     bool
	ProviderSID string
	Status      Status
	Error       string
}

// BodyResolver produces the per-recipient message body for a bulk dispatch,
// typically from a locale-keyed template.
type BodyResolver func(r Recipient) (string, error)

// Dispatcher sends single messages and rate-limited bulk sequences through
// the channel provider. It does not persist anything; callers own the
// message log.
type Dispatcher struct {
	sender Sender
	pacer  Pacer
	logger *logging.Logger
}

func NewDispatcher(sender Sender, pacer Pacer, logger *logging.Logger) *Dispatcher {
	if sender == nil {
		panic("messaging: sender required")
	}
	if pacer == nil {
		pacer = NewIntervalPacer(0)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{sender: sender, pacer: pacer, logger: logger}
}

// SendOne validates the recipient address locally and dispatches a single
// message. An invalid address never reaches the provider.
func (d *Dispatcher) SendOne(ctx context.Context, to, body string) DispatchOutcome {
	outcome := DispatchOutcome{Recipient: to}
	if !ValidE164(to) {
		outcome.Status = StatusFailed
		outcome.Error = "invalid recipient address"
		return outcome
	}
	result, err := d.sender.Send(ctx, to, body)
	if err != nil {
		d.logger.Warn("send failed", "to", to, "error", err)
		outcome.Status = StatusFailed
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Success = true
	outcome.ProviderSID = result.SID
	outcome.Status = result.Status
	return outcome
}

// SendBulk processes recipients sequentially, pacing between provider calls
// and aggregating per-recipient outcomes. One recipient's failure never
// aborts the batch; the result slice always matches the input length and
// order.
func (d *Dispatcher) SendBulk(ctx context.Context, recipients []Recipient, resolve BodyResolver) []DispatchOutcome {
	outcomes := make([]DispatchOutcome, 0, len(recipients))
	for i, r := range recipients {
		if i > 0 {
			if err := d.pacer.Pace(ctx); err != nil {
				// Context cancelled mid-batch: mark the rest failed so the
				// caller still gets a full result set.
				for _, rest := range recipients[i:] {
					outcomes = append(outcomes, DispatchOutcome{
						Recipient: rest.Address,
						Status:    StatusFailed,
						Error:     "dispatch cancelled: " + err.Error(),
					})
				}
				return outcomes
			}
		}
		body, err := resolve(r)
		if err != nil {
			outcomes = append(outcomes, DispatchOutcome{
				Recipient: r.Address,
				Status:    StatusFailed,
				Error:     "resolve body: " + err.Error(),
			})
			continue
		}
		outcomes = append(outcomes, d.SendOne(ctx, r.Address, body))
	}
	return outcomes
}
