package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/haidarlabs/qanuni-gateway/internal/language"
)

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) Send(ctx context.Context, to, body string) (SendResult, error) {
	if f.err != nil {
		return SendResult{}, f.err
	}
	f.sent = append(f.sent, to)
	return SendResult{SID: "SM-" + to, Status: StatusQueued}, nil
}

type nopPacer struct{ calls int }

func (p *nopPacer) Pace(ctx context.Context) error {
	p.calls++
	return nil
}

type failingPacer struct{ after int }

func (p *failingPacer) Pace(ctx context.Context) error {
	p.after--
	if p.after < 0 {
		return context.Canceled
	}
	return nil
}

func TestSendOneRejectsInvalidAddress(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, &nopPacer{}, nil)

	outcome := d.SendOne(context.Background(), "not-a-number", "hi")
	if outcome.Success {
		t.Fatal("invalid address must not succeed")
	}
	if outcome.Error != "invalid recipient address" {
		t.Fatalf("unexpected error: %q", outcome.Error)
	}
	if len(sender.sent) != 0 {
		t.Fatal("invalid address must never reach the provider")
	}
}

func TestSendBulkBadRecipientDoesNotAbortBatch(t *testing.T) {
	sender := &fakeSender{}
	pacer := &nopPacer{}
	d := NewDispatcher(sender, pacer, nil)

	recipients := []Recipient{
		{Address: "+971501111111", Locale: language.LocaleEnglish},
		{Address: "garbage", Locale: language.LocaleEnglish},
		{Address: "+971503333333", Locale: language.LocaleArabic},
	}
	outcomes := d.SendBulk(context.Background(), recipients, func(r Recipient) (string, error) {
		return "body for " + r.Address, nil
	})

	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if !outcomes[0].Success || !outcomes[2].Success {
		t.Fatalf("valid recipients should succeed: %+v", outcomes)
	}
	if outcomes[1].Success || outcomes[1].Status != StatusFailed {
		t.Fatalf("invalid recipient should fail: %+v", outcomes[1])
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected 2 provider calls, got %d", len(sender.sent))
	}
	if pacer.calls != 2 {
		t.Fatalf("expected pacing between each pair, got %d", pacer.calls)
	}
}

func TestSendBulkResolveErrorMarksRecipientFailed(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, &nopPacer{}, nil)

	outcomes := d.SendBulk(context.Background(), []Recipient{
		{Address: "+971501111111"},
	}, func(r Recipient) (string, error) {
		return "", errors.New("missing variable Name")
	})
	if len(outcomes) != 1 || outcomes[0].Success {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}
	if len(sender.sent) != 0 {
		t.Fatal("resolve failure must not reach the provider")
	}
}

func TestSendBulkCancellationFillsRemainder(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, &failingPacer{after: 1}, nil)

	recipients := []Recipient{
		{Address: "+971501111111"},
		{Address: "+971502222222"},
		{Address: "+971503333333"},
	}
	outcomes := d.SendBulk(context.Background(), recipients, func(r Recipient) (string, error) {
		return "b", nil
	})
	if len(outcomes) != 3 {
		t.Fatalf("expected full result set, got %d", len(outcomes))
	}
	if !outcomes[0].Success || !outcomes[1].Success {
		t.Fatalf("pre-cancellation sends should succeed: %+v", outcomes)
	}
	if outcomes[2].Success || outcomes[2].Status != StatusFailed {
		t.Fatalf("post-cancellation recipient should be marked failed: %+v", outcomes[2])
	}
}
