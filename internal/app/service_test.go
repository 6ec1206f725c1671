package app

import (
	"context"
	"time"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/store"
)

// capturingPublisher records every published event for assertions.
type capturingPublisher struct {
	events []publishedEvent
}

type publishedEvent struct {
	exchange   string
	routingKey string
	body       interface{}
}

func (p *capturingPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.events = append(p.events, publishedEvent{exchange: exchange, routingKey: routingKey, body: body})
	return nil
}

func (p *capturingPublisher) Close() {}

func (p *capturingPublisher) routingKeys() []string {
	keys := make([]string, 0, len(p.events))
	for _, e := range p.events {
		keys = append(keys, e.routingKey)
	}
	return keys
}

func (p *capturingPublisher) published(routingKey string) bool {
	for _, e := range p.events {
		if e.routingKey == routingKey {
			return true
		}
	}
	return false
}

// capturingSMSSender records OTP dispatches instead of calling the gateway.
type capturingSMSSender struct {
	phone string
	code  string
	err   error
}

func (s *capturingSMSSender) SendOTP(ctx context.Context, phone, code string) error {
	s.phone = phone
	s.code = code
	return s.err
}

func testPolicy() Policy {
	return Policy{
		ReservationTTL:    24 * time.Hour,
		ExtensionMin:      15 * time.Minute,
		ExtensionMax:      2 * time.Hour,
		PaymentSessionTTL: 10 * time.Minute,
		OTPMaxAttempts:    5,
		OTPSendLimit:      3,
		OTPSendWindow:     5 * time.Minute,
		InvoiceDueIn:      7 * 24 * time.Hour,
	}
}

func newTestService(repo store.Repository, publisher *capturingPublisher, at time.Time) *Service {
	svc := NewService(repo, publisher, nil, nil, testPolicy())
	svc.now = func() time.Time { return at }
	return svc
}
