package sms

import (
	"context"
	"errors"
)

// Message is one outbound SMS.
type Message struct {
	To        string
	Body      string
	Reference string
}

type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

var (
	ErrMissingRecipient = errors.New("sms_missing_recipient")
	ErrEmptyBody        = errors.New("sms_empty_body")
	ErrGatewayRejected  = errors.New("sms_gateway_rejected")
)

func validate(msg Message) error {
	if msg.To == "" {
		return ErrMissingRecipient
	}
	if msg.Body == "" {
		return ErrEmptyBody
	}
	return nil
}

type NoOpProvider struct{}

func (p *NoOpProvider) Name() string { return "noop" }

func (p *NoOpProvider) Send(ctx context.Context, msg Message) error {
	return nil
}
