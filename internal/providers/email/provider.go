// Package email is the outbound mail transport consumed by the campaign
// dispatch worker.
package email

import "context"

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Provider delivers one message. Any returned error is treated by the
// caller as a per-recipient failure.
type Provider interface {
	Send(ctx context.Context, msg Message) error
}
