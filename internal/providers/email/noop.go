package email

import (
	"context"

	"go.uber.org/zap"
)

type noopProvider struct {
	log *zap.Logger
}

// NewNoop logs instead of delivering. Used when no SMTP host is
// configured, typically in development.
func NewNoop(log *zap.Logger) Provider {
	return &noopProvider{log: log.Named("email.noop")}
}

func (p *noopProvider) Send(ctx context.Context, msg Message) error {
	p.log.Info("mail suppressed",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
