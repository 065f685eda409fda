package events

import "context"

// Sink is the publish surface consumed by write-paths. Publish blocks
// until the broker confirms the message, PublishSafe adds a bounded
// retry, and PublishAsync is fire-and-forget with the outcome recorded
// in logs and metrics only.
type Sink interface {
	Publish(ctx context.Context, domainKey, routingKey string, payload any, headers map[string]any) error
	PublishSafe(ctx context.Context, domainKey, routingKey string, payload any, headers map[string]any) error
	PublishAsync(domainKey, routingKey string, payload any, headers map[string]any)
}
