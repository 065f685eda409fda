package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gymspot/gymspot/internal/config"
	"github.com/gymspot/gymspot/internal/observability/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const asyncPublishTimeout = 30 * time.Second

// Publisher owns the single broker connection shared by all callers.
// Connection establishment is single-flight: while disconnected, the
// first Publish triggers one connect attempt and concurrent callers
// wait on it instead of racing to open redundant connections.
type Publisher struct {
	cfg      config.BrokerConfig
	log      *zap.Logger
	metrics  *metrics.PublisherMetrics
	topology Topology

	connecting singleflight.Group

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	ready  bool
	closed bool
}

func NewPublisher(cfg config.Config, log *zap.Logger) *Publisher {
	return &Publisher{
		cfg:      cfg.Broker,
		log:      log.Named("events.publisher"),
		metrics:  metrics.PublisherWithConfig(metrics.Config{ServiceName: cfg.AppName, Environment: cfg.Environment}),
		topology: DefaultTopology(),
	}
}

// Publish sends one persistent JSON message to the domain's exchange and
// blocks until the broker confirms it or the confirm timeout elapses.
func (p *Publisher) Publish(ctx context.Context, domainKey, routingKey string, payload any, headers map[string]any) error {
	spec, ok := p.topology[domainKey]
	if !ok {
		return ErrUnknownDomain
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ch, err := p.ensure()
	if err != nil {
		return err
	}

	p.metrics.IncAttempt(spec.Exchange)
	start := time.Now()

	confirmation, err := ch.PublishWithDeferredConfirmWithContext(ctx, spec.Exchange, routingKey, false, false, amqp.Publishing{
		ContentType:     "application/json",
		ContentEncoding: "utf-8",
		DeliveryMode:    amqp.Persistent,
		Timestamp:       time.Now().UTC(),
		Headers:         amqp.Table(headers),
		Body:            body,
	})
	if err != nil {
		p.metrics.IncOutcome(spec.Exchange, metrics.PublishOutcomeFailed)
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, p.cfg.ConfirmTimeout)
	defer cancel()

	acked, err := confirmation.WaitContext(waitCtx)
	if err != nil {
		p.metrics.IncOutcome(spec.Exchange, metrics.PublishOutcomeFailed)
		return fmt.Errorf("wait confirm %s: %w", routingKey, err)
	}
	if !acked {
		p.metrics.IncOutcome(spec.Exchange, metrics.PublishOutcomeFailed)
		return ErrPublishNacked
	}

	p.metrics.ObserveConfirm(spec.Exchange, time.Since(start))
	p.metrics.IncOutcome(spec.Exchange, metrics.PublishOutcomeConfirmed)
	return nil
}

// PublishSafe retries Publish with linear backoff and re-raises the last
// error after exhausting attempts.
func (p *Publisher) PublishSafe(ctx context.Context, domainKey, routingKey string, payload any, headers map[string]any) error {
	return retryPublish(ctx, p.cfg.PublishRetries, p.cfg.RetryBackoff, func(ctx context.Context) error {
		return p.Publish(ctx, domainKey, routingKey, payload, headers)
	})
}

// PublishAsync runs PublishSafe in the background. A message still
// undelivered after all retries is dropped; the loss is recorded in the
// delivery outcome metric and the log, never surfaced to the caller.
func (p *Publisher) PublishAsync(domainKey, routingKey string, payload any, headers map[string]any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncPublishTimeout)
		defer cancel()

		if err := p.PublishSafe(ctx, domainKey, routingKey, payload, headers); err != nil {
			if spec, ok := p.topology[domainKey]; ok {
				p.metrics.IncOutcome(spec.Exchange, metrics.PublishOutcomeDropped)
			}
			p.log.Warn("event dropped after retries",
				zap.String("domain", domainKey),
				zap.String("routing_key", routingKey),
				zap.Error(err),
			)
		}
	}()
}

// Warmup dials the broker ahead of the first publish. Failure is not
// fatal, the next publish retriggers the connect.
func (p *Publisher) Warmup(ctx context.Context) {
	if _, err := p.ensure(); err != nil {
		p.log.Warn("broker warmup failed", zap.Error(err))
	}
}

// Close shuts the connection down and rejects further publishes.
func (p *Publisher) Close() error {
	p.mu.Lock()
	p.closed = true
	p.ready = false
	conn := p.conn
	ch := p.ch
	p.conn = nil
	p.ch = nil
	p.mu.Unlock()

	if ch != nil {
		_ = ch.Close()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (p *Publisher) ensure() (*amqp.Channel, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPublisherClosed
	}
	if p.ready && p.ch != nil {
		ch := p.ch
		p.mu.Unlock()
		return ch, nil
	}
	p.mu.Unlock()

	v, err, _ := p.connecting.Do("connect", func() (any, error) {
		return p.connect()
	})
	if err != nil {
		return nil, err
	}
	return v.(*amqp.Channel), nil
}

func (p *Publisher) connect() (*amqp.Channel, error) {
	conn, err := amqp.DialConfig(p.cfg.AMQPURL(), amqp.Config{
		Heartbeat: p.cfg.Heartbeat,
		Dial:      amqp.DefaultDial(p.cfg.ConnectTimeout),
	})
	if err != nil {
		p.metrics.IncConnectFailure()
		p.log.Warn("broker connect failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		p.metrics.IncConnectFailure()
		return nil, fmt.Errorf("%w: open channel: %v", ErrBrokerUnavailable, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		p.metrics.IncConnectFailure()
		return nil, fmt.Errorf("%w: confirm mode: %v", ErrBrokerUnavailable, err)
	}
	for _, spec := range p.topology {
		if err := spec.declare(ch); err != nil {
			_ = conn.Close()
			p.metrics.IncConnectFailure()
			return nil, fmt.Errorf("%w: declare topology: %v", ErrBrokerUnavailable, err)
		}
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = conn.Close()
		return nil, ErrPublisherClosed
	}
	p.conn = conn
	p.ch = ch
	p.ready = true
	p.mu.Unlock()

	go p.watch(conn,
		conn.NotifyClose(make(chan *amqp.Error, 1)),
		ch.NotifyClose(make(chan *amqp.Error, 1)),
	)

	p.log.Info("broker connected", zap.Int("exchanges", len(p.topology)))
	return ch, nil
}

// watch waits for the broker to drop the connection or the channel and
// keeps redialing until the publisher is ready again or closed. A
// channel-level exception leaves the connection open, so the connection
// is torn down before redialing either way.
func (p *Publisher) watch(conn *amqp.Connection, connClosed, chClosed <-chan *amqp.Error) {
	var amqpErr *amqp.Error
	var ok bool
	select {
	case amqpErr, ok = <-connClosed:
	case amqpErr, ok = <-chClosed:
	}
	if !ok || amqpErr == nil {
		return
	}

	if p.markDisconnected(conn) {
		return
	}
	_ = conn.Close()

	p.metrics.IncReconnect()
	p.log.Warn("broker connection lost", zap.String("reason", amqpErr.Error()))

	for {
		time.Sleep(p.cfg.ReconnectDelay)

		p.mu.Lock()
		stop := p.closed || p.ready
		p.mu.Unlock()
		if stop {
			return
		}

		if _, err := p.ensure(); err == nil {
			return
		}
	}
}

// markDisconnected drops the cached connection state when it still
// belongs to conn, so a stale watcher cannot clobber a newer
// connection. It reports whether the publisher has been closed.
func (p *Publisher) markDisconnected(conn *amqp.Connection) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == conn {
		p.ready = false
		p.conn = nil
		p.ch = nil
	}
	return p.closed
}
