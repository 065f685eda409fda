package events

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("events",
	fx.Provide(NewPublisher),
	fx.Provide(func(p *Publisher) Sink { return p }),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, p *Publisher) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go p.Warmup(context.Background())
			return nil
		},
		OnStop: func(context.Context) error {
			return p.Close()
		},
	})
}
