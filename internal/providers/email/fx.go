package email

import (
	"github.com/gymspot/gymspot/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(ProvideProvider),
)

func ProvideProvider(cfg config.Config, log *zap.Logger) Provider {
	if cfg.SMTP.Host == "" {
		return NewNoop(log)
	}
	return NewSMTP(cfg.SMTP)
}
