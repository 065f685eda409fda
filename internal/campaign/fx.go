package campaign

import (
	"github.com/gymspot/gymspot/internal/campaign/service"
	"go.uber.org/fx"
)

var Module = fx.Module("campaign.service",
	fx.Provide(service.NewService),
)
