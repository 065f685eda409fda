package subscription

import (
	"github.com/gymspot/gymspot/internal/subscription/repository"
	"github.com/gymspot/gymspot/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
