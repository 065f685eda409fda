package booking

import (
	"github.com/gymspot/gymspot/internal/booking/repository"
	"github.com/gymspot/gymspot/internal/booking/service"
	"go.uber.org/fx"
)

var Module = fx.Module("booking.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
