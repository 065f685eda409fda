package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/gymspot/gymspot/internal/booking"
	bookingdomain "github.com/gymspot/gymspot/internal/booking/domain"
	"github.com/gymspot/gymspot/internal/campaign"
	campaigndomain "github.com/gymspot/gymspot/internal/campaign/domain"
	"github.com/gymspot/gymspot/internal/config"
	"github.com/gymspot/gymspot/internal/events"
	"github.com/gymspot/gymspot/internal/observability"
	obsmiddleware "github.com/gymspot/gymspot/internal/observability/logger"
	obsmetrics "github.com/gymspot/gymspot/internal/observability/metrics"
	obstracing "github.com/gymspot/gymspot/internal/observability/tracing"
	"github.com/gymspot/gymspot/internal/ratelimit"
	"github.com/gymspot/gymspot/internal/subscription"
	subscriptiondomain "github.com/gymspot/gymspot/internal/subscription/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	events.Module,
	ratelimit.Module,
	booking.Module,
	subscription.Module,
	campaign.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	genID           *snowflake.Node
	bookingSvc      bookingdomain.Service
	subscriptionSvc subscriptiondomain.Service
	campaignSvc     campaigndomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	GenID           *snowflake.Node
	BookingSvc      bookingdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	CampaignSvc     campaigndomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		genID:           p.GenID,
		bookingSvc:      p.BookingSvc,
		subscriptionSvc: p.SubscriptionSvc,
		campaignSvc:     p.CampaignSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	bookings := api.Group("/bookings")
	{
		bookings.POST("", s.CreateBooking)
		bookings.POST("/:bookingId/cancel", s.CancelBooking)
	}

	api.POST("/checkin/verify", s.VerifyCheckIn)

	subscriptions := api.Group("/subscriptions")
	{
		subscriptions.POST("", s.CreateSubscription)
		subscriptions.GET("/:subscriptionId", s.GetSubscription)
		subscriptions.POST("/:subscriptionId/freeze", s.FreezeSubscription)
	}

	campaigns := api.Group("/marketing/campaigns")
	{
		campaigns.POST("", s.CreateCampaign)
		campaigns.POST("/:campaignId/recipients", s.AddCampaignRecipients)
		campaigns.POST("/:campaignId/ready", s.MarkCampaignReady)
	}
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, error) {
	raw := c.Param(name)
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return 0, newValidationError(name, "invalid_"+name, "invalid identifier")
	}
	return id, nil
}
