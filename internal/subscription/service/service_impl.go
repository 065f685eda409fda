package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gymspot/gymspot/internal/clock"
	"github.com/gymspot/gymspot/internal/events"
	plandomain "github.com/gymspot/gymspot/internal/plan/domain"
	subscriptiondomain "github.com/gymspot/gymspot/internal/subscription/domain"
	"github.com/gymspot/gymspot/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	maxFreezeDays = 30
	minFreezeDays = 1
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID    *snowflake.Node
	clock    clock.Clock
	repo     subscriptiondomain.Repository
	planRepo repository.Repository[plandomain.Plan]
	sink     events.Sink
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  subscriptiondomain.Repository
	Sink  events.Sink `optional:"true"`
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("subscription.service"),

		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		planRepo: repository.ProvideStore[plandomain.Plan](p.DB),
		sink:     p.Sink,
	}
}

// Create implements domain.Service.
func (s *Service) Create(ctx context.Context, req subscriptiondomain.CreateSubscriptionRequest) (subscriptiondomain.CreateSubscriptionResponse, error) {
	plan, err := s.planRepo.FindOne(ctx, &plandomain.Plan{ID: req.PlanID, GymID: req.GymID, Active: true})
	if err != nil {
		return subscriptiondomain.CreateSubscriptionResponse{}, err
	}
	if plan == nil {
		return subscriptiondomain.CreateSubscriptionResponse{}, plandomain.ErrPlanNotFound
	}

	now := s.clock.Now()
	startAt := now
	var endAt *time.Time
	var entriesRemaining *int

	switch plan.PlanType {
	case plandomain.PlanTypeMonthly, plandomain.PlanTypeAnnual, plandomain.PlanTypeTrial:
		if plan.DurationDays != nil {
			end := startAt.AddDate(0, 0, *plan.DurationDays)
			endAt = &end
		}
	case plandomain.PlanTypePack:
		entries := 0
		if plan.EntriesTotal != nil {
			entries = *plan.EntriesTotal
		}
		entriesRemaining = &entries
	case plandomain.PlanTypeDayPass:
		entries := 1
		entriesRemaining = &entries
		end := startAt.AddDate(0, 0, 1)
		endAt = &end
	default:
		return subscriptiondomain.CreateSubscriptionResponse{}, plandomain.ErrInvalidPlan
	}

	status := subscriptiondomain.SubscriptionStatusPending
	if req.Paid {
		status = subscriptiondomain.SubscriptionStatusActive
	}

	subscription := &subscriptiondomain.Subscription{
		ID:               s.genID.Generate(),
		UserID:           req.UserID,
		GymID:            req.GymID,
		PlanID:           req.PlanID,
		Status:           status,
		StartAt:          startAt,
		EndAt:            endAt,
		EntriesRemaining: entriesRemaining,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, subscription); err != nil {
			return err
		}
		return s.repo.InsertEvent(ctx, tx, &subscriptiondomain.SubscriptionEvent{
			ID:             s.genID.Generate(),
			SubscriptionID: subscription.ID,
			EventType:      "created",
			Payload:        datatypes.JSONMap{"paid": req.Paid},
			CreatedAt:      now,
		})
	})
	if err != nil {
		return subscriptiondomain.CreateSubscriptionResponse{}, err
	}

	s.publishAsync("subscription.created", subscription)

	return subscriptiondomain.CreateSubscriptionResponse{
		ID:               subscription.ID,
		Status:           subscription.Status,
		StartAt:          subscription.StartAt,
		EndAt:            subscription.EndAt,
		EntriesRemaining: subscription.EntriesRemaining,
	}, nil
}

// Freeze implements domain.Service.
func (s *Service) Freeze(ctx context.Context, req subscriptiondomain.FreezeSubscriptionRequest) error {
	days := req.Days
	if days < minFreezeDays {
		days = minFreezeDays
	}
	if days > maxFreezeDays {
		days = maxFreezeDays
	}

	var frozen *subscriptiondomain.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subscription, err := s.repo.FindByIDForUpdate(ctx, tx, req.SubscriptionID)
		if err != nil {
			return err
		}
		if subscription == nil {
			return subscriptiondomain.ErrSubscriptionNotFound
		}
		if subscription.EndAt == nil {
			return subscriptiondomain.ErrNoEndDate
		}

		newEnd := subscription.EndAt.AddDate(0, 0, days)
		if err := s.repo.SetEnd(ctx, tx, subscription.ID, newEnd); err != nil {
			return err
		}
		subscription.EndAt = &newEnd
		frozen = subscription

		return s.repo.InsertEvent(ctx, tx, &subscriptiondomain.SubscriptionEvent{
			ID:             s.genID.Generate(),
			SubscriptionID: subscription.ID,
			EventType:      "freeze_applied",
			Payload:        datatypes.JSONMap{"days": days},
			CreatedAt:      s.clock.Now(),
		})
	})
	if err != nil {
		return err
	}

	s.publishAsync("subscription.frozen", frozen)
	return nil
}

// GetByID implements domain.Service.
func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (subscriptiondomain.Subscription, error) {
	subscription, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if subscription == nil {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrSubscriptionNotFound
	}
	return *subscription, nil
}

func (s *Service) publishAsync(event string, subscription *subscriptiondomain.Subscription) {
	if s.sink == nil || subscription == nil {
		return
	}
	routingKey := fmt.Sprintf("%s.%s", event, subscription.GymID)
	s.sink.PublishAsync(events.DomainMemberships, routingKey, map[string]any{
		"event":           event,
		"subscription_id": subscription.ID.String(),
		"user_id":         subscription.UserID.String(),
		"gym_id":          subscription.GymID.String(),
		"status":          subscription.Status,
		"ts":              s.clock.Now().Format(time.RFC3339),
	}, nil)
}
