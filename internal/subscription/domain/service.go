package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CreateSubscriptionRequest struct {
	UserID snowflake.ID `json:"user_id"`
	GymID  snowflake.ID `json:"gym_id"`
	PlanID snowflake.ID `json:"plan_id"`
	Paid   bool         `json:"paid"`
}

type CreateSubscriptionResponse struct {
	ID               snowflake.ID       `json:"id"`
	Status           SubscriptionStatus `json:"status"`
	StartAt          time.Time          `json:"start_at"`
	EndAt            *time.Time         `json:"end_at,omitempty"`
	EntriesRemaining *int               `json:"entries_remaining,omitempty"`
}

type FreezeSubscriptionRequest struct {
	SubscriptionID snowflake.ID
	Days           int
}

type Service interface {
	Create(ctx context.Context, req CreateSubscriptionRequest) (CreateSubscriptionResponse, error)
	// Freeze pushes the end date out by the given number of days,
	// clamped to [1, 30].
	Freeze(ctx context.Context, req FreezeSubscriptionRequest) error
	GetByID(ctx context.Context, id snowflake.ID) (Subscription, error)
}
