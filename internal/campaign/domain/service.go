package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CreateCampaignRequest struct {
	GymID       snowflake.ID `json:"gym_id" binding:"required"`
	Subject     string       `json:"subject" binding:"required"`
	ContentHTML string       `json:"content_html"`
	ScheduledAt *time.Time   `json:"scheduled_at,omitempty"`
}

type CreateCampaignResponse struct {
	ID     snowflake.ID   `json:"id"`
	Status CampaignStatus `json:"status"`
}

type AddRecipientsRequest struct {
	CampaignID snowflake.ID
	ContactIDs []snowflake.ID `json:"contact_ids" binding:"required,min=1"`
	Replace    bool           `json:"replace"`
}

type Service interface {
	// Create inserts a draft campaign, or a scheduled one when a
	// schedule time is given.
	Create(ctx context.Context, req CreateCampaignRequest) (CreateCampaignResponse, error)
	// AddRecipients queues the given contacts, skipping ones already
	// attached. Returns the total recipient count.
	AddRecipients(ctx context.Context, req AddRecipientsRequest) (int, error)
	// MarkReady flips the campaign to ready for the dispatch worker,
	// materializing the gym's full subscribed contact list when no
	// recipients were chosen explicitly. Returns the queued count.
	MarkReady(ctx context.Context, id snowflake.ID) (int, error)
}
