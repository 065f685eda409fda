// Package domain contains the newsletter campaign models drained by the
// dispatch worker.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusReady     CampaignStatus = "ready"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusSending   CampaignStatus = "sending"
	CampaignStatusSent      CampaignStatus = "sent"
)

type SendStatus string

const (
	SendStatusQueued  SendStatus = "queued"
	SendStatusSent    SendStatus = "sent"
	SendStatusFailed  SendStatus = "failed"
	SendStatusOpened  SendStatus = "opened"
	SendStatusClicked SendStatus = "clicked"
	SendStatusBounced SendStatus = "bounced"
)

// Campaign is one outbound mailing. It reaches the terminal sent state
// only once no queued recipients remain.
type Campaign struct {
	ID          snowflake.ID   `gorm:"column:id;primaryKey"`
	GymID       snowflake.ID   `gorm:"column:gym_id"`
	Subject     string         `gorm:"column:subject"`
	ContentHTML string         `gorm:"column:content_html"`
	Status      CampaignStatus `gorm:"column:status"`
	ScheduledAt *time.Time     `gorm:"column:scheduled_at"`
	SentAt      *time.Time     `gorm:"column:sent_at"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at"`
}

func (Campaign) TableName() string {
	return "newsletter_campaigns"
}

// CampaignRecipient is a queueable send task. Each row transitions
// independently, so a failed send never blocks the rest of the batch
// and rerunning a tick after a crash is safe.
type CampaignRecipient struct {
	ID         snowflake.ID `gorm:"column:id;primaryKey"`
	CampaignID snowflake.ID `gorm:"column:campaign_id"`
	ContactID  snowflake.ID `gorm:"column:contact_id"`
	SendStatus SendStatus   `gorm:"column:send_status"`
	SendAt     *time.Time   `gorm:"column:send_at"`
	LastError  *string      `gorm:"column:last_error"`
	CreatedAt  time.Time    `gorm:"column:created_at"`
}

func (CampaignRecipient) TableName() string {
	return "campaign_recipients"
}

// MarketingContact is an addressable member of a gym's mailing list.
type MarketingContact struct {
	ID           snowflake.ID `gorm:"column:id;primaryKey"`
	GymID        snowflake.ID `gorm:"column:gym_id"`
	Email        string       `gorm:"column:email"`
	Unsubscribed bool         `gorm:"column:unsubscribed"`
	CreatedAt    time.Time    `gorm:"column:created_at"`
}

func (MarketingContact) TableName() string {
	return "marketing_contacts"
}
