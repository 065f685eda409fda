// Package domain contains persistence models for member subscriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// SubscriptionStatus represents lifecycle states for a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusPending SubscriptionStatus = "pending"
	SubscriptionStatusActive  SubscriptionStatus = "active"
	SubscriptionStatusExpired SubscriptionStatus = "expired"
	SubscriptionStatusFrozen  SubscriptionStatus = "frozen"
)

// Subscription is a member's entitlement to use a gym. EndAt is nil for
// open-ended grants; EntriesRemaining is nil for unlimited (time-boxed)
// plans and a consumable counter for pack and day-pass plans.
type Subscription struct {
	ID               snowflake.ID       `gorm:"primaryKey"`
	UserID           snowflake.ID       `gorm:"not null;index"`
	GymID            snowflake.ID       `gorm:"not null;index"`
	PlanID           snowflake.ID       `gorm:"not null;index"`
	Status           SubscriptionStatus `gorm:"type:text;not null"`
	StartAt          time.Time          `gorm:"not null"`
	EndAt            *time.Time         `gorm:""`
	AutoRenew        bool               `gorm:"not null;default:false"`
	EntriesRemaining *int               `gorm:""`
	CreatedAt        time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// SubscriptionEvent is an append-only audit row for subscription changes.
type SubscriptionEvent struct {
	ID             snowflake.ID      `gorm:"primaryKey"`
	SubscriptionID snowflake.ID      `gorm:"not null;index"`
	EventType      string            `gorm:"type:text;not null"`
	Payload        datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (SubscriptionEvent) TableName() string { return "subscription_events" }
