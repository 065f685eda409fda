// Package domain contains the membership plan catalog models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PlanType determines how a subscription created from the plan is shaped:
// time-boxed plans get an end date, counted plans get an entry counter.
type PlanType string

const (
	PlanTypeMonthly PlanType = "monthly"
	PlanTypeAnnual  PlanType = "annual"
	PlanTypeTrial   PlanType = "trial"
	PlanTypePack    PlanType = "pack"
	PlanTypeDayPass PlanType = "daypass"
)

// Plan is a purchasable membership offering scoped to one gym.
type Plan struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	GymID        snowflake.ID `gorm:"not null;index"`
	Name         string       `gorm:"type:text;not null"`
	PlanType     PlanType     `gorm:"type:text;not null"`
	DurationDays *int         `gorm:""`
	EntriesTotal *int         `gorm:""`
	Active       bool         `gorm:"not null;default:true"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }
