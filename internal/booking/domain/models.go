package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCheckedIn BookingStatus = "checked_in"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Slot is a dated, capacity-bounded bookable window. Available is only
// ever decremented through the conditional claim update so it can never
// go below zero.
type Slot struct {
	ID        snowflake.ID `gorm:"column:id;primaryKey"`
	GymID     snowflake.ID `gorm:"column:gym_id"`
	SlotDate  time.Time    `gorm:"column:slot_date"`
	StartTime string       `gorm:"column:start_time"`
	EndTime   string       `gorm:"column:end_time"`
	Capacity  int          `gorm:"column:capacity"`
	Available int          `gorm:"column:available"`
	IsActive  bool         `gorm:"column:is_active"`
	CreatedAt time.Time    `gorm:"column:created_at"`
	UpdatedAt time.Time    `gorm:"column:updated_at"`
}

func (Slot) TableName() string {
	return "inventory_slots"
}

// Booking is a reservation claim redeemable once via its QR token. Only
// the token hash is stored, the raw secret goes to the caller and is
// never persisted.
type Booking struct {
	ID             snowflake.ID  `gorm:"column:id;primaryKey"`
	UserID         snowflake.ID  `gorm:"column:user_id"`
	GymID          snowflake.ID  `gorm:"column:gym_id"`
	SubscriptionID *snowflake.ID `gorm:"column:subscription_id"`
	SlotID         *snowflake.ID `gorm:"column:slot_id"`
	Status         BookingStatus `gorm:"column:status"`
	QRTokenHash    string        `gorm:"column:qr_token_hash"`
	QRExpiresAt    time.Time     `gorm:"column:qr_expires_at"`
	CheckedInAt    *time.Time    `gorm:"column:checked_in_at"`
	CreatedAt      time.Time     `gorm:"column:created_at"`
	UpdatedAt      time.Time     `gorm:"column:updated_at"`
}

func (Booking) TableName() string {
	return "bookings"
}

// Checkin is the append-only audit row written once per successful
// check-in, in the same transaction as the booking status flip.
type Checkin struct {
	ID               snowflake.ID  `gorm:"column:id;primaryKey"`
	BookingID        snowflake.ID  `gorm:"column:booking_id"`
	SubscriptionID   *snowflake.ID `gorm:"column:subscription_id"`
	VerifierDeviceID *string       `gorm:"column:verifier_device_id"`
	Source           string        `gorm:"column:source"`
	UsedAt           time.Time     `gorm:"column:used_at"`
}

func (Checkin) TableName() string {
	return "checkins"
}
