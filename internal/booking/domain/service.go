package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type ReserveRequest struct {
	UserID         snowflake.ID  `json:"user_id" binding:"required"`
	GymID          snowflake.ID  `json:"gym_id" binding:"required"`
	SubscriptionID *snowflake.ID `json:"subscription_id,omitempty"`
	SlotID         *snowflake.ID `json:"slot_id,omitempty"`
}

type ReserveResponse struct {
	BookingID snowflake.ID `json:"booking_id"`
	// QRToken is the raw single-use secret, returned exactly once.
	QRToken     string    `json:"qr_token"`
	QRExpiresAt time.Time `json:"qr_expires_at"`
}

type CheckInRequest struct {
	QRToken          string  `json:"qr_token" binding:"required,min=16"`
	VerifierDeviceID *string `json:"verifier_device_id,omitempty"`
}

type CheckInResponse struct {
	BookingID   snowflake.ID `json:"booking_id"`
	CheckedInAt time.Time    `json:"checked_in_at"`
}

type Service interface {
	// Reserve creates a confirmed booking and issues its QR token,
	// claiming slot capacity when a slot is given.
	Reserve(ctx context.Context, req ReserveRequest) (ReserveResponse, error)
	// CheckIn redeems a QR token exactly once, consuming one
	// subscription entry when the booking draws on a counted plan.
	CheckIn(ctx context.Context, req CheckInRequest) (CheckInResponse, error)
	// Cancel voids a confirmed booking and returns its slot capacity.
	Cancel(ctx context.Context, bookingID snowflake.ID) error
}
