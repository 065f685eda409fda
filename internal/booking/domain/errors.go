package domain

import "errors"

var (
	ErrSlotNotFound    = errors.New("slot_not_found")
	ErrSlotFull        = errors.New("slot_full")
	ErrBookingNotFound = errors.New("booking_not_found")
	ErrInvalidToken    = errors.New("invalid_token")
	ErrTokenExpired    = errors.New("token_expired")
	ErrAlreadyUsed     = errors.New("booking_already_used")
)
