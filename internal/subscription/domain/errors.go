package domain

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrSubscriptionInactive = errors.New("subscription_inactive")
	ErrEntriesExhausted     = errors.New("entries_exhausted")
	ErrNoEndDate            = errors.New("subscription_has_no_end_date")
	ErrInvalidFreeze        = errors.New("invalid_freeze")
)
