package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, booking *Booking) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Booking, error)
	// FindByIDForUpdate locks the booking row for the remainder of the
	// surrounding transaction.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Booking, error)
	// FindByTokenHashForUpdate locks the booking row matched by the
	// token hash, serializing concurrent redemptions of the same token.
	FindByTokenHashForUpdate(ctx context.Context, db *gorm.DB, tokenHash string) (*Booking, error)
	// MarkCheckedIn flips a confirmed booking to checked_in. Returns
	// false when the booking already left the confirmed state.
	MarkCheckedIn(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	MarkCancelled(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	InsertCheckin(ctx context.Context, db *gorm.DB, checkin *Checkin) error

	FindSlot(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Slot, error)
	// ClaimSlot decrements available capacity, guarded so it never goes
	// below zero. Returns false when the slot filled concurrently.
	ClaimSlot(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	// ReleaseSlot returns one unit of capacity, capped at the total.
	ReleaseSlot(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
