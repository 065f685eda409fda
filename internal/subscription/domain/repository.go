package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	InsertEvent(ctx context.Context, db *gorm.DB, event *SubscriptionEvent) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	// FindByIDForUpdate locks the subscription row for the remainder of
	// the surrounding transaction.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	FindActiveForMember(ctx context.Context, db *gorm.DB, id, userID, gymID snowflake.ID) (*Subscription, error)
	SetEnd(ctx context.Context, db *gorm.DB, id snowflake.ID, endAt time.Time) error
	// DecrementEntries consumes one entry, guarded so the counter never
	// goes below zero. Returns false when no row qualified.
	DecrementEntries(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}
