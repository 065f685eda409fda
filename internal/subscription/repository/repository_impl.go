package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/gymspot/gymspot/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (
			id, user_id, gym_id, plan_id, status, start_at, end_at,
			auto_renew, entries_remaining, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		subscription.ID,
		subscription.UserID,
		subscription.GymID,
		subscription.PlanID,
		subscription.Status,
		subscription.StartAt,
		subscription.EndAt,
		subscription.AutoRenew,
		subscription.EntriesRemaining,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	).Error
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *subscriptiondomain.SubscriptionEvent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscription_events (
			id, subscription_id, event_type, payload, created_at
		) VALUES (?, ?, ?, ?, ?)`,
		event.ID,
		event.SubscriptionID,
		event.EventType,
		event.Payload,
		event.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, gym_id, plan_id, status, start_at, end_at,
		 auto_renew, entries_remaining, created_at, updated_at
		 FROM subscriptions WHERE id = ?`,
		id,
	).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, gym_id, plan_id, status, start_at, end_at,
		 auto_renew, entries_remaining, created_at, updated_at
		 FROM subscriptions WHERE id = ?
		 FOR UPDATE`,
		id,
	).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) FindActiveForMember(ctx context.Context, db *gorm.DB, id, userID, gymID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, gym_id, plan_id, status, start_at, end_at,
		 auto_renew, entries_remaining, created_at, updated_at
		 FROM subscriptions
		 WHERE id = ? AND user_id = ? AND gym_id = ? AND status = ?`,
		id,
		userID,
		gymID,
		subscriptiondomain.SubscriptionStatusActive,
	).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) SetEnd(ctx context.Context, db *gorm.DB, id snowflake.ID, endAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET end_at = ?, updated_at = ?
		 WHERE id = ? AND end_at IS NOT NULL`,
		endAt,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) DecrementEntries(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET entries_remaining = entries_remaining - 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND entries_remaining IS NOT NULL AND entries_remaining > 0`,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
