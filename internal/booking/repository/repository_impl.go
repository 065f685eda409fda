package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/gymspot/gymspot/internal/booking/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() bookingdomain.Repository {
	return &repo{}
}

const bookingColumns = `id, user_id, gym_id, subscription_id, slot_id, status,
	 qr_token_hash, qr_expires_at, checked_in_at, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, booking *bookingdomain.Booking) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bookings (
			id, user_id, gym_id, subscription_id, slot_id, status,
			qr_token_hash, qr_expires_at, checked_in_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ID,
		booking.UserID,
		booking.GymID,
		booking.SubscriptionID,
		booking.SlotID,
		booking.Status,
		booking.QRTokenHash,
		booking.QRExpiresAt,
		booking.CheckedInAt,
		booking.CreatedAt,
		booking.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*bookingdomain.Booking, error) {
	var booking bookingdomain.Booking
	err := db.WithContext(ctx).Raw(
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`,
		id,
	).Scan(&booking).Error
	if err != nil {
		return nil, err
	}
	if booking.ID == 0 {
		return nil, nil
	}
	return &booking, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*bookingdomain.Booking, error) {
	var booking bookingdomain.Booking
	err := db.WithContext(ctx).Raw(
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?
		 FOR UPDATE`,
		id,
	).Scan(&booking).Error
	if err != nil {
		return nil, err
	}
	if booking.ID == 0 {
		return nil, nil
	}
	return &booking, nil
}

func (r *repo) FindByTokenHashForUpdate(ctx context.Context, db *gorm.DB, tokenHash string) (*bookingdomain.Booking, error) {
	var booking bookingdomain.Booking
	err := db.WithContext(ctx).Raw(
		`SELECT `+bookingColumns+` FROM bookings WHERE qr_token_hash = ?
		 FOR UPDATE`,
		tokenHash,
	).Scan(&booking).Error
	if err != nil {
		return nil, err
	}
	if booking.ID == 0 {
		return nil, nil
	}
	return &booking, nil
}

func (r *repo) MarkCheckedIn(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE bookings
		 SET status = ?, checked_in_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		bookingdomain.BookingStatusCheckedIn,
		at,
		at,
		id,
		bookingdomain.BookingStatusConfirmed,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) MarkCancelled(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE bookings
		 SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		bookingdomain.BookingStatusCancelled,
		time.Now().UTC(),
		id,
		bookingdomain.BookingStatusConfirmed,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) InsertCheckin(ctx context.Context, db *gorm.DB, checkin *bookingdomain.Checkin) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO checkins (
			id, booking_id, subscription_id, verifier_device_id, source, used_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
		checkin.ID,
		checkin.BookingID,
		checkin.SubscriptionID,
		checkin.VerifierDeviceID,
		checkin.Source,
		checkin.UsedAt,
	).Error
}

func (r *repo) FindSlot(ctx context.Context, db *gorm.DB, id snowflake.ID) (*bookingdomain.Slot, error) {
	var slot bookingdomain.Slot
	err := db.WithContext(ctx).Raw(
		`SELECT id, gym_id, slot_date, start_time, end_time, capacity,
		 available, is_active, created_at, updated_at
		 FROM inventory_slots WHERE id = ?`,
		id,
	).Scan(&slot).Error
	if err != nil {
		return nil, err
	}
	if slot.ID == 0 {
		return nil, nil
	}
	return &slot, nil
}

func (r *repo) ClaimSlot(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE inventory_slots
		 SET available = available - 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND is_active = ? AND available > 0`,
		id,
		true,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ReleaseSlot(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE inventory_slots
		 SET available = available + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND available < capacity`,
		id,
	).Error
}
