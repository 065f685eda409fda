package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	bookingdomain "github.com/gymspot/gymspot/internal/booking/domain"
	bookingrepo "github.com/gymspot/gymspot/internal/booking/repository"
	"github.com/gymspot/gymspot/internal/clock"
	subscriptiondomain "github.com/gymspot/gymspot/internal/subscription/domain"
	subscriptionrepo "github.com/gymspot/gymspot/internal/subscription/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	// SQLite support hack: remove FOR UPDATE clauses
	stripForUpdate := func(d *gorm.DB) {
		sql := d.Statement.SQL.String()
		if strings.Contains(sql, "FOR UPDATE") {
			newSQL := strings.ReplaceAll(sql, "FOR UPDATE SKIP LOCKED", "")
			newSQL = strings.ReplaceAll(newSQL, "FOR UPDATE", "")
			d.Statement.SQL.Reset()
			d.Statement.SQL.WriteString(newSQL)
		}
	}
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("sqlite_skip_locked", stripForUpdate))
	require.NoError(t, db.Callback().Row().Before("gorm:row").Register("sqlite_skip_locked_row", stripForUpdate))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`CREATE TABLE subscriptions (
			id INTEGER PRIMARY KEY,
			user_id INTEGER,
			gym_id INTEGER,
			plan_id INTEGER,
			status TEXT,
			start_at DATETIME,
			end_at DATETIME,
			auto_renew BOOLEAN DEFAULT 0,
			entries_remaining INTEGER,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE inventory_slots (
			id INTEGER PRIMARY KEY,
			gym_id INTEGER,
			slot_date DATETIME,
			start_time TEXT,
			end_time TEXT,
			capacity INTEGER,
			available INTEGER,
			is_active BOOLEAN DEFAULT 1,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE bookings (
			id INTEGER PRIMARY KEY,
			user_id INTEGER,
			gym_id INTEGER,
			subscription_id INTEGER,
			slot_id INTEGER,
			status TEXT,
			qr_token_hash TEXT,
			qr_expires_at DATETIME,
			checked_in_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE UNIQUE INDEX idx_bookings_token_hash ON bookings (qr_token_hash)`,
		`CREATE TABLE checkins (
			id INTEGER PRIMARY KEY,
			booking_id INTEGER,
			subscription_id INTEGER,
			verifier_device_id TEXT,
			source TEXT,
			used_at DATETIME
		)`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}

	return db
}

type fixture struct {
	db      *gorm.DB
	clock   *clock.FakeClock
	genID   *snowflake.Node
	service bookingdomain.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db := setupDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	svc := NewService(ServiceParam{
		DB:            db,
		Log:           zap.NewNop(),
		GenID:         node,
		Clock:         fakeClock,
		Repo:          bookingrepo.Provide(),
		Subscriptions: subscriptionrepo.Provide(),
	})

	return &fixture{db: db, clock: fakeClock, genID: node, service: svc}
}

func (f *fixture) seedSlot(t *testing.T, available, capacity int, active bool) snowflake.ID {
	t.Helper()
	id := f.genID.Generate()
	require.NoError(t, f.db.Exec(
		`INSERT INTO inventory_slots (id, gym_id, slot_date, start_time, end_time, capacity, available, is_active, created_at, updated_at)
		 VALUES (?, 1, ?, '09:00', '10:00', ?, ?, ?, ?, ?)`,
		id, f.clock.Now(), capacity, available, active, f.clock.Now(), f.clock.Now(),
	).Error)
	return id
}

func (f *fixture) seedSubscription(t *testing.T, userID, gymID snowflake.ID, status subscriptiondomain.SubscriptionStatus, entries *int) snowflake.ID {
	t.Helper()
	id := f.genID.Generate()
	require.NoError(t, f.db.Exec(
		`INSERT INTO subscriptions (id, user_id, gym_id, plan_id, status, start_at, entries_remaining, created_at, updated_at)
		 VALUES (?, ?, ?, 1, ?, ?, ?, ?, ?)`,
		id, userID, gymID, status, f.clock.Now(), entries, f.clock.Now(), f.clock.Now(),
	).Error)
	return id
}

func intPtr(v int) *int { return &v }

func TestReserveClaimsLastSlotCapacity(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	slotID := f.seedSlot(t, 1, 10, true)

	first, err := f.service.Reserve(ctx, bookingdomain.ReserveRequest{
		UserID: 100, GymID: 1, SlotID: &slotID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.QRToken)

	var available int
	require.NoError(t, f.db.Raw(`SELECT available FROM inventory_slots WHERE id = ?`, slotID).Scan(&available).Error)
	require.Equal(t, 0, available)

	_, err = f.service.Reserve(ctx, bookingdomain.ReserveRequest{
		UserID: 200, GymID: 1, SlotID: &slotID,
	})
	require.ErrorIs(t, err, bookingdomain.ErrSlotFull)

	require.NoError(t, f.db.Raw(`SELECT available FROM inventory_slots WHERE id = ?`, slotID).Scan(&available).Error)
	require.Equal(t, 0, available)
}

func TestReserveUnknownSlot(t *testing.T) {
	f := setup(t)
	missing := f.genID.Generate()

	_, err := f.service.Reserve(context.Background(), bookingdomain.ReserveRequest{
		UserID: 100, GymID: 1, SlotID: &missing,
	})
	require.ErrorIs(t, err, bookingdomain.ErrSlotNotFound)
}

func TestReserveRemintsTokenOnHashCollision(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.service.Reserve(ctx, bookingdomain.ReserveRequest{UserID: 100, GymID: 1})
	require.NoError(t, err)

	var takenHash string
	require.NoError(t, f.db.Raw(`SELECT qr_token_hash FROM bookings WHERE id = ?`, first.BookingID).Scan(&takenHash).Error)

	svc := f.service.(*Service)
	mints := 0
	svc.mintToken = func() (string, string, error) {
		mints++
		if mints == 1 {
			return first.QRToken, takenHash, nil
		}
		return bookingdomain.NewToken()
	}

	second, err := f.service.Reserve(ctx, bookingdomain.ReserveRequest{UserID: 200, GymID: 1})
	require.NoError(t, err)
	require.Equal(t, 2, mints)
	require.NotEqual(t, first.QRToken, second.QRToken)

	var count int
	require.NoError(t, f.db.Raw(`SELECT COUNT(*) FROM bookings`).Scan(&count).Error)
	require.Equal(t, 2, count)
}

func TestReserveInactiveSlot(t *testing.T) {
	f := setup(t)
	slotID := f.seedSlot(t, 5, 10, false)

	_, err := f.service.Reserve(context.Background(), bookingdomain.ReserveRequest{
		UserID: 100, GymID: 1, SlotID: &slotID,
	})
	require.ErrorIs(t, err, bookingdomain.ErrSlotNotFound)
}

func TestReserveRequiresActiveSubscription(t *testing.T) {
	f := setup(t)
	subID := f.seedSubscription(t, 100, 1, subscriptiondomain.SubscriptionStatusExpired, nil)

	_, err := f.service.Reserve(context.Background(), bookingdomain.ReserveRequest{
		UserID: 100, GymID: 1, SubscriptionID: &subID,
	})
	require.ErrorIs(t, err, subscriptiondomain.ErrSubscriptionInactive)
}

func TestReserveChecksEntriesWithoutConsuming(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	exhausted := f.seedSubscription(t, 100, 1, subscriptiondomain.SubscriptionStatusActive, intPtr(0))
	_, err := f.service.Reserve(ctx, bookingdomain.ReserveRequest{
		UserID: 100, GymID: 1, SubscriptionID: &exhausted,
	})
	require.ErrorIs(t, err, subscriptiondomain.ErrEntriesExhausted)

	subID := f.seedSubscription(t, 100, 1, subscriptiondomain.SubscriptionStatusActive, intPtr(3))
	_, err = f.service.Reserve(ctx, bookingdomain.ReserveRequest{
		UserID: 100, GymID: 1, SubscriptionID: &subID,
	})
	require.NoError(t, err)

	// Reservation only checks the counter, the decrement happens at check-in.
	var entries int
	require.NoError(t, f.db.Raw(`SELECT entries_remaining FROM subscriptions WHERE id = ?`, subID).Scan(&entries).Error)
	require.Equal(t, 3, entries)
}

func TestCheckInHappyPathConsumesEntry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	subID := f.seedSubscription(t, 100, 1, subscriptiondomain.SubscriptionStatusActive, intPtr(2))
	reserved, err := f.service.Reserve(ctx, bookingdomain.ReserveRequest{
		UserID: 100, GymID: 1, SubscriptionID: &subID,
	})
	require.NoError(t, err)

	device := "door-7"
	checked, err := f.service.CheckIn(ctx, bookingdomain.CheckInRequest{
		QRToken: reserved.QRToken, VerifierDeviceID: &device,
	})
	require.NoError(t, err)
	require.Equal(t, reserved.BookingID, checked.BookingID)

	var status string
	require.NoError(t, f.db.Raw(`SELECT status FROM bookings WHERE id = ?`, reserved.BookingID).Scan(&status).Error)
	require.Equal(t, string(bookingdomain.BookingStatusCheckedIn), status)

	var entries int
	require.NoError(t, f.db.Raw(`SELECT entries_remaining FROM subscriptions WHERE id = ?`, subID).Scan(&entries).Error)
	require.Equal(t, 1, entries)

	var checkins int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(*) FROM checkins WHERE booking_id = ?`, reserved.BookingID).Scan(&checkins).Error)
	require.Equal(t, int64(1), checkins)
}

func TestCheckInSameTokenTwice(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	reserved, err := f.service.Reserve(ctx, bookingdomain.ReserveRequest{UserID: 100, GymID: 1})
	require.NoError(t, err)

	_, err = f.service.CheckIn(ctx, bookingdomain.CheckInRequest{QRToken: reserved.QRToken})
	require.NoError(t, err)

	_, err = f.service.CheckIn(ctx, bookingdomain.CheckInRequest{QRToken: reserved.QRToken})
	require.ErrorIs(t, err, bookingdomain.ErrAlreadyUsed)

	var checkins int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(*) FROM checkins WHERE booking_id = ?`, reserved.BookingID).Scan(&checkins).Error)
	require.Equal(t, int64(1), checkins)
}

func TestCheckInExpiredTokenMutatesNothing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	reserved, err := f.service.Reserve(ctx, bookingdomain.ReserveRequest{UserID: 100, GymID: 1})
	require.NoError(t, err)

	f.clock.Advance(121 * time.Minute)

	_, err = f.service.CheckIn(ctx, bookingdomain.CheckInRequest{QRToken: reserved.QRToken})
	require.ErrorIs(t, err, bookingdomain.ErrTokenExpired)

	var status string
	require.NoError(t, f.db.Raw(`SELECT status FROM bookings WHERE id = ?`, reserved.BookingID).Scan(&status).Error)
	require.Equal(t, string(bookingdomain.BookingStatusConfirmed), status)

	var checkins int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(*) FROM checkins`).Scan(&checkins).Error)
	require.Equal(t, int64(0), checkins)
}

func TestCheckInInvalidToken(t *testing.T) {
	f := setup(t)

	_, err := f.service.CheckIn(context.Background(), bookingdomain.CheckInRequest{
		QRToken: "not-a-token-anyone-issued",
	})
	require.ErrorIs(t, err, bookingdomain.ErrInvalidToken)
}

func TestCheckInExhaustedEntriesRollsBackStatusFlip(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	subID := f.seedSubscription(t, 100, 1, subscriptiondomain.SubscriptionStatusActive, intPtr(1))
	reserved, err := f.service.Reserve(ctx, bookingdomain.ReserveRequest{
		UserID: 100, GymID: 1, SubscriptionID: &subID,
	})
	require.NoError(t, err)

	// Entry consumed elsewhere between reservation and check-in.
	require.NoError(t, f.db.Exec(`UPDATE subscriptions SET entries_remaining = 0 WHERE id = ?`, subID).Error)

	_, err = f.service.CheckIn(ctx, bookingdomain.CheckInRequest{QRToken: reserved.QRToken})
	require.ErrorIs(t, err, subscriptiondomain.ErrEntriesExhausted)

	var status string
	require.NoError(t, f.db.Raw(`SELECT status FROM bookings WHERE id = ?`, reserved.BookingID).Scan(&status).Error)
	require.Equal(t, string(bookingdomain.BookingStatusConfirmed), status)

	var entries int
	require.NoError(t, f.db.Raw(`SELECT entries_remaining FROM subscriptions WHERE id = ?`, subID).Scan(&entries).Error)
	require.Equal(t, 0, entries)

	var checkins int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(*) FROM checkins`).Scan(&checkins).Error)
	require.Equal(t, int64(0), checkins)
}

func TestCheckInUnlimitedSubscriptionSkipsCounter(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	subID := f.seedSubscription(t, 100, 1, subscriptiondomain.SubscriptionStatusActive, nil)
	reserved, err := f.service.Reserve(ctx, bookingdomain.ReserveRequest{
		UserID: 100, GymID: 1, SubscriptionID: &subID,
	})
	require.NoError(t, err)

	_, err = f.service.CheckIn(ctx, bookingdomain.CheckInRequest{QRToken: reserved.QRToken})
	require.NoError(t, err)

	var entries *int
	require.NoError(t, f.db.Raw(`SELECT entries_remaining FROM subscriptions WHERE id = ?`, subID).Scan(&entries).Error)
	require.Nil(t, entries)
}

func TestCancelReleasesSlotCapacity(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	slotID := f.seedSlot(t, 1, 1, true)

	reserved, err := f.service.Reserve(ctx, bookingdomain.ReserveRequest{
		UserID: 100, GymID: 1, SlotID: &slotID,
	})
	require.NoError(t, err)

	require.NoError(t, f.service.Cancel(ctx, reserved.BookingID))

	var available int
	require.NoError(t, f.db.Raw(`SELECT available FROM inventory_slots WHERE id = ?`, slotID).Scan(&available).Error)
	require.Equal(t, 1, available)

	// Cancelled is terminal, a second cancel is a no-op.
	require.NoError(t, f.service.Cancel(ctx, reserved.BookingID))
	require.NoError(t, f.db.Raw(`SELECT available FROM inventory_slots WHERE id = ?`, slotID).Scan(&available).Error)
	require.Equal(t, 1, available)
}

func TestCancelCheckedInBooking(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	reserved, err := f.service.Reserve(ctx, bookingdomain.ReserveRequest{UserID: 100, GymID: 1})
	require.NoError(t, err)
	_, err = f.service.CheckIn(ctx, bookingdomain.CheckInRequest{QRToken: reserved.QRToken})
	require.NoError(t, err)

	require.ErrorIs(t, f.service.Cancel(ctx, reserved.BookingID), bookingdomain.ErrAlreadyUsed)
}

func TestCancelUnknownBooking(t *testing.T) {
	f := setup(t)
	require.ErrorIs(t, f.service.Cancel(context.Background(), f.genID.Generate()), bookingdomain.ErrBookingNotFound)
}

func TestCheckInCancelledBookingToken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	reserved, err := f.service.Reserve(ctx, bookingdomain.ReserveRequest{UserID: 100, GymID: 1})
	require.NoError(t, err)
	require.NoError(t, f.service.Cancel(ctx, reserved.BookingID))

	_, err = f.service.CheckIn(ctx, bookingdomain.CheckInRequest{QRToken: reserved.QRToken})
	require.ErrorIs(t, err, bookingdomain.ErrAlreadyUsed)
}

func TestReserveAndCheckInEndToEnd(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	slotID := f.seedSlot(t, 1, 1, true)

	first, err := f.service.Reserve(ctx, bookingdomain.ReserveRequest{
		UserID: 100, GymID: 1, SlotID: &slotID,
	})
	require.NoError(t, err)

	_, err = f.service.Reserve(ctx, bookingdomain.ReserveRequest{
		UserID: 200, GymID: 1, SlotID: &slotID,
	})
	require.ErrorIs(t, err, bookingdomain.ErrSlotFull)

	checked, err := f.service.CheckIn(ctx, bookingdomain.CheckInRequest{QRToken: first.QRToken})
	require.NoError(t, err)
	require.Equal(t, first.BookingID, checked.BookingID)

	_, err = f.service.CheckIn(ctx, bookingdomain.CheckInRequest{QRToken: first.QRToken})
	require.ErrorIs(t, err, bookingdomain.ErrAlreadyUsed)
}
