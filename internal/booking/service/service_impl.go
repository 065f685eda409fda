package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/gymspot/gymspot/internal/booking/domain"
	"github.com/gymspot/gymspot/internal/clock"
	"github.com/gymspot/gymspot/internal/events"
	subscriptiondomain "github.com/gymspot/gymspot/internal/subscription/domain"
	"github.com/gymspot/gymspot/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	qrTokenTTL    = 120 * time.Minute
	checkinSource = "qr"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID         *snowflake.Node
	clock         clock.Clock
	repo          bookingdomain.Repository
	subscriptions subscriptiondomain.Repository
	sink          events.Sink

	mintToken func() (string, string, error)
}

type ServiceParam struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          bookingdomain.Repository
	Subscriptions subscriptiondomain.Repository
	Sink          events.Sink `optional:"true"`
}

func NewService(p ServiceParam) bookingdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("booking.service"),

		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		subscriptions: p.Subscriptions,
		sink:          p.Sink,

		mintToken: bookingdomain.NewToken,
	}
}

// Reserve implements domain.Service. The slot decrement is a conditional
// update, zero rows affected means the slot filled concurrently.
func (s *Service) Reserve(ctx context.Context, req bookingdomain.ReserveRequest) (bookingdomain.ReserveResponse, error) {
	resp, err := s.reserve(ctx, req)
	if err != nil && db.IsDuplicateKeyErr(err) {
		// The token hash carries a unique index, so a duplicate key
		// means the minted token already exists. The failed insert
		// aborted the transaction, so rerun the whole reservation with
		// a fresh token.
		resp, err = s.reserve(ctx, req)
	}
	return resp, err
}

func (s *Service) reserve(ctx context.Context, req bookingdomain.ReserveRequest) (bookingdomain.ReserveResponse, error) {
	token, tokenHash, err := s.mintToken()
	if err != nil {
		return bookingdomain.ReserveResponse{}, fmt.Errorf("generate token: %w", err)
	}

	now := s.clock.Now()
	booking := &bookingdomain.Booking{
		ID:             s.genID.Generate(),
		UserID:         req.UserID,
		GymID:          req.GymID,
		SubscriptionID: req.SubscriptionID,
		SlotID:         req.SlotID,
		Status:         bookingdomain.BookingStatusConfirmed,
		QRTokenHash:    tokenHash,
		QRExpiresAt:    now.Add(qrTokenTTL),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.SubscriptionID != nil {
			subscription, err := s.subscriptions.FindActiveForMember(ctx, tx, *req.SubscriptionID, req.UserID, req.GymID)
			if err != nil {
				return err
			}
			if subscription == nil {
				return subscriptiondomain.ErrSubscriptionInactive
			}
			// Entries are checked here but consumed at check-in.
			if subscription.EntriesRemaining != nil && *subscription.EntriesRemaining <= 0 {
				return subscriptiondomain.ErrEntriesExhausted
			}
		}

		if req.SlotID != nil {
			slot, err := s.repo.FindSlot(ctx, tx, *req.SlotID)
			if err != nil {
				return err
			}
			if slot == nil || !slot.IsActive {
				return bookingdomain.ErrSlotNotFound
			}
			claimed, err := s.repo.ClaimSlot(ctx, tx, *req.SlotID)
			if err != nil {
				return err
			}
			if !claimed {
				return bookingdomain.ErrSlotFull
			}
		}

		return s.repo.Insert(ctx, tx, booking)
	})
	if err != nil {
		return bookingdomain.ReserveResponse{}, err
	}

	s.publishAsync("booking.created", booking)

	return bookingdomain.ReserveResponse{
		BookingID:   booking.ID,
		QRToken:     token,
		QRExpiresAt: booking.QRExpiresAt,
	}, nil
}

// CheckIn implements domain.Service. The booking row is locked before
// its subscription row to keep the lock order consistent across all
// mutating paths.
func (s *Service) CheckIn(ctx context.Context, req bookingdomain.CheckInRequest) (bookingdomain.CheckInResponse, error) {
	tokenHash := bookingdomain.HashToken(req.QRToken)

	var booking *bookingdomain.Booking
	var checkedInAt time.Time

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.FindByTokenHashForUpdate(ctx, tx, tokenHash)
		if err != nil {
			return err
		}
		if found == nil {
			return bookingdomain.ErrInvalidToken
		}

		now := s.clock.Now()
		if now.After(found.QRExpiresAt) {
			return bookingdomain.ErrTokenExpired
		}
		if found.Status != bookingdomain.BookingStatusConfirmed {
			return bookingdomain.ErrAlreadyUsed
		}

		flipped, err := s.repo.MarkCheckedIn(ctx, tx, found.ID, now)
		if err != nil {
			return err
		}
		if !flipped {
			return bookingdomain.ErrAlreadyUsed
		}

		if found.SubscriptionID != nil {
			subscription, err := s.subscriptions.FindByIDForUpdate(ctx, tx, *found.SubscriptionID)
			if err != nil {
				return err
			}
			if subscription != nil && subscription.EntriesRemaining != nil {
				consumed, err := s.subscriptions.DecrementEntries(ctx, tx, subscription.ID)
				if err != nil {
					return err
				}
				if !consumed {
					return subscriptiondomain.ErrEntriesExhausted
				}
			}
		}

		if err := s.repo.InsertCheckin(ctx, tx, &bookingdomain.Checkin{
			ID:               s.genID.Generate(),
			BookingID:        found.ID,
			SubscriptionID:   found.SubscriptionID,
			VerifierDeviceID: req.VerifierDeviceID,
			Source:           checkinSource,
			UsedAt:           now,
		}); err != nil {
			return err
		}

		booking = found
		checkedInAt = now
		return nil
	})
	if err != nil {
		return bookingdomain.CheckInResponse{}, err
	}

	s.publishAsync("checkin.recorded", booking)

	return bookingdomain.CheckInResponse{
		BookingID:   booking.ID,
		CheckedInAt: checkedInAt,
	}, nil
}

// Cancel implements domain.Service. Cancelling an already cancelled
// booking is a no-op.
func (s *Service) Cancel(ctx context.Context, bookingID snowflake.ID) error {
	var booking *bookingdomain.Booking

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if found == nil {
			return bookingdomain.ErrBookingNotFound
		}
		if found.Status == bookingdomain.BookingStatusCancelled {
			return nil
		}
		if found.Status == bookingdomain.BookingStatusCheckedIn {
			return bookingdomain.ErrAlreadyUsed
		}

		cancelled, err := s.repo.MarkCancelled(ctx, tx, found.ID)
		if err != nil {
			return err
		}
		if !cancelled {
			return bookingdomain.ErrAlreadyUsed
		}

		if found.SlotID != nil {
			if err := s.repo.ReleaseSlot(ctx, tx, *found.SlotID); err != nil {
				return err
			}
		}

		booking = found
		return nil
	})
	if err != nil {
		return err
	}

	if booking != nil {
		s.publishAsync("booking.cancelled", booking)
	}
	return nil
}

func (s *Service) publishAsync(event string, booking *bookingdomain.Booking) {
	if s.sink == nil || booking == nil {
		return
	}
	routingKey := fmt.Sprintf("%s.%s", event, booking.GymID)
	s.sink.PublishAsync(events.DomainMemberships, routingKey, map[string]any{
		"event":      event,
		"booking_id": booking.ID.String(),
		"user_id":    booking.UserID.String(),
		"gym_id":     booking.GymID.String(),
		"ts":         s.clock.Now().Format(time.RFC3339),
	}, nil)
}
