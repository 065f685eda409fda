package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	campaigndomain "github.com/gymspot/gymspot/internal/campaign/domain"
	"github.com/gymspot/gymspot/internal/clock"
	"github.com/gymspot/gymspot/internal/events"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	sink  events.Sink
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Sink  events.Sink `optional:"true"`
}

func NewService(p ServiceParam) campaigndomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("campaign.service"),

		genID: p.GenID,
		clock: p.Clock,
		sink:  p.Sink,
	}
}

// Create implements domain.Service.
func (s *Service) Create(ctx context.Context, req campaigndomain.CreateCampaignRequest) (campaigndomain.CreateCampaignResponse, error) {
	if req.Subject == "" {
		return campaigndomain.CreateCampaignResponse{}, campaigndomain.ErrNoContent
	}

	status := campaigndomain.CampaignStatusDraft
	if req.ScheduledAt != nil {
		status = campaigndomain.CampaignStatusScheduled
	}

	now := s.clock.Now()
	id := s.genID.Generate()
	err := s.db.WithContext(ctx).Exec(
		`INSERT INTO newsletter_campaigns (
			id, gym_id, subject, content_html, status, scheduled_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		req.GymID,
		req.Subject,
		req.ContentHTML,
		status,
		req.ScheduledAt,
		now,
		now,
	).Error
	if err != nil {
		return campaigndomain.CreateCampaignResponse{}, err
	}

	return campaigndomain.CreateCampaignResponse{ID: id, Status: status}, nil
}

// AddRecipients implements domain.Service.
func (s *Service) AddRecipients(ctx context.Context, req campaigndomain.AddRecipientsRequest) (int, error) {
	var total int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		campaign, err := s.findCampaign(ctx, tx, req.CampaignID)
		if err != nil {
			return err
		}
		if campaign == nil {
			return campaigndomain.ErrCampaignNotFound
		}
		if campaign.Status == campaigndomain.CampaignStatusSent {
			return campaigndomain.ErrAlreadySent
		}

		if req.Replace {
			if err := tx.WithContext(ctx).Exec(
				`DELETE FROM campaign_recipients WHERE campaign_id = ?`,
				req.CampaignID,
			).Error; err != nil {
				return err
			}
		}

		now := s.clock.Now()
		for _, contactID := range req.ContactIDs {
			if err := tx.WithContext(ctx).Exec(
				`INSERT INTO campaign_recipients (id, campaign_id, contact_id, send_status, created_at)
				 SELECT ?, ?, ?, ?, ?
				 WHERE NOT EXISTS (
					SELECT 1 FROM campaign_recipients WHERE campaign_id = ? AND contact_id = ?
				 )`,
				s.genID.Generate(),
				req.CampaignID,
				contactID,
				campaigndomain.SendStatusQueued,
				now,
				req.CampaignID,
				contactID,
			).Error; err != nil {
				return err
			}
		}

		return tx.WithContext(ctx).Raw(
			`SELECT COUNT(*) FROM campaign_recipients WHERE campaign_id = ?`,
			req.CampaignID,
		).Scan(&total).Error
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// MarkReady implements domain.Service.
func (s *Service) MarkReady(ctx context.Context, id snowflake.ID) (int, error) {
	var queued int
	var gymID snowflake.ID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		campaign, err := s.findCampaign(ctx, tx, id)
		if err != nil {
			return err
		}
		if campaign == nil {
			return campaigndomain.ErrCampaignNotFound
		}
		if campaign.Status == campaigndomain.CampaignStatusSent {
			return campaigndomain.ErrAlreadySent
		}
		gymID = campaign.GymID

		var attached int
		if err := tx.WithContext(ctx).Raw(
			`SELECT COUNT(*) FROM campaign_recipients WHERE campaign_id = ?`,
			id,
		).Scan(&attached).Error; err != nil {
			return err
		}

		// No explicit recipient selection, target the whole list.
		if attached == 0 {
			if err := s.materializeContacts(ctx, tx, campaign); err != nil {
				return err
			}
		}

		if err := tx.WithContext(ctx).Exec(
			`UPDATE newsletter_campaigns SET status = ?, updated_at = ? WHERE id = ?`,
			campaigndomain.CampaignStatusReady,
			s.clock.Now(),
			id,
		).Error; err != nil {
			return err
		}

		return tx.WithContext(ctx).Raw(
			`SELECT COUNT(*) FROM campaign_recipients WHERE campaign_id = ? AND send_status = ?`,
			id,
			campaigndomain.SendStatusQueued,
		).Scan(&queued).Error
	})
	if err != nil {
		return 0, err
	}

	if s.sink != nil {
		s.sink.PublishAsync(events.DomainMemberships, fmt.Sprintf("campaign.ready.%s", gymID), map[string]any{
			"event":       "campaign.ready",
			"campaign_id": id.String(),
			"gym_id":      gymID.String(),
			"queued":      queued,
		}, nil)
	}
	return queued, nil
}

func (s *Service) findCampaign(ctx context.Context, db *gorm.DB, id snowflake.ID) (*campaigndomain.Campaign, error) {
	var campaign campaigndomain.Campaign
	err := db.WithContext(ctx).Raw(
		`SELECT id, gym_id, subject, content_html, status, scheduled_at, sent_at, created_at, updated_at
		 FROM newsletter_campaigns WHERE id = ?`,
		id,
	).Scan(&campaign).Error
	if err != nil {
		return nil, err
	}
	if campaign.ID == 0 {
		return nil, nil
	}
	return &campaign, nil
}

func (s *Service) materializeContacts(ctx context.Context, tx *gorm.DB, campaign *campaigndomain.Campaign) error {
	var contactIDs []snowflake.ID
	if err := tx.WithContext(ctx).Raw(
		`SELECT id FROM marketing_contacts WHERE gym_id = ? AND unsubscribed = ?`,
		campaign.GymID,
		false,
	).Scan(&contactIDs).Error; err != nil {
		return err
	}

	now := s.clock.Now()
	for _, contactID := range contactIDs {
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO campaign_recipients (id, campaign_id, contact_id, send_status, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			s.genID.Generate(),
			campaign.ID,
			contactID,
			campaigndomain.SendStatusQueued,
			now,
		).Error; err != nil {
			return err
		}
	}
	return nil
}
