package dispatch

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/bwmarrin/snowflake"
	campaigndomain "github.com/gymspot/gymspot/internal/campaign/domain"
	"github.com/gymspot/gymspot/internal/clock"
	"github.com/gymspot/gymspot/internal/config"
	obsmetrics "github.com/gymspot/gymspot/internal/observability/metrics"
	"github.com/gymspot/gymspot/internal/providers/email"
	"github.com/gymspot/gymspot/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("invalid_dispatch_config")

const (
	dispatchLeaseKey = "gymspot:dispatch:lease"
	maxErrorLen      = 490
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Mailer    email.Provider
	Locker    *ratelimit.Locker `optional:"true"`
	Config    Config            `optional:"true"`
	AppConfig config.Config
}

// Worker drains queued campaign recipients one campaign per tick,
// honoring the global rolling-hour send quota.
type Worker struct {
	db      *gorm.DB
	log     *zap.Logger
	cfg     Config
	clock   clock.Clock
	mailer  email.Provider
	locker  *ratelimit.Locker
	metrics *obsmetrics.DispatchMetrics
}

func New(p Params) (*Worker, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.Mailer == nil {
		return nil, ErrInvalidConfig
	}
	return &Worker{
		db:     p.DB,
		log:    p.Log.Named("campaign.dispatch"),
		cfg:    p.Config.withDefaults(),
		clock:  p.Clock,
		mailer: p.Mailer,
		locker: p.Locker,
		metrics: obsmetrics.DispatchWithConfig(obsmetrics.Config{
			ServiceName: p.AppConfig.AppName,
			Environment: p.AppConfig.Environment,
		}),
	}, nil
}

// RunOnce executes a single tick: compute the remaining quota, pick one
// campaign, send up to min(remaining, batch size) recipients.
func (w *Worker) RunOnce(ctx context.Context) error {
	start := time.Now()
	w.metrics.IncTick()
	defer func() {
		w.metrics.ObserveTickDuration(time.Since(start))
	}()

	if w.locker != nil {
		token, acquired, err := w.locker.TryLock(ctx, dispatchLeaseKey, w.cfg.LeaseTTL)
		if err != nil {
			w.log.Warn("dispatch lease unavailable, proceeding without it", zap.Error(err))
		} else if !acquired {
			return nil
		} else {
			defer func() {
				_ = w.locker.Release(ctx, dispatchLeaseKey, token)
			}()
		}
	}

	used, err := w.sentInLastHour(ctx)
	if err != nil {
		return err
	}
	remaining := w.cfg.QuotaPerHour - used
	if remaining <= 0 {
		w.metrics.IncQuotaSkip()
		return nil
	}

	campaignID, err := w.pickCampaign(ctx)
	if err != nil {
		return err
	}
	if campaignID == 0 {
		return nil
	}

	take := remaining
	if take > w.cfg.BatchSize {
		take = w.cfg.BatchSize
	}
	return w.sendBatch(ctx, campaignID, take)
}

// RunForever ticks until the context is cancelled. Ticks never overlap;
// an overrunning tick just delays the next one.
func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.TickInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("dispatch tick failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// sentInLastHour counts sends in the trailing 60 minutes across all
// campaigns.
func (w *Worker) sentInLastHour(ctx context.Context) (int, error) {
	var count int
	err := w.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM campaign_recipients
		 WHERE send_status = ? AND send_at > ?`,
		campaigndomain.SendStatusSent,
		w.clock.Now().Add(-time.Hour),
	).Scan(&count).Error
	return count, err
}

// pickCampaign selects one campaign to work on: ready first, then
// scheduled campaigns whose time has come, then campaigns already
// mid-send, oldest first within each tier.
func (w *Worker) pickCampaign(ctx context.Context) (snowflake.ID, error) {
	var id snowflake.ID

	err := w.db.WithContext(ctx).Raw(
		`SELECT id FROM newsletter_campaigns WHERE status = ? ORDER BY id ASC LIMIT 1`,
		campaigndomain.CampaignStatusReady,
	).Scan(&id).Error
	if err != nil || id != 0 {
		return id, err
	}

	err = w.db.WithContext(ctx).Raw(
		`SELECT id FROM newsletter_campaigns
		 WHERE status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?
		 ORDER BY scheduled_at ASC LIMIT 1`,
		campaigndomain.CampaignStatusScheduled,
		w.clock.Now(),
	).Scan(&id).Error
	if err != nil || id != 0 {
		return id, err
	}

	err = w.db.WithContext(ctx).Raw(
		`SELECT id FROM newsletter_campaigns WHERE status = ? ORDER BY updated_at ASC LIMIT 1`,
		campaigndomain.CampaignStatusSending,
	).Scan(&id).Error
	return id, err
}

type batchRecipient struct {
	ContactID snowflake.ID
	Email     string
}

func (w *Worker) sendBatch(ctx context.Context, campaignID snowflake.ID, quota int) error {
	var campaign campaigndomain.Campaign
	err := w.db.WithContext(ctx).Raw(
		`SELECT id, gym_id, subject, content_html, status, scheduled_at, sent_at, created_at, updated_at
		 FROM newsletter_campaigns WHERE id = ?`,
		campaignID,
	).Scan(&campaign).Error
	if err != nil {
		return err
	}
	if campaign.ID == 0 {
		return nil
	}

	var recipients []batchRecipient
	err = w.db.WithContext(ctx).Raw(
		`SELECT cr.contact_id, mc.email
		 FROM campaign_recipients cr
		 JOIN marketing_contacts mc ON mc.id = cr.contact_id
		 WHERE cr.campaign_id = ? AND cr.send_status = ?
		 ORDER BY cr.id ASC
		 LIMIT ?`,
		campaignID,
		campaigndomain.SendStatusQueued,
		quota,
	).Scan(&recipients).Error
	if err != nil {
		return err
	}

	if len(recipients) == 0 {
		return w.finalize(ctx, campaignID, campaign.Status)
	}

	if campaign.Status != campaigndomain.CampaignStatusSending {
		if err := w.db.WithContext(ctx).Exec(
			`UPDATE newsletter_campaigns SET status = ?, updated_at = ? WHERE id = ?`,
			campaigndomain.CampaignStatusSending,
			w.clock.Now(),
			campaignID,
		).Error; err != nil {
			return err
		}
	}

	text := tagPattern.ReplaceAllString(campaign.ContentHTML, "")

	var sent, failed int
	for _, recipient := range recipients {
		if sendErr := w.mailer.Send(ctx, email.Message{
			To:      recipient.Email,
			Subject: campaign.Subject,
			HTML:    campaign.ContentHTML,
			Text:    text,
		}); sendErr != nil {
			failed++
			w.metrics.IncSend(obsmetrics.SendOutcomeFailed)
			if err := w.markFailed(ctx, campaignID, recipient.ContactID, sendErr); err != nil {
				w.log.Warn("mark recipient failed", zap.Error(err))
			}
			continue
		}

		sent++
		w.metrics.IncSend(obsmetrics.SendOutcomeSent)
		if err := w.markSent(ctx, campaignID, recipient.ContactID); err != nil {
			w.log.Warn("mark recipient sent", zap.Error(err))
		}
	}

	w.log.Info("campaign batch processed",
		zap.String("campaign_id", campaignID.String()),
		zap.Int("sent", sent),
		zap.Int("failed", failed),
	)

	return w.finalize(ctx, campaignID, campaigndomain.CampaignStatusSending)
}

func (w *Worker) markSent(ctx context.Context, campaignID, contactID snowflake.ID) error {
	return w.db.WithContext(ctx).Exec(
		`UPDATE campaign_recipients
		 SET send_status = ?, send_at = ?, last_error = NULL
		 WHERE campaign_id = ? AND contact_id = ?`,
		campaigndomain.SendStatusSent,
		w.clock.Now(),
		campaignID,
		contactID,
	).Error
}

func (w *Worker) markFailed(ctx context.Context, campaignID, contactID snowflake.ID, sendErr error) error {
	return w.db.WithContext(ctx).Exec(
		`UPDATE campaign_recipients
		 SET send_status = ?, last_error = ?
		 WHERE campaign_id = ? AND contact_id = ?`,
		campaigndomain.SendStatusFailed,
		truncateError(sendErr),
		campaignID,
		contactID,
	).Error
}

// finalize flips the campaign to its terminal sent state once no queued
// recipients remain, otherwise leaves it sending for the next tick.
func (w *Worker) finalize(ctx context.Context, campaignID snowflake.ID, status campaigndomain.CampaignStatus) error {
	var queued int
	err := w.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM campaign_recipients WHERE campaign_id = ? AND send_status = ?`,
		campaignID,
		campaigndomain.SendStatusQueued,
	).Scan(&queued).Error
	if err != nil {
		return err
	}

	if queued > 0 {
		return w.db.WithContext(ctx).Exec(
			`UPDATE newsletter_campaigns SET updated_at = ? WHERE id = ?`,
			w.clock.Now(),
			campaignID,
		).Error
	}

	if status == campaigndomain.CampaignStatusSent {
		return nil
	}

	result := w.db.WithContext(ctx).Exec(
		`UPDATE newsletter_campaigns
		 SET status = ?, sent_at = ?, updated_at = ?
		 WHERE id = ? AND status <> ?`,
		campaigndomain.CampaignStatusSent,
		w.clock.Now(),
		w.clock.Now(),
		campaignID,
		campaigndomain.CampaignStatusSent,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		w.metrics.IncCampaignCompleted()
	}
	return nil
}

func truncateError(err error) string {
	msg := err.Error()
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	return msg
}
