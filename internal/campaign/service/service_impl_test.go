package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	campaigndomain "github.com/gymspot/gymspot/internal/campaign/domain"
	"github.com/gymspot/gymspot/internal/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	clock   *clock.FakeClock
	genID   *snowflake.Node
	service campaigndomain.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`CREATE TABLE newsletter_campaigns (
			id INTEGER PRIMARY KEY,
			gym_id INTEGER,
			subject TEXT,
			content_html TEXT,
			status TEXT,
			scheduled_at DATETIME,
			sent_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE campaign_recipients (
			id INTEGER PRIMARY KEY,
			campaign_id INTEGER,
			contact_id INTEGER,
			send_status TEXT,
			send_at DATETIME,
			last_error TEXT,
			created_at DATETIME
		)`,
		`CREATE TABLE marketing_contacts (
			id INTEGER PRIMARY KEY,
			gym_id INTEGER,
			email TEXT,
			unsubscribed BOOLEAN DEFAULT 0,
			created_at DATETIME
		)`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
	})

	return &fixture{db: db, clock: fakeClock, genID: node, service: svc}
}

func (f *fixture) seedContact(t *testing.T, gymID snowflake.ID, unsubscribed bool) snowflake.ID {
	t.Helper()
	id := f.genID.Generate()
	require.NoError(t, f.db.Exec(
		`INSERT INTO marketing_contacts (id, gym_id, email, unsubscribed, created_at)
		 VALUES (?, ?, 'member@gymspot.it', ?, ?)`,
		id, gymID, unsubscribed, f.clock.Now(),
	).Error)
	return id
}

func TestCreateDraftCampaign(t *testing.T) {
	f := setup(t)

	resp, err := f.service.Create(context.Background(), campaigndomain.CreateCampaignRequest{
		GymID: 1, Subject: "March deals", ContentHTML: "<p>Hi</p>",
	})
	require.NoError(t, err)
	require.Equal(t, campaigndomain.CampaignStatusDraft, resp.Status)
}

func TestCreateScheduledCampaign(t *testing.T) {
	f := setup(t)
	at := f.clock.Now().Add(time.Hour)

	resp, err := f.service.Create(context.Background(), campaigndomain.CreateCampaignRequest{
		GymID: 1, Subject: "March deals", ScheduledAt: &at,
	})
	require.NoError(t, err)
	require.Equal(t, campaigndomain.CampaignStatusScheduled, resp.Status)
}

func TestCreateRequiresSubject(t *testing.T) {
	f := setup(t)

	_, err := f.service.Create(context.Background(), campaigndomain.CreateCampaignRequest{GymID: 1})
	require.ErrorIs(t, err, campaigndomain.ErrNoContent)
}

func TestAddRecipientsDeduplicates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, campaigndomain.CreateCampaignRequest{GymID: 1, Subject: "s"})
	require.NoError(t, err)
	contactA := f.seedContact(t, 1, false)
	contactB := f.seedContact(t, 1, false)

	total, err := f.service.AddRecipients(ctx, campaigndomain.AddRecipientsRequest{
		CampaignID: created.ID, ContactIDs: []snowflake.ID{contactA, contactB},
	})
	require.NoError(t, err)
	require.Equal(t, 2, total)

	// Re-adding an attached contact is a no-op.
	total, err = f.service.AddRecipients(ctx, campaigndomain.AddRecipientsRequest{
		CampaignID: created.ID, ContactIDs: []snowflake.ID{contactA},
	})
	require.NoError(t, err)
	require.Equal(t, 2, total)
}

func TestAddRecipientsReplace(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, campaigndomain.CreateCampaignRequest{GymID: 1, Subject: "s"})
	require.NoError(t, err)
	contactA := f.seedContact(t, 1, false)
	contactB := f.seedContact(t, 1, false)

	_, err = f.service.AddRecipients(ctx, campaigndomain.AddRecipientsRequest{
		CampaignID: created.ID, ContactIDs: []snowflake.ID{contactA},
	})
	require.NoError(t, err)

	total, err := f.service.AddRecipients(ctx, campaigndomain.AddRecipientsRequest{
		CampaignID: created.ID, ContactIDs: []snowflake.ID{contactB}, Replace: true,
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
}

func TestMarkReadyMaterializesSubscribedContacts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, campaigndomain.CreateCampaignRequest{GymID: 1, Subject: "s"})
	require.NoError(t, err)
	f.seedContact(t, 1, false)
	f.seedContact(t, 1, false)
	f.seedContact(t, 1, true)
	f.seedContact(t, 2, false)

	queued, err := f.service.MarkReady(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, 2, queued)

	var status string
	require.NoError(t, f.db.Raw(
		`SELECT status FROM newsletter_campaigns WHERE id = ?`, created.ID,
	).Scan(&status).Error)
	require.Equal(t, string(campaigndomain.CampaignStatusReady), status)
}

func TestMarkReadyKeepsExplicitSelection(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, campaigndomain.CreateCampaignRequest{GymID: 1, Subject: "s"})
	require.NoError(t, err)
	contactA := f.seedContact(t, 1, false)
	f.seedContact(t, 1, false)

	_, err = f.service.AddRecipients(ctx, campaigndomain.AddRecipientsRequest{
		CampaignID: created.ID, ContactIDs: []snowflake.ID{contactA},
	})
	require.NoError(t, err)

	queued, err := f.service.MarkReady(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, 1, queued)
}

func TestMarkReadySentCampaign(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, campaigndomain.CreateCampaignRequest{GymID: 1, Subject: "s"})
	require.NoError(t, err)
	require.NoError(t, f.db.Exec(
		`UPDATE newsletter_campaigns SET status = 'sent' WHERE id = ?`, created.ID,
	).Error)

	_, err = f.service.MarkReady(ctx, created.ID)
	require.ErrorIs(t, err, campaigndomain.ErrAlreadySent)
}

func TestMarkReadyUnknownCampaign(t *testing.T) {
	f := setup(t)

	_, err := f.service.MarkReady(context.Background(), f.genID.Generate())
	require.ErrorIs(t, err, campaigndomain.ErrCampaignNotFound)
}
