package domain

import "errors"

var (
	ErrCampaignNotFound = errors.New("campaign_not_found")
	ErrAlreadySent      = errors.New("campaign_already_sent")
	ErrNoContent        = errors.New("campaign_content_missing")
)
