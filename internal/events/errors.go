package events

import "errors"

var (
	ErrUnknownDomain     = errors.New("unknown_event_domain")
	ErrBrokerUnavailable = errors.New("broker_unavailable")
	ErrPublishNacked     = errors.New("publish_nacked")
	ErrPublisherClosed   = errors.New("publisher_closed")
)
