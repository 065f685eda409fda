package server

import (
	"errors"
	"net/http"
	"testing"

	bookingdomain "github.com/gymspot/gymspot/internal/booking/domain"
	campaigndomain "github.com/gymspot/gymspot/internal/campaign/domain"
	"github.com/gymspot/gymspot/internal/events"
	plandomain "github.com/gymspot/gymspot/internal/plan/domain"
	subscriptiondomain "github.com/gymspot/gymspot/internal/subscription/domain"
)

func TestMapErrorStatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{"slot full", bookingdomain.ErrSlotFull, http.StatusConflict, "conflict"},
		{"already used", bookingdomain.ErrAlreadyUsed, http.StatusConflict, "conflict"},
		{"campaign sent", campaigndomain.ErrAlreadySent, http.StatusConflict, "conflict"},
		{"token expired", bookingdomain.ErrTokenExpired, http.StatusGone, "gone"},
		{"entries exhausted", subscriptiondomain.ErrEntriesExhausted, http.StatusPaymentRequired, "payment_required"},
		{"unknown token", bookingdomain.ErrInvalidToken, http.StatusNotFound, "not_found"},
		{"unknown booking", bookingdomain.ErrBookingNotFound, http.StatusNotFound, "not_found"},
		{"unknown slot", bookingdomain.ErrSlotNotFound, http.StatusNotFound, "not_found"},
		{"unknown plan", plandomain.ErrPlanNotFound, http.StatusNotFound, "not_found"},
		{"unknown subscription", subscriptiondomain.ErrSubscriptionNotFound, http.StatusNotFound, "not_found"},
		{"unknown campaign", campaigndomain.ErrCampaignNotFound, http.StatusNotFound, "not_found"},
		{"inactive subscription", subscriptiondomain.ErrSubscriptionInactive, http.StatusBadRequest, "validation_error"},
		{"missing end date", subscriptiondomain.ErrNoEndDate, http.StatusBadRequest, "validation_error"},
		{"missing content", campaigndomain.ErrNoContent, http.StatusBadRequest, "validation_error"},
		{"invalid plan", plandomain.ErrInvalidPlan, http.StatusBadRequest, "validation_error"},
		{"broker down", events.ErrBrokerUnavailable, http.StatusBadGateway, "bad_gateway"},
		{"publish nacked", events.ErrPublishNacked, http.StatusBadGateway, "bad_gateway"},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			if status != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, status)
			}
			if payload.Type != tc.typ {
				t.Fatalf("expected type %q, got %q", tc.typ, payload.Type)
			}
		})
	}
}

func TestMapErrorValidationErrorsCarryFields(t *testing.T) {
	status, payload := mapError(newValidationError("days", "invalid_days", "invalid days"))
	if status != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", status)
	}
	if len(payload.Errors) != 1 || payload.Errors[0].Field != "days" {
		t.Fatalf("expected field error for days, got %+v", payload.Errors)
	}
}
