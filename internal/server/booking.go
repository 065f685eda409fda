package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	bookingdomain "github.com/gymspot/gymspot/internal/booking/domain"
)

func (s *Server) CreateBooking(c *gin.Context) {
	var req bookingdomain.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.bookingSvc.Reserve(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelBooking(c *gin.Context) {
	bookingID, err := parseIDParam(c, "bookingId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.bookingSvc.Cancel(c.Request.Context(), bookingID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"booking_id": bookingID.String(), "status": "cancelled"}})
}

func (s *Server) VerifyCheckIn(c *gin.Context) {
	var req bookingdomain.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.bookingSvc.CheckIn(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
