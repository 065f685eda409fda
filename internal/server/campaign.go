package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	campaigndomain "github.com/gymspot/gymspot/internal/campaign/domain"
)

func (s *Server) CreateCampaign(c *gin.Context) {
	var req campaigndomain.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.campaignSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddCampaignRecipients(c *gin.Context) {
	campaignID, err := parseIDParam(c, "campaignId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var body struct {
		ContactIDs []snowflake.ID `json:"contact_ids" binding:"required,min=1"`
		Replace    bool           `json:"replace"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	total, err := s.campaignSvc.AddRecipients(c.Request.Context(), campaigndomain.AddRecipientsRequest{
		CampaignID: campaignID,
		ContactIDs: body.ContactIDs,
		Replace:    body.Replace,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"campaign_id": campaignID.String(), "recipients": total}})
}

func (s *Server) MarkCampaignReady(c *gin.Context) {
	campaignID, err := parseIDParam(c, "campaignId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	queued, err := s.campaignSvc.MarkReady(c.Request.Context(), campaignID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"campaign_id": campaignID.String(), "status": "ready", "queued": queued}})
}
