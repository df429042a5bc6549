package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/njvoter/gateway/pkg/models"
)

// createCampaignHandler handles POST /api/v1/campaigns (§4.I step 1).
func (s *Server) createCampaignHandler(c *echo.Context) error {
	var req CreateCampaignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	campaign, err := s.campaigns.Create(c.Request().Context(), models.CreateCampaignRequest{
		OwnerUserID: extractAuthor(c),
		ListID:      req.ListID,
		SessionID:   req.SessionID,
		Subject:     req.Subject,
		DocumentRef: req.DocumentRef,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, &models.CampaignResponse{Campaign: campaign})
}

// listCampaignsHandler handles GET /api/v1/campaigns.
func (s *Server) listCampaignsHandler(c *echo.Context) error {
	campaigns, err := s.campaigns.List(c.Request().Context(), extractAuthor(c))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, &models.CampaignListResponse{Campaigns: campaigns})
}

// getCampaignHandler handles GET /api/v1/campaigns/:id.
func (s *Server) getCampaignHandler(c *echo.Context) error {
	campaign, err := s.campaigns.Get(c.Request().Context(), c.Param("id"), extractAuthor(c))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, &models.CampaignResponse{Campaign: campaign})
}

// sendCampaignHandler handles POST /api/v1/campaigns/:id/send (§4.I steps 3-5).
func (s *Server) sendCampaignHandler(c *echo.Context) error {
	campaign, err := s.campaigns.Send(c.Request().Context(), c.Param("id"), extractAuthor(c))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, &models.CampaignResponse{Campaign: campaign})
}

// campaignStatsHandler handles GET /api/v1/campaigns/:id/stats: the
// campaign's own aggregate stat fields, already maintained incrementally
// by the webhook handler.
func (s *Server) campaignStatsHandler(c *echo.Context) error {
	campaign, err := s.campaigns.Get(c.Request().Context(), c.Param("id"), extractAuthor(c))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, &models.CampaignResponse{Campaign: campaign})
}

// emailWebhookHandler handles POST /api/v1/webhooks/email (§4.I step 6,
// §6). Always replies 200 so the provider doesn't retry the whole batch
// over one bad event; per-event failures are reported in the body only.
func (s *Server) emailWebhookHandler(c *echo.Context) error {
	var req EmailWebhookRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusOK, &WebhookResponse{Failed: 0, Accepted: 0})
	}

	accepted, failed := 0, 0
	for _, evt := range req.Events {
		err := s.campaigns.RecordWebhookEvent(c.Request().Context(), models.RecordCampaignEventRequest{
			CampaignID:      evt.CampaignID,
			PersonID:        evt.PersonID,
			EventType:       evt.EventType,
			ProviderEventID: evt.ProviderEventID,
			RawPayload:      evt.Raw,
		})
		if err != nil {
			failed++
			continue
		}
		accepted++
	}

	return c.JSON(http.StatusOK, &WebhookResponse{Accepted: accepted, Failed: failed})
}
