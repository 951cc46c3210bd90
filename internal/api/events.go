package api

import (
	"github.com/labstack/echo/v4"

	"github.com/guaxindiba/firenotify/internal/ingest"
)

// eventResponse is the JSON body of every ingestion response. Status repeats
// the HTTP status code so clients behind transports that flatten status codes
// (the hosted-script deployment this system replaced) can still read it.
type eventResponse struct {
	Success          bool   `json:"success"`
	Status           int    `json:"status"`
	Duplicate        bool   `json:"duplicate,omitempty"`
	Message          string `json:"message,omitempty"`
	Error            string `json:"error,omitempty"`
	RegionID         string `json:"regionId,omitempty"`
	Row              int    `json:"row,omitempty"`
	ResponsibleEmail string `json:"responsibleEmail,omitempty"`
	MapsLink         string `json:"mapsLink,omitempty"`
}

// IngestEvent handles the GET ingestion endpoint. Query params: regionId,
// timestamp (dd/mm/yyyy HH:MM[:SS]), lat, lng — all required.
func (c *Controller) IngestEvent(ctx echo.Context) error {
	req := ingest.Request{
		RegionID:  ctx.QueryParam("regionId"),
		Timestamp: ctx.QueryParam("timestamp"),
		Lat:       ctx.QueryParam("lat"),
		Lng:       ctx.QueryParam("lng"),
	}

	result := c.orchestrator.Handle(ctx.Request().Context(), req)

	resp := eventResponse{
		Success:          result.Outcome == ingest.OutcomeSuccess || result.Outcome == ingest.OutcomeDuplicateSkipped,
		Status:           result.Status,
		Duplicate:        result.Duplicate,
		Message:          result.Message,
		Error:            result.Error,
		RegionID:         result.RegionID,
		ResponsibleEmail: result.ResponsibleEmail,
		MapsLink:         result.MapsLink,
	}
	if result.Row >= 0 {
		resp.Row = result.Row
	}

	return ctx.JSON(result.Status, resp)
}
