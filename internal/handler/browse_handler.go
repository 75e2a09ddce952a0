package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-portal/internal/dto"
	"github.com/noah-isme/academy-portal/pkg/pubsub"
	"github.com/noah-isme/academy-portal/pkg/response"
)

type browseService interface {
	Create(ctx context.Context, req dto.CreateBrowseSessionRequest) (*dto.BrowseView, error)
	Type(ctx context.Context, id, raw string, flush bool) (*dto.BrowseView, error)
	SetFilter(ctx context.Context, id, dimension, value string) (*dto.BrowseView, error)
	SetPage(ctx context.Context, id string, page int) (*dto.BrowseView, error)
	Refresh(ctx context.Context, id string) (*dto.BrowseView, error)
	View(ctx context.Context, id string) (*dto.BrowseView, error)
	Events(ctx context.Context, id string) (<-chan pubsub.Event[dto.BrowseView], error)
	Close(ctx context.Context, id string) error
}

// BrowseHandler exposes mounted list views over HTTP.
type BrowseHandler struct {
	sessions browseService
}

// NewBrowseHandler constructs BrowseHandler.
func NewBrowseHandler(sessions browseService) *BrowseHandler {
	return &BrowseHandler{sessions: sessions}
}

// Create godoc
// @Summary Mount a list view
// @Tags Browse
// @Accept json
// @Produce json
// @Param payload body dto.CreateBrowseSessionRequest true "Kind and initial state"
// @Success 201 {object} response.Envelope
// @Router /browse/sessions [post]
func (h *BrowseHandler) Create(c *gin.Context) {
	var req dto.CreateBrowseSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	view, err := h.sessions.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Location", c.FullPath()+"/"+view.ID)
	response.Created(c, view)
}

// View godoc
// @Summary Current state of a list view
// @Tags Browse
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /browse/sessions/{id} [get]
func (h *BrowseHandler) View(c *gin.Context) {
	h.respond(c)(h.sessions.View(c.Request.Context(), c.Param("id")))
}

// Search godoc
// @Summary Feed a search keystroke
// @Tags Browse
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.BrowseSearchRequest true "Raw search text"
// @Success 200 {object} response.Envelope
// @Router /browse/sessions/{id}/search [put]
func (h *BrowseHandler) Search(c *gin.Context) {
	var req dto.BrowseSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	h.respond(c)(h.sessions.Type(c.Request.Context(), c.Param("id"), req.Value, req.Flush))
}

// Filter godoc
// @Summary Change one filter
// @Tags Browse
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param dimension path string true "Filter name"
// @Param payload body dto.BrowseFilterRequest true "Value or all"
// @Success 200 {object} response.Envelope
// @Router /browse/sessions/{id}/filters/{dimension} [put]
func (h *BrowseHandler) Filter(c *gin.Context) {
	var req dto.BrowseFilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	h.respond(c)(h.sessions.SetFilter(c.Request.Context(), c.Param("id"), c.Param("dimension"), req.Value))
}

// Page godoc
// @Summary Move to a page
// @Tags Browse
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.BrowsePageRequest true "Page"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /browse/sessions/{id}/page [put]
func (h *BrowseHandler) Page(c *gin.Context) {
	var req dto.BrowsePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	h.respond(c)(h.sessions.SetPage(c.Request.Context(), c.Param("id"), req.Page))
}

// Refresh godoc
// @Summary Refetch the current page
// @Tags Browse
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /browse/sessions/{id}/refresh [post]
func (h *BrowseHandler) Refresh(c *gin.Context) {
	h.respond(c)(h.sessions.Refresh(c.Request.Context(), c.Param("id")))
}

// Close godoc
// @Summary Unmount a list view
// @Tags Browse
// @Param id path string true "Session ID"
// @Success 204
// @Router /browse/sessions/{id} [delete]
func (h *BrowseHandler) Close(c *gin.Context) {
	if err := h.sessions.Close(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Events godoc
// @Summary Stream committed views
// @Tags Browse
// @Produce text/event-stream
// @Param id path string true "Session ID"
// @Success 200
// @Router /browse/sessions/{id}/events [get]
func (h *BrowseHandler) Events(c *gin.Context) {
	id := c.Param("id")
	view, err := h.sessions.View(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	events, err := h.sessions.Events(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.SSEvent("view", view)
	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent(string(ev.Type), ev.Payload)
		return ev.Type != pubsub.ClosedEvent
	})
}

func (h *BrowseHandler) respond(c *gin.Context) func(*dto.BrowseView, error) {
	return func(view *dto.BrowseView, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, view)
	}
}
