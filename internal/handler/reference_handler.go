package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-portal/internal/dto"
	"github.com/noah-isme/academy-portal/pkg/response"
)

type namedService[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, req dto.NamedRequest) (*T, error)
	Update(ctx context.Context, id string, req dto.NamedRequest) (*T, error)
	Delete(ctx context.Context, id string) error
}

// ReferenceHandler serves a flat reference collection such as levels or subjects.
type ReferenceHandler[T any] struct {
	svc namedService[T]
}

// NewReferenceHandler constructs a ReferenceHandler.
func NewReferenceHandler[T any](svc namedService[T]) *ReferenceHandler[T] {
	return &ReferenceHandler[T]{svc: svc}
}

// List godoc
// @Summary List levels or subjects
// @Tags Reference
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /levels [get]
// @Router /subjects [get]
func (h *ReferenceHandler[T]) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Create godoc
// @Summary Create level or subject
// @Tags Reference
// @Accept json
// @Produce json
// @Param payload body dto.NamedRequest true "Name"
// @Success 201 {object} response.Envelope
// @Router /admin/levels [post]
// @Router /admin/subjects [post]
func (h *ReferenceHandler[T]) Create(c *gin.Context) {
	var req dto.NamedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	item, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Rename level or subject
// @Tags Reference
// @Accept json
// @Produce json
// @Param id path string true "ID"
// @Param payload body dto.NamedRequest true "Name"
// @Success 200 {object} response.Envelope
// @Router /admin/levels/{id} [patch]
// @Router /admin/subjects/{id} [patch]
func (h *ReferenceHandler[T]) Update(c *gin.Context) {
	var req dto.NamedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	item, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Delete godoc
// @Summary Delete level or subject
// @Tags Reference
// @Param id path string true "ID"
// @Success 204
// @Router /admin/levels/{id} [delete]
// @Router /admin/subjects/{id} [delete]
func (h *ReferenceHandler[T]) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
