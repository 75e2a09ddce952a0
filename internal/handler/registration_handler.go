package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-portal/internal/dto"
	"github.com/noah-isme/academy-portal/internal/models"
	"github.com/noah-isme/academy-portal/internal/service"
	"github.com/noah-isme/academy-portal/pkg/response"
)

type registrationService interface {
	Validate(form dto.RegistrationForm) dto.ValidationResult
	Submit(ctx context.Context, formID string, form dto.RegistrationForm) (*dto.SubmissionResult, error)
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, *models.Pagination, error)
	Delete(ctx context.Context, id string) error
}

type registrationExporter interface {
	Registrations(ctx context.Context, filter models.RegistrationFilter, format string) (*service.ExportResult, error)
}

// RegistrationHandler serves the public registration form and the admin registration list.
type RegistrationHandler struct {
	registrations registrationService
	exporter      registrationExporter
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registrations registrationService, exporter registrationExporter) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations, exporter: exporter}
}

// Validate godoc
// @Summary Validate a registration form without submitting it
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body dto.RegistrationForm true "Form values"
// @Success 200 {object} response.Envelope
// @Router /registrations/validate [post]
func (h *RegistrationHandler) Validate(c *gin.Context) {
	var form dto.RegistrationForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Error(c, bindError(err))
		return
	}
	response.OK(c, h.registrations.Validate(form))
}

// Submit godoc
// @Summary Submit a course registration
// @Tags Registrations
// @Accept json
// @Produce json
// @Param X-Form-ID header string false "Identifies the mounted form for the in-flight guard"
// @Param payload body dto.RegistrationForm true "Form values"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Submit(c *gin.Context) {
	var form dto.RegistrationForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Error(c, bindError(err))
		return
	}
	result, err := h.registrations.Submit(c.Request.Context(), c.GetHeader(dto.FormIDHeader), form)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List registrations
// @Tags Registrations
// @Produce json
// @Param search query string false "Search by name or phone"
// @Param course query string false "Course or all"
// @Param level query string false "Level or all"
// @Param status query string false "Status or all"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	var filter models.RegistrationFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, queryError(err))
		return
	}
	items, pagination, err := h.registrations.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Delete godoc
// @Summary Delete registration
// @Tags Registrations
// @Param id path string true "Registration ID"
// @Success 204
// @Router /admin/registrations/{id} [delete]
func (h *RegistrationHandler) Delete(c *gin.Context) {
	if err := h.registrations.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export registrations
// @Tags Registrations
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /admin/registrations/export [get]
func (h *RegistrationHandler) Export(c *gin.Context) {
	var filter models.RegistrationFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, queryError(err))
		return
	}
	result, err := h.exporter.Registrations(c.Request.Context(), filter, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Data)
}
