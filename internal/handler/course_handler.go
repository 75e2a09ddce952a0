package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-portal/internal/dto"
	"github.com/noah-isme/academy-portal/internal/middleware"
	"github.com/noah-isme/academy-portal/internal/models"
	"github.com/noah-isme/academy-portal/internal/service"
	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
	"github.com/noah-isme/academy-portal/pkg/response"
	"github.com/noah-isme/academy-portal/pkg/upstream"
)

const maxImageBytes = 5 << 20

type courseService interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, bool, error)
	Get(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, req service.CourseRequest) (*models.Course, error)
	Update(ctx context.Context, id string, req service.CourseRequest) (*models.Course, error)
	Delete(ctx context.Context, id string) error
	FormOptions(ctx context.Context) (*dto.CourseFormOptions, error)
}

// CourseHandler exposes the course catalogue and admin course endpoints.
type CourseHandler struct {
	courses courseService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses courseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Param search query string false "Search by title"
// @Param subject query string false "Subject id or all"
// @Param level query string false "Level id or all"
// @Param status query string false "ACTIVE, COMPLETED, NOT_STARTED or all"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	var filter models.CourseFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, queryError(err))
		return
	}
	courses, pagination, hit, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondList(c, courses, pagination, hit)
}

// Get godoc
// @Summary Get course detail
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			// The front-end links back to the catalogue from the not-found page.
			middleware.SetMeta(c, "path", "/courses")
			notFound := appErrors.FromError(err)
			c.JSON(notFound.Status, response.Envelope{Error: notFound, Meta: middleware.ExtractMeta(c)})
			c.Abort()
			return
		}
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Options godoc
// @Summary Course dialog dropdowns
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/courses/options [get]
func (h *CourseHandler) Options(c *gin.Context) {
	opts, err := h.courses.FormOptions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, opts)
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param subjectId formData string true "Subject"
// @Param levelId formData string true "Level"
// @Param status formData string true "Status"
// @Param price formData string true "Price"
// @Param teacherIds formData string false "JSON array of teacher ids"
// @Param image formData file false "Cover image"
// @Success 201 {object} response.Envelope
// @Router /admin/courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	req, err := bindCourseRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	course, err := h.courses.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /admin/courses/{id} [patch]
func (h *CourseHandler) Update(c *gin.Context) {
	req, err := bindCourseRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	course, err := h.courses.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Delete godoc
// @Summary Delete course
// @Tags Courses
// @Param id path string true "Course ID"
// @Success 204
// @Router /admin/courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.courses.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// bindCourseRequest accepts JSON or multipart. In multipart, teacherIds is either a JSON
// array in one field or repeated fields.
func bindCourseRequest(c *gin.Context) (service.CourseRequest, error) {
	var req service.CourseRequest
	if err := c.ShouldBind(&req); err != nil {
		return req, bindError(err)
	}
	if len(req.TeacherIDs) == 1 && strings.HasPrefix(strings.TrimSpace(req.TeacherIDs[0]), "[") {
		var ids []string
		if err := json.Unmarshal([]byte(req.TeacherIDs[0]), &ids); err != nil {
			return req, appErrors.Validation("invalid payload", map[string]string{"teacherIds": "must be a JSON array of ids"})
		}
		req.TeacherIDs = ids
	}
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return req, nil
	}
	header, err := c.FormFile("image")
	if err != nil {
		if err == http.ErrMissingFile {
			return req, nil
		}
		return req, bindError(err)
	}
	if header.Size > maxImageBytes {
		return req, appErrors.Validation("invalid payload", map[string]string{"image": "must be at most 5 MB"})
	}
	file, err := header.Open()
	if err != nil {
		return req, bindError(err)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		return req, bindError(err)
	}
	req.Image = &upstream.File{
		FieldName:   "image",
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	return req, nil
}
