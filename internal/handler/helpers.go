package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-portal/internal/middleware"
	"github.com/noah-isme/academy-portal/internal/models"
	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
	"github.com/noah-isme/academy-portal/pkg/response"
)

func bindError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
}

func queryError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters")
}

// respondList writes a page with the cache flag in meta.
func respondList(c *gin.Context, items interface{}, pagination *models.Pagination, cacheHit bool) {
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, items, pagination, middleware.ExtractMeta(c))
}
