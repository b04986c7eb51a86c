package ui

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"researchdesk/internal/errors"
)

// statusForCode maps every application error code to an HTTP status.
func statusForCode(code string) int {
	switch code {
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeInvalidTransition, errors.CodeInvalidState:
		return http.StatusConflict
	case errors.CodeConfigInvalid:
		return http.StatusBadRequest
	case errors.CodeProviderTransient:
		return http.StatusBadGateway
	case errors.CodeProviderPermanent:
		return http.StatusBadGateway
	case errors.CodeDeliveryFailed:
		return http.StatusBadGateway
	case errors.CodeDatabaseError, errors.CodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the taxonomy-mapped error response.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	c.JSON(statusForCode(code), gin.H{
		"error": err.Error(),
		"code":  code,
	})
}
