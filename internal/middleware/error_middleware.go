package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/hverma/enrollhub/internal/app/models/dto"
	"github.com/hverma/enrollhub/internal/pkg/apperrors"
)

// HandleAPIError maps the application error taxonomy to HTTP responses.
// Controllers call it for any service error instead of mapping statuses
// themselves.
func HandleAPIError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrValidationFailed), errors.Is(err, apperrors.ErrBadRequest):
		c.JSON(400, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeValidationFailed, err.Error())))

	case errors.Is(err, apperrors.ErrStudentNotFound):
		c.JSON(404, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Student not found")))

	case errors.Is(err, apperrors.ErrCategoryNotFound):
		c.JSON(404, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Category not found")))

	case errors.Is(err, apperrors.ErrResourceNotFound):
		c.JSON(404, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, err.Error())))

	case errors.Is(err, apperrors.ErrEmailAlreadyExists):
		c.JSON(409, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeConflict, "Email already registered")))

	case errors.Is(err, apperrors.ErrRollNumberExists):
		c.JSON(409, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeConflict, "Roll number already assigned")))

	case errors.Is(err, apperrors.ErrSessionActive):
		c.JSON(409, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeSessionActive, "User is already logged in")))

	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(409, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeConflict, err.Error())))

	case errors.Is(err, apperrors.ErrAudienceMismatch):
		c.JSON(401, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeAudienceMismatch, "Token audience mismatch")))

	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(401, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Unauthorized")))

	case errors.Is(err, apperrors.ErrUpstream):
		c.JSON(502, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUpstreamError, "Identity provider request failed")))

	case errors.Is(err, apperrors.ErrStorageFailure):
		c.JSON(500, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeStorageFailure, "Attachment storage failure")))

	default:
		c.JSON(500, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")))
	}
}
