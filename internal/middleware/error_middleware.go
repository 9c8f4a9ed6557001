package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/scholarsphere/internal/app/models/dto"
	"github.com/yigit/scholarsphere/internal/app/workflow"
	"github.com/yigit/scholarsphere/internal/pkg/apperrors"
	"github.com/yigit/scholarsphere/internal/pkg/filestorage"
	"github.com/yigit/scholarsphere/internal/pkg/logger"
)

type errorMapping struct {
	target  error
	status  int
	code    dto.ErrorCode
	message string
}

// Checked in order; the first match wins. Messages carried by a CustomError override these.
var errorMappings = []errorMapping{
	// Workflow
	{workflow.ErrNoSlotsAvailable, http.StatusConflict, dto.ErrorCodeNoSlots, "No more slots available for this scholarship"},
	{workflow.ErrTerminal, http.StatusConflict, dto.ErrorCodeFinalDecision, "Application already has a final decision"},
	{workflow.ErrLocked, http.StatusConflict, dto.ErrorCodeReviewLocked, "Application has already been reviewed by OSAS and is awaiting a final decision"},
	{workflow.ErrActorNotAllowed, http.StatusForbidden, dto.ErrorCodeForbidden, "You are not allowed to perform this review action"},
	{workflow.ErrInvalidTransition, http.StatusConflict, dto.ErrorCodeInvalidTransition, "This action is not allowed in the application's current status"},
	{workflow.ErrUnknownAction, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Unknown review action"},
	{apperrors.ErrConcurrentUpdate, http.StatusConflict, dto.ErrorCodeConflict, "Application was changed by another reviewer, reload and try again"},

	// Resources
	{apperrors.ErrScholarshipNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Scholarship not found"},
	{apperrors.ErrApplicationNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Application not found"},
	{apperrors.ErrDocumentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Document not found"},
	{apperrors.ErrRequirementNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Requirement not found"},
	{apperrors.ErrNotificationNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Notification not found"},
	{apperrors.ErrUserNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "User not found"},
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},

	// Scholarship and application rules
	{apperrors.ErrScholarshipInactive, http.StatusBadRequest, dto.ErrorCodeResourceInvalid, "Scholarship is not accepting applications"},
	{apperrors.ErrScholarshipClosed, http.StatusBadRequest, dto.ErrorCodeResourceInvalid, "Application deadline has passed"},
	{apperrors.ErrScholarshipLockedFields, http.StatusConflict, dto.ErrorCodeConflict, "Award amount, slots and deadline cannot change once applications exist"},
	{apperrors.ErrScholarshipHasApps, http.StatusConflict, dto.ErrorCodeConflict, "Scholarship has applications and cannot be deleted"},
	{apperrors.ErrAlreadyApplied, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "You have already applied for this scholarship"},
	{apperrors.ErrApplicationNotEditable, http.StatusConflict, dto.ErrorCodeInvalidTransition, "Application can no longer be edited"},
	{apperrors.ErrMissingDocument, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Required document missing"},
	{apperrors.ErrStudentProfileIncomplete, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Complete your student profile before applying"},

	// Uploads
	{filestorage.ErrFileTooLarge, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "File too large"},
	{filestorage.ErrExtensionRejected, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "File type is not allowed"},
	{filestorage.ErrContentMismatch, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "File content does not match its extension"},
	{filestorage.ErrEmptyFile, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "File is empty"},
	{apperrors.ErrFileTooLarge, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "File too large"},
	{apperrors.ErrInvalidFile, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Invalid file"},

	// Auth
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid email or password"},
	{apperrors.ErrAccountDisabled, http.StatusForbidden, dto.ErrorCodeForbidden, "Account is disabled"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrTokenNotFound, http.StatusUnauthorized, dto.ErrorCodeTokenNotFound, "Token not found"},
	{apperrors.ErrTokenRevoked, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Token revoked"},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},
	{apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Email already exists"},
	{apperrors.ErrStudentNumberExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Student number already exists"},

	// Generic
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrInvalidPassword, http.StatusBadRequest, dto.ErrorCodeInvalidPassword, "Password must be at least 8 characters and contain a letter and a digit"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Bad request"},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeConflict, "Conflict"},
}

// HandleAPIError maps err to an HTTP status and error envelope
func HandleAPIError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}

		detail := dto.NewErrorDetail(m.code, apperrors.MessageOf(err, m.message))
		var ce *apperrors.CustomError
		if errors.As(err, &ce) && ce.Details != nil {
			if field, ok := ce.Details["field"].(string); ok {
				detail = detail.WithField(field)
			}
			detail = detail.WithDetails(ce.Details)
		}
		if m.status >= http.StatusInternalServerError {
			detail = detail.WithSeverity(dto.ErrorSeverityCritical)
		} else if m.status == http.StatusConflict {
			detail = detail.WithSeverity(dto.ErrorSeverityWarning)
		}

		c.AbortWithStatusJSON(m.status, dto.NewErrorResponse(detail))
		return
	}

	logger.Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled error")
	c.AbortWithStatusJSON(http.StatusInternalServerError,
		dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")))
}

// BindError writes a VAL_001 response for a failed ShouldBind call
func BindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
}
