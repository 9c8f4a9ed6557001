// Package controllers handles HTTP request handling
package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/scholarsphere/internal/app/models/dto"
	"github.com/yigit/scholarsphere/internal/app/services"
	"github.com/yigit/scholarsphere/internal/middleware"
)

// parseIDParam parses a positive ID from the request path and writes a 400 when it is not one
func parseIDParam(ctx *gin.Context, paramName string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(paramName), 10, 64)
	if err != nil || id <= 0 {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid "+paramName).WithField(paramName)
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return 0, false
	}
	return id, true
}

// currentActor reads the authenticated user set by the JWT middleware
func currentActor(ctx *gin.Context) (services.Actor, bool) {
	id, ok := middleware.CurrentUserID(ctx)
	if !ok {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized,
			dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return services.Actor{}, false
	}
	role, ok := middleware.CurrentRole(ctx)
	if !ok {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized,
			dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return services.Actor{}, false
	}
	return services.Actor{ID: id, Role: role}, true
}

func respondOK(ctx *gin.Context, data interface{}, message string) {
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(data, message))
}

func respondCreated(ctx *gin.Context, data interface{}, message string) {
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(data, message))
}
