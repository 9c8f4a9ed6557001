package controllers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/yigit/scholarsphere/internal/app/models/dto"
	"github.com/yigit/scholarsphere/internal/middleware"
	"github.com/yigit/scholarsphere/internal/pkg/helpers"
)

// NotificationService is what NotificationController needs from the notification service
type NotificationService interface {
	ListForUser(ctx context.Context, userID int64, unreadOnly bool, page, size int) (*dto.NotificationListResponse, error)
	MarkRead(ctx context.Context, notificationID, userID int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
}

// NotificationController serves the in-app notification inbox
type NotificationController struct {
	notificationService NotificationService
}

// NewNotificationController creates a new NotificationController
func NewNotificationController(notificationService NotificationService) *NotificationController {
	return &NotificationController{notificationService: notificationService}
}

// ListNotifications godoc
// @Summary List my notifications
// @Tags notifications
// @Produce json
// @Param unreadOnly query bool false "Only unread notifications"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10)"
// @Success 200 {object} dto.APIResponse{data=dto.NotificationListResponse} "Notifications"
// @Security BearerAuth
// @Router /notifications [get]
func (c *NotificationController) ListNotifications(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var q dto.NotificationListQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		middleware.BindError(ctx, err)
		return
	}
	page, size := helpers.ParsePaginationParams(ctx)
	resp, err := c.notificationService.ListForUser(ctx.Request.Context(), actor.ID, q.UnreadOnly, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, resp, "")
}

// UnreadCount godoc
// @Summary Unread notification count
// @Tags notifications
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.UnreadCountResponse} "Count"
// @Security BearerAuth
// @Router /notifications/unread-count [get]
func (c *NotificationController) UnreadCount(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	count, err := c.notificationService.UnreadCount(ctx.Request.Context(), actor.ID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, dto.UnreadCountResponse{UnreadCount: count}, "")
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags notifications
// @Produce json
// @Param id path int true "Notification ID"
// @Success 200 {object} dto.APIResponse "Marked as read"
// @Failure 404 {object} dto.ErrorResponse "Notification not found"
// @Security BearerAuth
// @Router /notifications/{id}/read [post]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.notificationService.MarkRead(ctx.Request.Context(), id, actor.ID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, nil, "Notification marked as read")
}

// MarkAllRead godoc
// @Summary Mark all notifications as read
// @Tags notifications
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.MarkAllReadResponse} "Updated count"
// @Security BearerAuth
// @Router /notifications/read-all [post]
func (c *NotificationController) MarkAllRead(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	n, err := c.notificationService.MarkAllRead(ctx.Request.Context(), actor.ID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, dto.MarkAllReadResponse{Updated: n}, "All notifications marked as read")
}
