package dto

import "github.com/yigit/scholarsphere/internal/app/models"

// NotificationListQuery filters a user's notifications
type NotificationListQuery struct {
	UnreadOnly bool `form:"unreadOnly"`
}

// NotificationListResponse is a page of notifications with the unread count
type NotificationListResponse struct {
	Items       []*models.Notification `json:"items"`
	Pagination  PaginationInfo         `json:"pagination"`
	UnreadCount int64                  `json:"unreadCount"`
}

// UnreadCountResponse carries the unread notification count
type UnreadCountResponse struct {
	UnreadCount int64 `json:"unreadCount" example:"3"`
}

// MarkAllReadResponse reports how many notifications changed
type MarkAllReadResponse struct {
	Updated int64 `json:"updated" example:"5"`
}
