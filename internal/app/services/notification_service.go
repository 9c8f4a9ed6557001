package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/scholarsphere/internal/app/models"
	"github.com/yigit/scholarsphere/internal/app/models/dto"
	"github.com/yigit/scholarsphere/internal/pkg/email"
	"github.com/yigit/scholarsphere/internal/pkg/helpers"
	"github.com/yigit/scholarsphere/internal/pkg/websocket"
)

// NotificationService stores notifications and fans them out to push and e-mail
type NotificationService struct {
	notifications NotificationStore
	users         UserDirectory
	scholarships  ScholarshipStore
	pusher        Pusher
	mailer        email.Mailer
	baseURL       string
	logger        zerolog.Logger
	now           func() time.Time
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	notifications NotificationStore,
	users UserDirectory,
	scholarships ScholarshipStore,
	pusher Pusher,
	mailer email.Mailer,
	baseURL string,
	logger zerolog.Logger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		scholarships:  scholarships,
		pusher:        pusher,
		mailer:        mailer,
		baseURL:       baseURL,
		logger:        logger,
		now:           time.Now,
	}
}

// Notify persists n, pushes it to the recipient's open connections and sends the
// status e-mail if one is attached. Only the database write can fail the call.
func (s *NotificationService) Notify(ctx context.Context, n Notice) error {
	typ := n.Type
	if typ == "" {
		typ = models.NotificationInfo
	}
	row := &models.Notification{
		RecipientID:          n.RecipientID,
		Title:                n.Title,
		Message:              n.Message,
		Type:                 typ,
		RelatedApplicationID: n.ApplicationID,
	}
	if err := s.notifications.Create(ctx, row); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	if s.pusher != nil {
		ev := websocket.Event{Type: websocket.EventNotification, Data: row, Timestamp: s.now()}
		if count, err := s.notifications.CountUnread(ctx, n.RecipientID); err == nil {
			ev.UnreadCount = &count
		}
		s.pusher.Push(n.RecipientID, ev)
	}

	if n.Mail != nil && s.mailer != nil {
		s.sendStatusMail(ctx, n.RecipientID, n.Mail)
	}
	return nil
}

func (s *NotificationService) sendStatusMail(ctx context.Context, recipientID int64, m *StatusMail) {
	user, err := s.users.GetUserByID(ctx, recipientID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("recipientID", recipientID).Msg("Could not load e-mail recipient")
		return
	}
	msg := email.StatusChangeMessage(user.Email, user.FullName(), m.ScholarshipTitle, m.StatusLabel, m.Comments, s.baseURL)
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error().Err(err).Int64("recipientID", recipientID).Msg("Failed to send status e-mail")
	}
}

// NotifyRole sends n to every active user with role
func (s *NotificationService) NotifyRole(ctx context.Context, role models.RoleType, n Notice) error {
	ids, err := s.users.ListActiveIDsByRole(ctx, role)
	if err != nil {
		return fmt.Errorf("failed to list %s users: %w", role, err)
	}
	var firstErr error
	for _, id := range ids {
		n.RecipientID = id
		if err := s.Notify(ctx, n); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ListForUser returns one page of the user's notifications
func (s *NotificationService) ListForUser(ctx context.Context, userID int64, unreadOnly bool, page, size int) (*dto.NotificationListResponse, error) {
	offset, limit := helpers.CalculateOffsetLimit(page, size)
	items, total, err := s.notifications.ListForUser(ctx, userID, unreadOnly, offset, limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.NotificationListResponse{
		Items:       items,
		Pagination:  helpers.NewPaginationInfo(total, page, limit),
		UnreadCount: unread,
	}, nil
}

// MarkRead marks one of the user's own notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID int64) error {
	return s.notifications.MarkRead(ctx, notificationID, userID)
}

// MarkAllRead marks all of the user's notifications as read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.notifications.MarkAllRead(ctx, userID)
}

// UnreadCount returns the user's unread notification count
func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.notifications.CountUnread(ctx, userID)
}

// CleanupOld removes read notifications older than days
func (s *NotificationService) CleanupOld(ctx context.Context, days int) (int64, error) {
	if days < 1 {
		return 0, fmt.Errorf("days must be at least 1, got %d", days)
	}
	cutoff := s.now().AddDate(0, 0, -days)
	deleted, err := s.notifications.DeleteReadOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int64("deleted", deleted).Int("days", days).Msg("Old notifications cleaned up")
	return deleted, nil
}

// ReminderResult reports what SendDeadlineReminders did for one scholarship
type ReminderResult struct {
	ScholarshipID int64
	Title         string
	DaysLeft      int
	Recipients    int
}

// SendDeadlineReminders notifies active students who have not yet applied to
// scholarships closing within days. With dryRun nothing is written.
func (s *NotificationService) SendDeadlineReminders(ctx context.Context, days int, dryRun bool) ([]ReminderResult, error) {
	if days < 1 {
		return nil, fmt.Errorf("days must be at least 1, got %d", days)
	}
	now := s.now()
	closing, err := s.scholarships.ListClosingBetween(ctx, now, now.AddDate(0, 0, days))
	if err != nil {
		return nil, err
	}

	results := make([]ReminderResult, 0, len(closing))
	for _, sch := range closing {
		students, err := s.users.ListStudentsWithoutApplication(ctx, sch.ID)
		if err != nil {
			return results, fmt.Errorf("failed to list students for scholarship %d: %w", sch.ID, err)
		}
		left := sch.DaysUntilDeadline(now)
		res := ReminderResult{ScholarshipID: sch.ID, Title: sch.Title, DaysLeft: left, Recipients: len(students)}
		results = append(results, res)
		if dryRun {
			continue
		}

		notice := Notice{
			Title:   "Scholarship Deadline Reminder",
			Message: fmt.Sprintf("Only %d day(s) left to apply for %s!", left, sch.Title),
			Type:    models.NotificationWarning,
		}
		for _, id := range students {
			notice.RecipientID = id
			if err := s.Notify(ctx, notice); err != nil {
				s.logger.Warn().Err(err).Int64("studentID", id).Int64("scholarshipID", sch.ID).Msg("Failed to send deadline reminder")
			}
		}
	}
	return results, nil
}

// CountAll returns total and unread notification counts across all users
func (s *NotificationService) CountAll(ctx context.Context) (int64, int64, error) {
	return s.notifications.CountAll(ctx)
}

// safeNotify delivers n and logs a failure instead of returning it
func safeNotify(ctx context.Context, notifier Notifier, logger zerolog.Logger, n Notice) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, n); err != nil {
		logger.Warn().Err(err).Int64("recipientID", n.RecipientID).Str("title", n.Title).Msg("Notification failed")
	}
}

// safeNotifyRole is safeNotify for every user with role
func safeNotifyRole(ctx context.Context, notifier Notifier, logger zerolog.Logger, role models.RoleType, n Notice) {
	if notifier == nil {
		return
	}
	if err := notifier.NotifyRole(ctx, role, n); err != nil {
		logger.Warn().Err(err).Str("role", string(role)).Str("title", n.Title).Msg("Role notification failed")
	}
}
