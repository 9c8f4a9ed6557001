package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/scholarsphere/internal/app/models"
	"github.com/yigit/scholarsphere/internal/pkg/apperrors"
	"github.com/yigit/scholarsphere/internal/pkg/email"
	"github.com/yigit/scholarsphere/internal/pkg/websocket"
)

type recordingPusher struct {
	events map[int64][]websocket.Event
}

func (p *recordingPusher) Push(userID int64, ev websocket.Event) {
	if p.events == nil {
		p.events = map[int64][]websocket.Event{}
	}
	p.events[userID] = append(p.events[userID], ev)
}

type recordingMailer struct {
	sent []email.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg email.Message) error {
	m.sent = append(m.sent, msg)
	return m.err
}

type notificationFixture struct {
	store  *fakeNotifications
	pusher *recordingPusher
	mailer *recordingMailer
	sch    *fakeScholarships
	svc    *NotificationService
}

func newNotificationFixture(now time.Time) *notificationFixture {
	store := &fakeNotifications{}
	pusher := &recordingPusher{}
	mailer := &recordingMailer{}
	sch := newFakeScholarships(nil)
	users := &fakeUsers{
		users: map[int64]*models.User{
			10: {ID: 10, Email: "juan@school.edu", FirstName: "Juan", LastName: "Cruz", RoleType: models.RoleStudent, IsActive: true},
			11: {ID: 11, Email: "ana@school.edu", FirstName: "Ana", LastName: "Reyes", RoleType: models.RoleStudent, IsActive: true},
			30: {ID: 30, Email: "admin@school.edu", RoleType: models.RoleAdmin, IsActive: true},
			31: {ID: 31, Email: "old@school.edu", RoleType: models.RoleAdmin, IsActive: false},
		},
		nonApply: map[int64][]int64{},
	}
	svc := NewNotificationService(store, users, sch, pusher, mailer, "https://portal.example.edu", zerolog.Nop())
	svc.now = func() time.Time { return now }
	return &notificationFixture{store: store, pusher: pusher, mailer: mailer, sch: sch, svc: svc}
}

func TestNotifyStoresPushesAndMails(t *testing.T) {
	f := newNotificationFixture(time.Now())
	appID := int64(5)

	err := f.svc.Notify(context.Background(), Notice{
		RecipientID:   10,
		Title:         "Scholarship Application Approved",
		Message:       "Congratulations!",
		Type:          models.NotificationSuccess,
		ApplicationID: &appID,
		Mail:          &StatusMail{ScholarshipTitle: "Academic Excellence Grant", StatusLabel: "Approved"},
	})
	require.NoError(t, err)

	require.Len(t, f.store.rows, 1)
	assert.Equal(t, models.NotificationSuccess, f.store.rows[0].Type)
	require.Len(t, f.pusher.events[10], 1)
	ev := f.pusher.events[10][0]
	assert.Equal(t, websocket.EventNotification, ev.Type)
	require.NotNil(t, ev.UnreadCount)
	assert.Equal(t, int64(1), *ev.UnreadCount)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "juan@school.edu", f.mailer.sent[0].ToEmail)
	assert.Contains(t, f.mailer.sent[0].TextBody, "Approved")
}

func TestNotifyDefaultsToInfoWithoutMail(t *testing.T) {
	f := newNotificationFixture(time.Now())
	require.NoError(t, f.svc.Notify(context.Background(), Notice{RecipientID: 10, Title: "Hi", Message: "There"}))
	assert.Equal(t, models.NotificationInfo, f.store.rows[0].Type)
	assert.Empty(t, f.mailer.sent)
}

func TestMailFailureIsNotReturned(t *testing.T) {
	f := newNotificationFixture(time.Now())
	f.mailer.err = errors.New("smtp down")
	err := f.svc.Notify(context.Background(), Notice{RecipientID: 10, Title: "t", Message: "m", Mail: &StatusMail{}})
	assert.NoError(t, err)
}

func TestStoreFailureIsReturned(t *testing.T) {
	f := newNotificationFixture(time.Now())
	f.store.failNew = true
	err := f.svc.Notify(context.Background(), Notice{RecipientID: 10, Title: "t", Message: "m"})
	assert.Error(t, err)
	assert.Empty(t, f.pusher.events)
}

func TestNotifyRoleSkipsInactiveUsers(t *testing.T) {
	f := newNotificationFixture(time.Now())
	require.NoError(t, f.svc.NotifyRole(context.Background(), models.RoleAdmin, Notice{Title: "New", Message: "application"}))
	require.Len(t, f.store.rows, 1)
	assert.Equal(t, int64(30), f.store.rows[0].RecipientID)
}

func TestMarkReadOwnOnly(t *testing.T) {
	f := newNotificationFixture(time.Now())
	ctx := context.Background()
	require.NoError(t, f.svc.Notify(ctx, Notice{RecipientID: 10, Title: "a"}))
	require.NoError(t, f.svc.Notify(ctx, Notice{RecipientID: 10, Title: "b"}))

	assert.ErrorIs(t, f.svc.MarkRead(ctx, 1, 11), apperrors.ErrNotificationNotFound)
	require.NoError(t, f.svc.MarkRead(ctx, 1, 10))

	count, err := f.svc.UnreadCount(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	page, err := f.svc.ListForUser(ctx, 10, true, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.UnreadCount)

	n, err := f.svc.MarkAllRead(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCleanupOld(t *testing.T) {
	now := time.Now()
	f := newNotificationFixture(now)
	f.store.rows = []*models.Notification{
		{ID: 1, RecipientID: 10, IsRead: true, CreatedAt: now.AddDate(0, 0, -40)},
		{ID: 2, RecipientID: 10, IsRead: false, CreatedAt: now.AddDate(0, 0, -40)},
		{ID: 3, RecipientID: 10, IsRead: true, CreatedAt: now.AddDate(0, 0, -5)},
	}

	deleted, err := f.svc.CleanupOld(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Len(t, f.store.rows, 2)

	_, err = f.svc.CleanupOld(context.Background(), 0)
	assert.Error(t, err)
}

func TestSendDeadlineReminders(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newNotificationFixture(now)
	f.sch.items[1] = &models.Scholarship{ID: 1, Title: "STEM Grant", IsActive: true, Deadline: now.Add(36 * time.Hour)}
	f.sch.items[2] = &models.Scholarship{ID: 2, Title: "Later Grant", IsActive: true, Deadline: now.AddDate(0, 0, 10)}
	f.sch.items[3] = &models.Scholarship{ID: 3, Title: "Closed Grant", IsActive: false, Deadline: now.Add(24 * time.Hour)}
	f.svc.users.(*fakeUsers).nonApply[1] = []int64{10, 11}

	dry, err := f.svc.SendDeadlineReminders(context.Background(), 3, true)
	require.NoError(t, err)
	require.Len(t, dry, 1)
	assert.Equal(t, ReminderResult{ScholarshipID: 1, Title: "STEM Grant", DaysLeft: 2, Recipients: 2}, dry[0])
	assert.Empty(t, f.store.rows)

	_, err = f.svc.SendDeadlineReminders(context.Background(), 3, false)
	require.NoError(t, err)
	require.Len(t, f.store.rows, 2)
	assert.Equal(t, "Only 2 day(s) left to apply for STEM Grant!", f.store.rows[0].Message)
	assert.Equal(t, models.NotificationWarning, f.store.rows[0].Type)
}
