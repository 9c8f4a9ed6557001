package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/scholarsphere/internal/app/models"
	"github.com/yigit/scholarsphere/internal/app/models/dto"
	"github.com/yigit/scholarsphere/internal/app/workflow"
	database "github.com/yigit/scholarsphere/internal/db"
	"github.com/yigit/scholarsphere/internal/pkg/apperrors"
)

var (
	osasActor    = Actor{ID: 20, Role: models.RoleOSAS}
	adminActor   = Actor{ID: 30, Role: models.RoleAdmin}
	studentActor = Actor{ID: 10, Role: models.RoleStudent}
)

type reviewFixture struct {
	apps     *fakeApplications
	sch      *fakeScholarships
	notifier *fakeNotifier
	tx       *fakeTx
	svc      *ReviewService
}

func newReviewFixture(slots int, apps ...*models.Application) *reviewFixture {
	fa := newFakeApplications(apps...)
	fs := newFakeScholarships(fa, &models.Scholarship{
		ID:             1,
		Title:          "Academic Excellence Grant",
		AwardAmount:    25000,
		Deadline:       time.Now().Add(72 * time.Hour),
		AvailableSlots: slots,
		IsActive:       true,
	})
	fn := &fakeNotifier{}
	tx := &fakeTx{}
	users := &fakeUsers{users: map[int64]*models.User{
		10: {ID: 10, Email: "student@school.edu", FirstName: "Juan", LastName: "Cruz", RoleType: models.RoleStudent, IsActive: true},
	}}
	svc := NewReviewService(fa, fs, &fakeDocuments{}, users, tx, fn, zerolog.Nop())
	return &reviewFixture{apps: fa, sch: fs, notifier: fn, tx: tx, svc: svc}
}

func newApp(id, studentID int64, status workflow.Status) *models.Application {
	return &models.Application{ID: id, StudentID: studentID, ScholarshipID: 1, Status: status, GPA: 3.5, ScholarshipTitle: "Academic Excellence Grant"}
}

func TestFinalDecisionRespectsSlots(t *testing.T) {
	f := newReviewFixture(1,
		newApp(1, 10, workflow.StatusApproved),
		newApp(2, 11, workflow.StatusOSASApproved),
	)

	_, err := f.svc.FinalDecision(context.Background(), 2, adminActor, workflow.ActionFinalApprove, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrNoSlotsAvailable)
	assert.Equal(t, workflow.StatusOSASApproved, f.apps.status(2))
	assert.Equal(t, []int64{1}, f.sch.locked)
	assert.Empty(t, f.notifier.notices)
}

func TestFinalRejectIgnoresSlots(t *testing.T) {
	f := newReviewFixture(1,
		newApp(1, 10, workflow.StatusApproved),
		newApp(2, 11, workflow.StatusOSASApproved),
	)

	resp, err := f.svc.FinalDecision(context.Background(), 2, adminActor, workflow.ActionFinalReject, "Incomplete grades")
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusRejected), resp.To)
	assert.Empty(t, f.sch.locked)
}

func TestFinalDecisionApprovesAndNotifies(t *testing.T) {
	reviewer := osasActor.ID
	a := newApp(1, 10, workflow.StatusOSASApproved)
	a.ReviewedBy = &reviewer
	f := newReviewFixture(2, a)

	resp, err := f.svc.FinalDecision(context.Background(), 1, adminActor, workflow.ActionFinalApprove, "Well done")
	require.NoError(t, err)
	assert.Equal(t, "osas_approved", resp.From)
	assert.Equal(t, "approved", resp.To)
	assert.Equal(t, 1, f.tx.calls)

	stored, _ := f.apps.GetByID(context.Background(), 1)
	require.NotNil(t, stored.FinalDecisionBy)
	assert.Equal(t, adminActor.ID, *stored.FinalDecisionBy)
	assert.Equal(t, "Well done", *stored.FinalDecisionComments)

	assert.ElementsMatch(t, []int64{10, reviewer}, f.notifier.recipients())
	require.NotNil(t, f.notifier.notices[0].Mail)
	assert.Equal(t, "Approved", f.notifier.notices[0].Mail.StatusLabel)
}

func TestFinalDecisionAdminOnly(t *testing.T) {
	f := newReviewFixture(5, newApp(1, 10, workflow.StatusOSASApproved))

	_, err := f.svc.FinalDecision(context.Background(), 1, osasActor, workflow.ActionFinalApprove, "")
	assert.ErrorIs(t, err, workflow.ErrActorNotAllowed)

	_, err = f.svc.FinalDecision(context.Background(), 1, studentActor, workflow.ActionFinalApprove, "")
	assert.ErrorIs(t, err, workflow.ErrActorNotAllowed)

	assert.Equal(t, workflow.StatusOSASApproved, f.apps.status(1))
}

func TestFinalDecisionRequiresOSASRecommendation(t *testing.T) {
	f := newReviewFixture(5, newApp(1, 10, workflow.StatusUnderReview))

	_, err := f.svc.FinalDecision(context.Background(), 1, adminActor, workflow.ActionFinalApprove, "")
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestFinalDecisionTerminal(t *testing.T) {
	f := newReviewFixture(5, newApp(1, 10, workflow.StatusRejected))

	_, err := f.svc.FinalDecision(context.Background(), 1, adminActor, workflow.ActionFinalApprove, "")
	assert.ErrorIs(t, err, workflow.ErrTerminal)
}

func TestFinalDecisionRejectsNonFinalAction(t *testing.T) {
	f := newReviewFixture(5, newApp(1, 10, workflow.StatusOSASApproved))

	_, err := f.svc.FinalDecision(context.Background(), 1, adminActor, workflow.ActionRecommendApprove, "")
	assert.ErrorIs(t, err, workflow.ErrUnknownAction)
}

func TestNotificationFailureKeepsTransition(t *testing.T) {
	f := newReviewFixture(5, newApp(1, 10, workflow.StatusOSASRejected))
	f.notifier.err = errors.New("smtp down")

	_, err := f.svc.FinalDecision(context.Background(), 1, adminActor, workflow.ActionFinalReject, "")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusRejected, f.apps.status(1))
}

func TestConcurrentApprovalsNeverExceedSlots(t *testing.T) {
	const slots = 2
	var apps []*models.Application
	for i := int64(1); i <= 6; i++ {
		apps = append(apps, newApp(i, 100+i, workflow.StatusOSASApproved))
	}
	f := newReviewFixture(slots, apps...)
	// Serialises the critical section the way the row lock does in PostgreSQL
	var lock sync.Mutex
	f.svc.tx = txFunc(func(ctx context.Context, fn func(context.Context) error) error {
		lock.Lock()
		defer lock.Unlock()
		return fn(ctx)
	})

	var wg sync.WaitGroup
	for i := int64(1); i <= 6; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, _ = f.svc.FinalDecision(context.Background(), id, adminActor, workflow.ActionFinalApprove, "")
		}(i)
	}
	wg.Wait()

	approved, err := f.apps.CountApproved(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, slots, approved)
}

func TestStaleTransitionRejected(t *testing.T) {
	f := newReviewFixture(5, newApp(1, 10, workflow.StatusOSASApproved))
	_, err := f.svc.FinalDecision(context.Background(), 1, adminActor, workflow.ActionFinalReject, "")
	require.NoError(t, err)

	err = f.apps.ApplyTransition(context.Background(), models.StatusChange{
		ApplicationID: 1,
		From:          workflow.StatusOSASApproved,
		To:            workflow.StatusApproved,
		ActorID:       31,
		Final:         true,
	})
	assert.ErrorIs(t, err, apperrors.ErrConcurrentUpdate)
	assert.Equal(t, workflow.StatusRejected, f.apps.status(1))
}

func TestOSASFlow(t *testing.T) {
	f := newReviewFixture(5, newApp(1, 10, workflow.StatusPending))
	ctx := context.Background()

	resp, err := f.svc.AssignToMe(ctx, 1, osasActor)
	require.NoError(t, err)
	assert.Equal(t, "under_review", resp.To)
	stored, _ := f.apps.GetByID(ctx, 1)
	require.NotNil(t, stored.ReviewedBy)
	assert.Equal(t, osasActor.ID, *stored.ReviewedBy)
	assert.Nil(t, stored.ReviewedAt)

	resp, err = f.svc.Recommend(ctx, 1, osasActor, workflow.ActionRequestInfo, "Upload your grades")
	require.NoError(t, err)
	assert.Equal(t, "additional_info_required", resp.To)

	resp, err = f.svc.Recommend(ctx, 1, osasActor, workflow.ActionRecommendApprove, "")
	require.NoError(t, err)
	assert.Equal(t, "osas_approved", resp.To)
	assert.Contains(t, f.notifier.roles, models.RoleAdmin)

	_, err = f.svc.Recommend(ctx, 1, osasActor, workflow.ActionRecommendReject, "")
	assert.ErrorIs(t, err, workflow.ErrLocked)
	assert.Equal(t, workflow.StatusOSASApproved, f.apps.status(1))
}

func TestOSASCannotTouchTerminal(t *testing.T) {
	for _, st := range []workflow.Status{workflow.StatusApproved, workflow.StatusRejected} {
		f := newReviewFixture(5, newApp(1, 10, st))
		_, err := f.svc.Recommend(context.Background(), 1, osasActor, workflow.ActionRecommendApprove, "")
		assert.ErrorIs(t, err, workflow.ErrTerminal, st)
	}
}

func TestAdminCannotRecommend(t *testing.T) {
	f := newReviewFixture(5, newApp(1, 10, workflow.StatusUnderReview))
	_, err := f.svc.Recommend(context.Background(), 1, adminActor, workflow.ActionRecommendApprove, "")
	assert.ErrorIs(t, err, workflow.ErrActorNotAllowed)
}

func TestAdminCanAssign(t *testing.T) {
	f := newReviewFixture(5, newApp(1, 10, workflow.StatusPending))
	_, err := f.svc.AssignToMe(context.Background(), 1, adminActor)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusUnderReview, f.apps.status(1))
}

func TestStudentCannotReview(t *testing.T) {
	f := newReviewFixture(5, newApp(1, 10, workflow.StatusPending))
	_, err := f.svc.AssignToMe(context.Background(), 1, studentActor)
	assert.ErrorIs(t, err, workflow.ErrActorNotAllowed)
}

func TestAllowedActions(t *testing.T) {
	assert.Equal(t, []string{"assign", "recommend_approve", "recommend_reject", "request_info"},
		AllowedActions(workflow.StatusPending, osasActor))
	assert.Equal(t, []string{"assign"}, AllowedActions(workflow.StatusPending, adminActor))
	assert.Equal(t, []string{"final_approve", "final_reject"}, AllowedActions(workflow.StatusOSASRejected, adminActor))
	assert.Empty(t, AllowedActions(workflow.StatusOSASRejected, osasActor))
	assert.Empty(t, AllowedActions(workflow.StatusApproved, adminActor))
}

func TestReviewQueueByReviewer(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture(2,
		newApp(1, 10, workflow.StatusPending),
		newApp(2, 11, workflow.StatusPending),
		newApp(3, 12, workflow.StatusPending),
	)
	_, err := f.svc.AssignToMe(ctx, 1, osasActor)
	require.NoError(t, err)
	_, err = f.svc.AssignToMe(ctx, 2, adminActor)
	require.NoError(t, err)

	ids := func(resp *dto.ApplicationListResponse) []int64 {
		var out []int64
		for _, it := range resp.Items {
			out = append(out, it.ID)
		}
		return out
	}

	mine, err := f.svc.ReviewQueue(ctx, ReviewFilter{ReviewedBy: &osasActor.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(mine))

	unassigned, err := f.svc.ReviewQueue(ctx, ReviewFilter{Unassigned: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(unassigned))

	all, err := f.svc.ReviewQueue(ctx, ReviewFilter{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids(all))
}

func TestPendingApprovalsAndHistory(t *testing.T) {
	f := newReviewFixture(5,
		newApp(1, 10, workflow.StatusOSASApproved),
		newApp(2, 11, workflow.StatusOSASRejected),
		newApp(3, 12, workflow.StatusUnderReview),
		newApp(4, 13, workflow.StatusOSASApproved),
	)
	ctx := context.Background()

	pending, err := f.svc.PendingApprovals(ctx, ReviewFilter{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Len(t, pending.Items, 3)
	assert.Equal(t, int64(2), pending.StatusCounts["osas_approved"])
	assert.Equal(t, int64(1), pending.StatusCounts["osas_rejected"])
	assert.NotContains(t, pending.StatusCounts, "under_review")

	only, err := f.svc.PendingApprovals(ctx, ReviewFilter{Statuses: []workflow.Status{workflow.StatusOSASRejected}})
	require.NoError(t, err)
	assert.Len(t, only.Items, 1)

	_, err = f.svc.PendingApprovals(ctx, ReviewFilter{Statuses: []workflow.Status{workflow.StatusPending}})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = f.svc.FinalDecision(ctx, 1, adminActor, workflow.ActionFinalApprove, "")
	require.NoError(t, err)
	other := Actor{ID: 31, Role: models.RoleAdmin}
	_, err = f.svc.FinalDecision(ctx, 2, other, workflow.ActionFinalReject, "")
	require.NoError(t, err)

	history, err := f.svc.DecisionHistory(ctx, ReviewFilter{})
	require.NoError(t, err)
	assert.Len(t, history.Items, 2)

	mine, err := f.svc.DecisionHistory(ctx, ReviewFilter{DecidedBy: &adminActor.ID})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, int64(1), mine.Items[0].ID)
}

func TestWorkflowStatus(t *testing.T) {
	f := newReviewFixture(5,
		newApp(1, 10, workflow.StatusPending),
		newApp(2, 11, workflow.StatusOSASApproved),
		newApp(3, 12, workflow.StatusOSASRejected),
	)
	resp, err := f.svc.WorkflowStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Total)
	assert.Equal(t, int64(2), resp.PendingApprovals)
	assert.Equal(t, int64(1), resp.StatusCounts["pending"])
	assert.Equal(t, int64(0), resp.StatusCounts["approved"])
}

type txFunc func(ctx context.Context, fn func(context.Context) error) error

func (f txFunc) WithTransaction(ctx context.Context, fn database.TransactionFn) error {
	return f(ctx, fn)
}
