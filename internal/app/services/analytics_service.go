package services

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/scholarsphere/internal/app/models"
	"github.com/yigit/scholarsphere/internal/app/models/dto"
	"github.com/yigit/scholarsphere/internal/app/workflow"
)

// RoleCounter counts users per role
type RoleCounter interface {
	CountByRole(ctx context.Context) (map[models.RoleType]int64, error)
}

// AnalyticsService computes reporting figures
type AnalyticsService struct {
	users         RoleCounter
	scholarships  ScholarshipStore
	applications  ApplicationStore
	notifications NotificationStore
	logger        zerolog.Logger
	now           func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(
	users RoleCounter,
	scholarships ScholarshipStore,
	applications ApplicationStore,
	notifications NotificationStore,
	logger zerolog.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		users:         users,
		scholarships:  scholarships,
		applications:  applications,
		notifications: notifications,
		logger:        logger,
		now:           time.Now,
	}
}

// SuccessRate returns approved as a percentage of total, rounded to one decimal
func SuccessRate(approved, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(approved)/float64(total)*1000) / 10
}

// Overview returns system-wide counts
func (s *AnalyticsService) Overview(ctx context.Context) (*dto.OverviewResponse, error) {
	roles, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	total, active, err := s.scholarships.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.applications.CountByStatus(ctx, models.ApplicationFilter{})
	if err != nil {
		return nil, err
	}
	notifTotal, notifUnread, err := s.notifications.CountAll(ctx)
	if err != nil {
		return nil, err
	}

	byRole := make(map[string]int64, len(roles))
	for r, n := range roles {
		byRole[string(r)] = n
	}
	sc, apps := toStatusCounts(counts)
	return &dto.OverviewResponse{
		UsersByRole:          byRole,
		TotalScholarships:    total,
		ActiveScholarships:   active,
		ApplicationsByStatus: sc,
		TotalApplications:    apps,
		TotalNotifications:   notifTotal,
		UnreadNotifications:  notifUnread,
	}, nil
}

// ScholarshipPerformance reports application outcomes for every scholarship
func (s *AnalyticsService) ScholarshipPerformance(ctx context.Context) ([]dto.ScholarshipPerformance, error) {
	items, _, err := s.scholarships.List(ctx, models.ScholarshipFilter{Now: s.now()})
	if err != nil {
		return nil, err
	}

	out := make([]dto.ScholarshipPerformance, 0, len(items))
	for _, sch := range items {
		id := sch.ID
		counts, err := s.applications.CountByStatus(ctx, models.ApplicationFilter{ScholarshipID: &id})
		if err != nil {
			return nil, err
		}
		_, total := toStatusCounts(counts)
		approved := counts[workflow.StatusApproved]
		out = append(out, dto.ScholarshipPerformance{
			ScholarshipID:     sch.ID,
			Title:             sch.Title,
			TotalApplications: total,
			Approved:          approved,
			Pending:           total - approved - counts[workflow.StatusRejected],
			SuccessRate:       SuccessRate(approved, total),
			AvailableSlots:    sch.AvailableSlots,
			RemainingSlots:    workflow.RemainingSlots(sch.AvailableSlots, int(approved)),
		})
	}
	return out, nil
}

// Dashboard returns the figures shown on the viewer's landing page. Students see
// their own applications, staff see all of them.
func (s *AnalyticsService) Dashboard(ctx context.Context, viewer Actor) (*dto.DashboardResponse, error) {
	f := models.ApplicationFilter{}
	if viewer.Role == models.RoleStudent {
		f.StudentID = &viewer.ID
	}
	counts, err := s.applications.CountByStatus(ctx, f)
	if err != nil {
		return nil, err
	}
	_, open, err := s.scholarships.List(ctx, models.ScholarshipFilter{
		State:      models.ScholarshipStateOpen,
		ActiveOnly: true,
		Now:        s.now(),
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	unread, err := s.notifications.CountUnread(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}

	sc, total := toStatusCounts(counts)
	resp := &dto.DashboardResponse{
		Role:                string(viewer.Role),
		StatusCounts:        sc,
		TotalApplications:   total,
		SuccessRate:         SuccessRate(counts[workflow.StatusApproved], total),
		OpenScholarships:    open,
		UnreadNotifications: unread,
	}
	switch viewer.Role {
	case models.RoleStudent:
		resp.AwaitingAction = counts[workflow.StatusAdditionalInfoRequired]
	case models.RoleOSAS:
		resp.AwaitingAction = counts[workflow.StatusPending] + counts[workflow.StatusUnderReview] + counts[workflow.StatusAdditionalInfoRequired]
	case models.RoleAdmin:
		resp.AwaitingAction = counts[workflow.StatusOSASApproved] + counts[workflow.StatusOSASRejected]
	}
	return resp, nil
}
