package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/scholarsphere/internal/app/models"
	"github.com/yigit/scholarsphere/internal/app/models/dto"
	"github.com/yigit/scholarsphere/internal/app/workflow"
	database "github.com/yigit/scholarsphere/internal/db"
	"github.com/yigit/scholarsphere/internal/pkg/apperrors"
	"github.com/yigit/scholarsphere/internal/pkg/helpers"
)

// ReviewService drives applications through the OSAS and admin review tiers
type ReviewService struct {
	applications ApplicationStore
	scholarships ScholarshipStore
	documents    DocumentStore
	users        UserDirectory
	tx           database.Transactor
	notifier     Notifier
	logger       zerolog.Logger
	now          func() time.Time
}

// NewReviewService creates a new ReviewService
func NewReviewService(
	applications ApplicationStore,
	scholarships ScholarshipStore,
	documents DocumentStore,
	users UserDirectory,
	tx database.Transactor,
	notifier Notifier,
	logger zerolog.Logger,
) *ReviewService {
	return &ReviewService{
		applications: applications,
		scholarships: scholarships,
		documents:    documents,
		users:        users,
		tx:           tx,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *ReviewService) workflowActor(actor Actor) (workflow.Actor, error) {
	wa, ok := actor.workflowActor()
	if !ok || wa == workflow.ActorStudent {
		return "", fmt.Errorf("%w: role %s cannot review applications", workflow.ErrActorNotAllowed, actor.Role)
	}
	return wa, nil
}

// AssignToMe moves a pending application to under_review and records the reviewer
func (s *ReviewService) AssignToMe(ctx context.Context, applicationID int64, reviewer Actor) (*dto.TransitionResponse, error) {
	wa, err := s.workflowActor(reviewer)
	if err != nil {
		return nil, err
	}
	app, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	to, err := workflow.Transition(app.Status, workflow.ActionAssign, wa)
	if err != nil {
		return nil, err
	}

	change := models.StatusChange{
		ApplicationID: app.ID,
		From:          app.Status,
		To:            to,
		ActorID:       reviewer.ID,
		At:            s.now(),
		AssignOnly:    true,
	}
	if err := s.applications.ApplyTransition(ctx, change); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("applicationID", app.ID).Int64("reviewerID", reviewer.ID).Msg("Application assigned for review")
	safeNotify(ctx, s.notifier, s.logger, Notice{
		RecipientID:   app.StudentID,
		Title:         "Application Under Review",
		Message:       fmt.Sprintf("Your application for %s is now being reviewed by OSAS.", app.ScholarshipTitle),
		Type:          models.NotificationInfo,
		ApplicationID: ptr(app.ID),
	})
	return transitionResponse(change), nil
}

// Recommend records an OSAS recommendation or a request for more information
func (s *ReviewService) Recommend(ctx context.Context, applicationID int64, reviewer Actor, action workflow.Action, comments string) (*dto.TransitionResponse, error) {
	if action.IsFinal() || action == workflow.ActionAssign {
		return nil, fmt.Errorf("%w: %s is not a recommendation", workflow.ErrUnknownAction, action)
	}
	wa, err := s.workflowActor(reviewer)
	if err != nil {
		return nil, err
	}
	app, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	to, err := workflow.Transition(app.Status, action, wa)
	if err != nil {
		return nil, err
	}

	change := models.StatusChange{
		ApplicationID: app.ID,
		From:          app.Status,
		To:            to,
		ActorID:       reviewer.ID,
		Comments:      optionalString(comments),
		At:            s.now(),
	}
	if err := s.applications.ApplyTransition(ctx, change); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("applicationID", app.ID).
		Int64("reviewerID", reviewer.ID).
		Str("from", string(change.From)).
		Str("to", string(to)).
		Msg("OSAS review recorded")

	if to == workflow.StatusAdditionalInfoRequired {
		msg := fmt.Sprintf("OSAS needs more information on your application for %s.", app.ScholarshipTitle)
		if comments != "" {
			msg += " Comments: " + comments
		}
		safeNotify(ctx, s.notifier, s.logger, Notice{
			RecipientID:   app.StudentID,
			Title:         "Additional Information Required",
			Message:       msg,
			Type:          models.NotificationWarning,
			ApplicationID: ptr(app.ID),
			Mail:          &StatusMail{ScholarshipTitle: app.ScholarshipTitle, StatusLabel: to.Label(), Comments: comments},
		})
		return transitionResponse(change), nil
	}

	safeNotifyRole(ctx, s.notifier, s.logger, models.RoleAdmin, Notice{
		Title:         "Application Awaiting Final Decision",
		Message:       fmt.Sprintf("OSAS %s the application of %s for %s.", recommendationVerb(to), app.StudentName, app.ScholarshipTitle),
		Type:          models.NotificationInfo,
		ApplicationID: ptr(app.ID),
	})
	return transitionResponse(change), nil
}

func recommendationVerb(to workflow.Status) string {
	if to == workflow.StatusOSASApproved {
		return "recommended approval of"
	}
	return "recommended rejection of"
}

// FinalDecision renders the admin decision. The scholarship row is locked for the
// whole transaction so concurrent approvals cannot exceed the available slots.
func (s *ReviewService) FinalDecision(ctx context.Context, applicationID int64, admin Actor, action workflow.Action, comments string) (*dto.TransitionResponse, error) {
	if !action.IsFinal() {
		return nil, fmt.Errorf("%w: %s is not a final decision", workflow.ErrUnknownAction, action)
	}
	wa, ok := admin.workflowActor()
	if !ok {
		return nil, fmt.Errorf("%w: unknown role %s", workflow.ErrActorNotAllowed, admin.Role)
	}

	var (
		app    *models.Application
		change models.StatusChange
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		app, err = s.applications.GetByID(ctx, applicationID)
		if err != nil {
			return err
		}
		to, err := workflow.Transition(app.Status, action, wa)
		if err != nil {
			return err
		}

		if to == workflow.StatusApproved {
			scholarship, err := s.scholarships.LockByID(ctx, app.ScholarshipID)
			if err != nil {
				return err
			}
			approved, err := s.applications.CountApproved(ctx, scholarship.ID)
			if err != nil {
				return err
			}
			if err := workflow.CheckSlots(approved, scholarship.AvailableSlots); err != nil {
				return err
			}
		}

		change = models.StatusChange{
			ApplicationID: app.ID,
			From:          app.Status,
			To:            to,
			ActorID:       admin.ID,
			Comments:      optionalString(comments),
			At:            s.now(),
			Final:         true,
		}
		return s.applications.ApplyTransition(ctx, change)
	})
	if err != nil {
		if errors.Is(err, workflow.ErrNoSlotsAvailable) || errors.Is(err, apperrors.ErrConcurrentUpdate) {
			s.logger.Warn().Err(err).Int64("applicationID", applicationID).Msg("Final decision refused")
		}
		return nil, err
	}

	s.logger.Info().
		Int64("applicationID", app.ID).
		Int64("adminID", admin.ID).
		Str("decision", string(change.To)).
		Msg("Final decision recorded")

	title, typ := "Scholarship Application Approved", models.NotificationSuccess
	msg := fmt.Sprintf("Congratulations! Your application for %s has been approved.", app.ScholarshipTitle)
	if change.To == workflow.StatusRejected {
		title, typ = "Scholarship Application Update", models.NotificationError
		msg = fmt.Sprintf("Your application for %s was not approved.", app.ScholarshipTitle)
	}
	if comments != "" {
		msg += " Comments: " + comments
	}
	safeNotify(ctx, s.notifier, s.logger, Notice{
		RecipientID:   app.StudentID,
		Title:         title,
		Message:       msg,
		Type:          typ,
		ApplicationID: ptr(app.ID),
		Mail:          &StatusMail{ScholarshipTitle: app.ScholarshipTitle, StatusLabel: change.To.Label(), Comments: comments},
	})
	if app.ReviewedBy != nil {
		safeNotify(ctx, s.notifier, s.logger, Notice{
			RecipientID:   *app.ReviewedBy,
			Title:         "Final Decision Recorded",
			Message:       fmt.Sprintf("The application of %s for %s was %s.", app.StudentName, app.ScholarshipTitle, change.To),
			Type:          models.NotificationInfo,
			ApplicationID: ptr(app.ID),
		})
	}
	return transitionResponse(change), nil
}

func transitionResponse(c models.StatusChange) *dto.TransitionResponse {
	return &dto.TransitionResponse{
		ApplicationID: c.ApplicationID,
		From:          string(c.From),
		To:            string(c.To),
		StatusLabel:   c.To.Label(),
	}
}

// ReviewFilter narrows the staff review lists
type ReviewFilter struct {
	Statuses      []workflow.Status
	ScholarshipID *int64
	Search        string
	DecidedBy     *int64
	ReviewedBy    *int64
	Unassigned    bool
	Page          int
	Size          int
}

func (s *ReviewService) list(ctx context.Context, f models.ApplicationFilter, page, size int) (*dto.ApplicationListResponse, error) {
	f.Offset, f.Limit = helpers.CalculateOffsetLimit(page, size)
	apps, total, err := s.applications.List(ctx, f)
	if err != nil {
		return nil, err
	}
	counts, err := s.applications.CountByStatus(ctx, f)
	if err != nil {
		return nil, err
	}
	sc, _ := toStatusCounts(counts)
	return &dto.ApplicationListResponse{
		Items:        dto.NewApplicationResponses(apps),
		Pagination:   helpers.NewPaginationInfo(total, page, f.Limit),
		StatusCounts: sc,
	}, nil
}

// ReviewQueue lists applications for OSAS and admins
func (s *ReviewService) ReviewQueue(ctx context.Context, f ReviewFilter) (*dto.ApplicationListResponse, error) {
	return s.list(ctx, models.ApplicationFilter{
		Statuses:      f.Statuses,
		ScholarshipID: f.ScholarshipID,
		Search:        f.Search,
		ReviewedBy:    f.ReviewedBy,
		Unassigned:    f.Unassigned,
	}, f.Page, f.Size)
}

// PendingApprovals lists OSAS-decided applications awaiting the admin decision.
// An empty Statuses filter means both recommendations.
func (s *ReviewService) PendingApprovals(ctx context.Context, f ReviewFilter) (*dto.ApplicationListResponse, error) {
	statuses := f.Statuses
	if len(statuses) == 0 {
		statuses = []workflow.Status{workflow.StatusOSASApproved, workflow.StatusOSASRejected}
	}
	for _, st := range statuses {
		if !st.IsOSASDecided() {
			return nil, apperrors.NewValidationError("recommendation", "recommendation must be approved or rejected")
		}
	}
	resp, err := s.list(ctx, models.ApplicationFilter{
		Statuses:      statuses,
		ScholarshipID: f.ScholarshipID,
		Search:        f.Search,
	}, f.Page, f.Size)
	if err != nil {
		return nil, err
	}
	resp.StatusCounts = pick(resp.StatusCounts, workflow.StatusOSASApproved, workflow.StatusOSASRejected)
	return resp, nil
}

// DecisionHistory lists applications with a final decision
func (s *ReviewService) DecisionHistory(ctx context.Context, f ReviewFilter) (*dto.ApplicationListResponse, error) {
	statuses := f.Statuses
	if len(statuses) == 0 {
		statuses = []workflow.Status{workflow.StatusApproved, workflow.StatusRejected}
	}
	resp, err := s.list(ctx, models.ApplicationFilter{
		Statuses:  statuses,
		DecidedBy: f.DecidedBy,
		FinalOnly: true,
	}, f.Page, f.Size)
	if err != nil {
		return nil, err
	}
	resp.StatusCounts = pick(resp.StatusCounts, workflow.StatusApproved, workflow.StatusRejected)
	return resp, nil
}

func pick(counts dto.StatusCounts, keep ...workflow.Status) dto.StatusCounts {
	out := make(dto.StatusCounts, len(keep))
	for _, st := range keep {
		out[string(st)] = counts[string(st)]
	}
	return out
}

// GetForStaff returns the application with its documents, the student's other
// applications and the actions the caller may take next
func (s *ReviewService) GetForStaff(ctx context.Context, applicationID int64, viewer Actor) (*dto.StaffApplicationResponse, error) {
	app, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	docs, err := s.documents.ListByApplication(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	student, err := s.users.GetUserByID(ctx, app.StudentID)
	if err != nil {
		return nil, err
	}
	scholarship, err := s.scholarships.GetByID(ctx, app.ScholarshipID)
	if err != nil {
		return nil, err
	}
	others, _, err := s.applications.List(ctx, models.ApplicationFilter{StudentID: &app.StudentID})
	if err != nil {
		return nil, err
	}

	otherResp := make([]dto.ApplicationResponse, 0, len(others))
	for _, o := range others {
		if o.ID != app.ID {
			otherResp = append(otherResp, dto.NewApplicationResponse(o, nil))
		}
	}
	sr := dto.NewScholarshipResponse(scholarship, s.now())
	return &dto.StaffApplicationResponse{
		ApplicationResponse: dto.NewApplicationResponse(app, docs),
		Student:             dto.NewUserResponse(student),
		Scholarship:         &sr,
		OtherApplications:   otherResp,
		AllowedActions:      AllowedActions(app.Status, viewer),
	}, nil
}

// AllowedActions lists the review actions viewer may take on an application in status
func AllowedActions(status workflow.Status, viewer Actor) []string {
	wa, ok := viewer.workflowActor()
	if !ok {
		return []string{}
	}
	actions := []workflow.Action{
		workflow.ActionAssign,
		workflow.ActionRecommendApprove,
		workflow.ActionRecommendReject,
		workflow.ActionRequestInfo,
		workflow.ActionFinalApprove,
		workflow.ActionFinalReject,
	}
	out := []string{}
	for _, a := range actions {
		if _, err := workflow.Transition(status, a, wa); err == nil {
			out = append(out, string(a))
		}
	}
	return out
}

// WorkflowStatus reports application counts per status
func (s *ReviewService) WorkflowStatus(ctx context.Context) (*dto.WorkflowStatusResponse, error) {
	counts, err := s.applications.CountByStatus(ctx, models.ApplicationFilter{})
	if err != nil {
		return nil, err
	}
	sc, total := toStatusCounts(counts)
	return &dto.WorkflowStatusResponse{
		StatusCounts:     sc,
		PendingApprovals: counts[workflow.StatusOSASApproved] + counts[workflow.StatusOSASRejected],
		Total:            total,
	}, nil
}
