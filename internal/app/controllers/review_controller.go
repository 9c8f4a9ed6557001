package controllers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/scholarsphere/internal/app/models/dto"
	"github.com/yigit/scholarsphere/internal/app/services"
	"github.com/yigit/scholarsphere/internal/app/workflow"
	"github.com/yigit/scholarsphere/internal/middleware"
	"github.com/yigit/scholarsphere/internal/pkg/apperrors"
	"github.com/yigit/scholarsphere/internal/pkg/helpers"
)

// ReviewService is what ReviewController needs from the review service
type ReviewService interface {
	AssignToMe(ctx context.Context, applicationID int64, reviewer services.Actor) (*dto.TransitionResponse, error)
	Recommend(ctx context.Context, applicationID int64, reviewer services.Actor, action workflow.Action, comments string) (*dto.TransitionResponse, error)
	FinalDecision(ctx context.Context, applicationID int64, admin services.Actor, action workflow.Action, comments string) (*dto.TransitionResponse, error)
	ReviewQueue(ctx context.Context, f services.ReviewFilter) (*dto.ApplicationListResponse, error)
	PendingApprovals(ctx context.Context, f services.ReviewFilter) (*dto.ApplicationListResponse, error)
	DecisionHistory(ctx context.Context, f services.ReviewFilter) (*dto.ApplicationListResponse, error)
	GetForStaff(ctx context.Context, applicationID int64, viewer services.Actor) (*dto.StaffApplicationResponse, error)
}

// ReviewController handles the OSAS review queue and the admin approval endpoints
type ReviewController struct {
	reviewService ReviewService
	logger        zerolog.Logger
}

// NewReviewController creates a new ReviewController
func NewReviewController(reviewService ReviewService, logger zerolog.Logger) *ReviewController {
	return &ReviewController{
		reviewService: reviewService,
		logger:        logger,
	}
}

// parseStatuses reads a comma separated status list
func parseStatuses(raw string) ([]workflow.Status, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []workflow.Status
	for _, part := range strings.Split(raw, ",") {
		st, err := workflow.ParseStatus(strings.TrimSpace(part))
		if err != nil {
			return nil, apperrors.NewValidationError("status", "unknown status "+part)
		}
		out = append(out, st)
	}
	return out, nil
}

// ReviewQueue godoc
// @Summary Review queue
// @Description Lists applications for review with status, scholarship and student search filters
// @Tags review
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param scholarshipId query int false "Scholarship ID"
// @Param search query string false "Student name, e-mail or student number"
// @Param reviewer query string false "me for applications the caller reviews, unassigned for those nobody took" Enums(me, unassigned)
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10)"
// @Success 200 {object} dto.APIResponse{data=dto.ApplicationListResponse} "Applications"
// @Security BearerAuth
// @Router /review/queue [get]
func (c *ReviewController) ReviewQueue(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var q dto.ReviewQueueQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		middleware.BindError(ctx, err)
		return
	}
	statuses, err := parseStatuses(q.Status)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	page, size := helpers.ParsePaginationParams(ctx)

	f := services.ReviewFilter{
		Statuses:      statuses,
		ScholarshipID: q.ScholarshipID,
		Search:        q.Search,
		Page:          page,
		Size:          size,
	}
	switch q.Reviewer {
	case "me":
		f.ReviewedBy = &actor.ID
	case "unassigned":
		f.Unassigned = true
	}

	resp, err := c.reviewService.ReviewQueue(ctx.Request.Context(), f)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, resp, "")
}

// GetApplication godoc
// @Summary Application detail for staff
// @Description Includes the student, the scholarship, the student's other applications and the actions allowed for the caller
// @Tags review
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} dto.APIResponse{data=dto.StaffApplicationResponse} "Application"
// @Failure 404 {object} dto.ErrorResponse "Application not found"
// @Security BearerAuth
// @Router /review/applications/{id} [get]
func (c *ReviewController) GetApplication(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.reviewService.GetForStaff(ctx.Request.Context(), id, actor)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, resp, "")
}

// AssignToMe godoc
// @Summary Start reviewing an application
// @Description Moves a pending application to under_review and records the caller as reviewer
// @Tags review
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} dto.APIResponse{data=dto.TransitionResponse} "Application assigned"
// @Failure 409 {object} dto.ErrorResponse "Invalid transition"
// @Security BearerAuth
// @Router /review/applications/{id}/assign [post]
func (c *ReviewController) AssignToMe(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.reviewService.AssignToMe(ctx.Request.Context(), id, actor)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, resp, "Application assigned to you")
}

// Recommend godoc
// @Summary Record the OSAS recommendation
// @Description approve and reject forward the application to the admin. request_info sends it back to the student.
// @Tags review
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param request body dto.RecommendationRequest true "Recommendation"
// @Success 200 {object} dto.APIResponse{data=dto.TransitionResponse} "Recommendation recorded"
// @Failure 409 {object} dto.ErrorResponse "Invalid transition or review locked"
// @Security BearerAuth
// @Router /review/applications/{id}/recommendation [post]
func (c *ReviewController) Recommend(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.RecommendationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindError(ctx, err)
		return
	}
	action, err := workflow.ParseRecommendation(req.Action)
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("action", "action must be approve, reject or request_info"))
		return
	}

	resp, err := c.reviewService.Recommend(ctx.Request.Context(), id, actor, action, req.Comments)
	if err != nil {
		c.logger.Warn().Err(err).Int64("applicationID", id).Int64("reviewerID", actor.ID).Msg("Recommendation rejected")
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, resp, "Recommendation recorded")
}
