package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/scholarsphere/internal/app/models/dto"
	"github.com/yigit/scholarsphere/internal/app/services"
	"github.com/yigit/scholarsphere/internal/app/workflow"
	"github.com/yigit/scholarsphere/internal/middleware"
	"github.com/yigit/scholarsphere/internal/pkg/apperrors"
	"github.com/yigit/scholarsphere/internal/pkg/helpers"
)

// PendingApprovals godoc
// @Summary Applications awaiting the final decision
// @Tags approvals
// @Produce json
// @Param recommendation query string false "approved or rejected"
// @Param scholarshipId query int false "Scholarship ID"
// @Param search query string false "Student name, e-mail or student number"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10)"
// @Success 200 {object} dto.APIResponse{data=dto.ApplicationListResponse} "Applications"
// @Security BearerAuth
// @Router /approvals/pending [get]
func (c *ReviewController) PendingApprovals(ctx *gin.Context) {
	var q dto.PendingApprovalsQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		middleware.BindError(ctx, err)
		return
	}
	page, size := helpers.ParsePaginationParams(ctx)

	f := services.ReviewFilter{ScholarshipID: q.ScholarshipID, Search: q.Search, Page: page, Size: size}
	switch q.Recommendation {
	case "approved":
		f.Statuses = []workflow.Status{workflow.StatusOSASApproved}
	case "rejected":
		f.Statuses = []workflow.Status{workflow.StatusOSASRejected}
	}

	resp, err := c.reviewService.PendingApprovals(ctx.Request.Context(), f)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, resp, "")
}

// DecisionHistory godoc
// @Summary Final decision history
// @Tags approvals
// @Produce json
// @Param decision query string false "approved or rejected"
// @Param mine query bool false "Only decisions made by the caller"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10)"
// @Success 200 {object} dto.APIResponse{data=dto.ApplicationListResponse} "Applications"
// @Security BearerAuth
// @Router /approvals/history [get]
func (c *ReviewController) DecisionHistory(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var q dto.DecisionHistoryQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		middleware.BindError(ctx, err)
		return
	}
	page, size := helpers.ParsePaginationParams(ctx)

	f := services.ReviewFilter{Page: page, Size: size}
	if q.Decision != "" {
		f.Statuses = []workflow.Status{workflow.Status(q.Decision)}
	}
	if q.Mine {
		f.DecidedBy = &actor.ID
	}

	resp, err := c.reviewService.DecisionHistory(ctx.Request.Context(), f)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, resp, "")
}

// FinalDecision godoc
// @Summary Record the final decision
// @Description Approving counts against the scholarship's slots and fails with WF_004 once they are filled
// @Tags approvals
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param request body dto.DecisionRequest true "Decision"
// @Success 200 {object} dto.APIResponse{data=dto.TransitionResponse} "Decision recorded"
// @Failure 409 {object} dto.ErrorResponse "Invalid transition, terminal state or no slots left"
// @Security BearerAuth
// @Router /approvals/applications/{id}/decision [post]
func (c *ReviewController) FinalDecision(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.DecisionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindError(ctx, err)
		return
	}
	action, err := workflow.ParseDecision(req.Decision)
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("decision", "decision must be approve or reject"))
		return
	}

	resp, err := c.reviewService.FinalDecision(ctx.Request.Context(), id, actor, action, req.Comments)
	if err != nil {
		c.logger.Warn().Err(err).Int64("applicationID", id).Int64("adminID", actor.ID).Msg("Final decision rejected")
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, resp, "Decision recorded")
}
