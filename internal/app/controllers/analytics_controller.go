package controllers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/yigit/scholarsphere/internal/app/models/dto"
	"github.com/yigit/scholarsphere/internal/app/services"
	"github.com/yigit/scholarsphere/internal/middleware"
)

// AnalyticsService is what AnalyticsController needs from the analytics service
type AnalyticsService interface {
	Overview(ctx context.Context) (*dto.OverviewResponse, error)
	ScholarshipPerformance(ctx context.Context) ([]dto.ScholarshipPerformance, error)
	Dashboard(ctx context.Context, viewer services.Actor) (*dto.DashboardResponse, error)
}

// AnalyticsController serves reporting endpoints
type AnalyticsController struct {
	analyticsService AnalyticsService
}

// NewAnalyticsController creates a new AnalyticsController
func NewAnalyticsController(analyticsService AnalyticsService) *AnalyticsController {
	return &AnalyticsController{analyticsService: analyticsService}
}

// Overview godoc
// @Summary System overview
// @Tags analytics
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.OverviewResponse} "Overview"
// @Security BearerAuth
// @Router /analytics/overview [get]
func (c *AnalyticsController) Overview(ctx *gin.Context) {
	resp, err := c.analyticsService.Overview(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, resp, "")
}

// ScholarshipPerformance godoc
// @Summary Scholarship performance report
// @Tags analytics
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]dto.ScholarshipPerformance} "Report"
// @Security BearerAuth
// @Router /analytics/scholarships [get]
func (c *AnalyticsController) ScholarshipPerformance(ctx *gin.Context) {
	resp, err := c.analyticsService.ScholarshipPerformance(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, resp, "")
}

// Dashboard godoc
// @Summary Dashboard figures for the caller's role
// @Tags analytics
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.DashboardResponse} "Dashboard"
// @Security BearerAuth
// @Router /analytics/dashboard [get]
func (c *AnalyticsController) Dashboard(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	resp, err := c.analyticsService.Dashboard(ctx.Request.Context(), actor)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, resp, "")
}
