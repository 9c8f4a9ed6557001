package controllers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/scholarsphere/internal/app/models"
	"github.com/yigit/scholarsphere/internal/app/models/dto"
	"github.com/yigit/scholarsphere/internal/app/services"
	"github.com/yigit/scholarsphere/internal/middleware"
	"github.com/yigit/scholarsphere/internal/pkg/helpers"
)

// ScholarshipService is what ScholarshipController needs from the scholarship service
type ScholarshipService interface {
	Create(ctx context.Context, admin services.Actor, req *dto.ScholarshipRequest) (*dto.ScholarshipDetailResponse, error)
	Update(ctx context.Context, id int64, admin services.Actor, req *dto.ScholarshipRequest) (*dto.ScholarshipDetailResponse, error)
	ToggleActive(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64, viewer services.Actor) (*dto.ScholarshipDetailResponse, error)
	List(ctx context.Context, viewer services.Actor, q dto.ScholarshipListQuery, page, size int) (*dto.PaginatedResponse, error)
	AddRequirement(ctx context.Context, scholarshipID int64, req *dto.RequirementRequest) (*models.ScholarshipRequirement, error)
	DeleteRequirement(ctx context.Context, scholarshipID, requirementID int64) error
	SetDocumentRequirements(ctx context.Context, scholarshipID int64, ids []int64) ([]dto.DocumentRequirementResponse, error)
	ListDocumentCatalogue(ctx context.Context) ([]dto.DocumentRequirementResponse, error)
	CreateDocumentRequirement(ctx context.Context, req *dto.DocumentRequirementRequest) (*dto.DocumentRequirementResponse, error)
	Analytics(ctx context.Context, id int64) (*dto.ScholarshipAnalyticsResponse, error)
}

// ScholarshipController handles scholarship and document catalogue endpoints
type ScholarshipController struct {
	scholarshipService ScholarshipService
	logger             zerolog.Logger
}

// NewScholarshipController creates a new ScholarshipController
func NewScholarshipController(scholarshipService ScholarshipService, logger zerolog.Logger) *ScholarshipController {
	return &ScholarshipController{
		scholarshipService: scholarshipService,
		logger:             logger,
	}
}

// ListScholarships godoc
// @Summary List scholarships
// @Description Lists scholarships with search, amount and deadline-state filters. Students only see active scholarships.
// @Tags scholarships
// @Produce json
// @Param search query string false "Search title, description and eligibility"
// @Param minAmount query number false "Minimum award amount"
// @Param maxAmount query number false "Maximum award amount"
// @Param status query string false "open, closed or closing_soon"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]dto.ScholarshipResponse}} "Scholarships"
// @Failure 400 {object} dto.ErrorResponse "Invalid filter"
// @Security BearerAuth
// @Router /scholarships [get]
func (c *ScholarshipController) ListScholarships(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var q dto.ScholarshipListQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		middleware.BindError(ctx, err)
		return
	}
	page, size := helpers.ParsePaginationParams(ctx)

	resp, err := c.scholarshipService.List(ctx.Request.Context(), actor, q, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, resp, "")
}

// GetScholarship godoc
// @Summary Get scholarship
// @Description Returns a scholarship with its grouped requirements and document requirements
// @Tags scholarships
// @Produce json
// @Param id path int true "Scholarship ID"
// @Success 200 {object} dto.APIResponse{data=dto.ScholarshipDetailResponse} "Scholarship"
// @Failure 404 {object} dto.ErrorResponse "Scholarship not found"
// @Security BearerAuth
// @Router /scholarships/{id} [get]
func (c *ScholarshipController) GetScholarship(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.scholarshipService.Get(ctx.Request.Context(), id, actor)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, resp, "")
}

// CreateScholarship godoc
// @Summary Create scholarship
// @Tags scholarships
// @Accept json
// @Produce json
// @Param request body dto.ScholarshipRequest true "Scholarship"
// @Success 201 {object} dto.APIResponse{data=dto.ScholarshipDetailResponse} "Scholarship created"
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Failure 403 {object} dto.ErrorResponse "Admins only"
// @Security BearerAuth
// @Router /scholarships [post]
func (c *ScholarshipController) CreateScholarship(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req dto.ScholarshipRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindError(ctx, err)
		return
	}
	resp, err := c.scholarshipService.Create(ctx.Request.Context(), actor, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondCreated(ctx, resp, "Scholarship created")
}

// UpdateScholarship godoc
// @Summary Update scholarship
// @Description Award amount and deadline are fixed once applications exist, and slots may only be raised
// @Tags scholarships
// @Accept json
// @Produce json
// @Param id path int true "Scholarship ID"
// @Param request body dto.ScholarshipRequest true "Scholarship"
// @Success 200 {object} dto.APIResponse{data=dto.ScholarshipDetailResponse} "Scholarship updated"
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Failure 409 {object} dto.ErrorResponse "Locked fields changed"
// @Security BearerAuth
// @Router /scholarships/{id} [put]
func (c *ScholarshipController) UpdateScholarship(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.ScholarshipRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindError(ctx, err)
		return
	}
	resp, err := c.scholarshipService.Update(ctx.Request.Context(), id, actor, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, resp, "Scholarship updated")
}

// ToggleActive godoc
// @Summary Toggle scholarship active flag
// @Tags scholarships
// @Produce json
// @Param id path int true "Scholarship ID"
// @Success 200 {object} dto.APIResponse "New active flag"
// @Security BearerAuth
// @Router /scholarships/{id}/toggle-active [post]
func (c *ScholarshipController) ToggleActive(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	active, err := c.scholarshipService.ToggleActive(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	msg := "Scholarship deactivated"
	if active {
		msg = "Scholarship activated"
	}
	respondOK(ctx, gin.H{"id": id, "isActive": active}, msg)
}

// DeleteScholarship godoc
// @Summary Delete scholarship
// @Description Only scholarships without applications can be deleted
// @Tags scholarships
// @Produce json
// @Param id path int true "Scholarship ID"
// @Success 200 {object} dto.APIResponse "Scholarship deleted"
// @Failure 409 {object} dto.ErrorResponse "Scholarship has applications"
// @Security BearerAuth
// @Router /scholarships/{id} [delete]
func (c *ScholarshipController) DeleteScholarship(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.scholarshipService.Delete(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, nil, "Scholarship deleted")
}

// AddRequirement godoc
// @Summary Add scholarship requirement
// @Tags scholarships
// @Accept json
// @Produce json
// @Param id path int true "Scholarship ID"
// @Param request body dto.RequirementRequest true "Requirement"
// @Success 201 {object} dto.APIResponse{data=models.ScholarshipRequirement} "Requirement added"
// @Security BearerAuth
// @Router /scholarships/{id}/requirements [post]
func (c *ScholarshipController) AddRequirement(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.RequirementRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindError(ctx, err)
		return
	}
	r, err := c.scholarshipService.AddRequirement(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondCreated(ctx, r, "Requirement added")
}

// DeleteRequirement godoc
// @Summary Remove scholarship requirement
// @Tags scholarships
// @Produce json
// @Param id path int true "Scholarship ID"
// @Param reqId path int true "Requirement ID"
// @Success 200 {object} dto.APIResponse "Requirement removed"
// @Security BearerAuth
// @Router /scholarships/{id}/requirements/{reqId} [delete]
func (c *ScholarshipController) DeleteRequirement(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	reqID, ok := parseIDParam(ctx, "reqId")
	if !ok {
		return
	}
	if err := c.scholarshipService.DeleteRequirement(ctx.Request.Context(), id, reqID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, nil, "Requirement removed")
}

// SetDocumentRequirements godoc
// @Summary Replace document requirements
// @Tags scholarships
// @Accept json
// @Produce json
// @Param id path int true "Scholarship ID"
// @Param request body dto.DocumentRequirementsRequest true "Catalogue IDs"
// @Success 200 {object} dto.APIResponse{data=[]dto.DocumentRequirementResponse} "Document requirements"
// @Security BearerAuth
// @Router /scholarships/{id}/document-requirements [put]
func (c *ScholarshipController) SetDocumentRequirements(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.DocumentRequirementsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindError(ctx, err)
		return
	}
	resp, err := c.scholarshipService.SetDocumentRequirements(ctx.Request.Context(), id, req.RequirementIDs)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, resp, "Document requirements updated")
}

// ScholarshipAnalytics godoc
// @Summary Scholarship analytics
// @Tags scholarships
// @Produce json
// @Param id path int true "Scholarship ID"
// @Success 200 {object} dto.APIResponse{data=dto.ScholarshipAnalyticsResponse} "Per-status counts"
// @Security BearerAuth
// @Router /scholarships/{id}/analytics [get]
func (c *ScholarshipController) ScholarshipAnalytics(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.scholarshipService.Analytics(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, resp, "")
}

// ListDocumentCatalogue godoc
// @Summary List document requirement catalogue
// @Tags document-requirements
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]dto.DocumentRequirementResponse} "Catalogue"
// @Security BearerAuth
// @Router /document-requirements [get]
func (c *ScholarshipController) ListDocumentCatalogue(ctx *gin.Context) {
	resp, err := c.scholarshipService.ListDocumentCatalogue(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, resp, "")
}

// CreateDocumentRequirement godoc
// @Summary Add a catalogue document requirement
// @Tags document-requirements
// @Accept json
// @Produce json
// @Param request body dto.DocumentRequirementRequest true "Document requirement"
// @Success 201 {object} dto.APIResponse{data=dto.DocumentRequirementResponse} "Created"
// @Failure 409 {object} dto.ErrorResponse "Already exists"
// @Security BearerAuth
// @Router /document-requirements [post]
func (c *ScholarshipController) CreateDocumentRequirement(ctx *gin.Context) {
	var req dto.DocumentRequirementRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindError(ctx, err)
		return
	}
	resp, err := c.scholarshipService.CreateDocumentRequirement(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondCreated(ctx, resp, "Document requirement created")
}
