package controllers

import (
	"context"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/scholarsphere/internal/app/models"
	"github.com/yigit/scholarsphere/internal/app/models/dto"
	"github.com/yigit/scholarsphere/internal/app/services"
	"github.com/yigit/scholarsphere/internal/middleware"
	"github.com/yigit/scholarsphere/internal/pkg/helpers"
)

// ApplicationService is what ApplicationController needs from the application service
type ApplicationService interface {
	Submit(ctx context.Context, student services.Actor, scholarshipID int64, req *dto.ApplicationRequest, files map[int64]*multipart.FileHeader) (*dto.ApplicationResponse, error)
	Update(ctx context.Context, student services.Actor, applicationID int64, req *dto.ApplicationRequest) (*dto.ApplicationResponse, error)
	UploadDocument(ctx context.Context, student services.Actor, applicationID int64, requirementID *int64, fh *multipart.FileHeader) (*models.ApplicationDocument, error)
	DeleteDocument(ctx context.Context, student services.Actor, applicationID, documentID int64) error
	GetForStudent(ctx context.Context, student services.Actor, applicationID int64) (*dto.ApplicationResponse, error)
	ListMine(ctx context.Context, student services.Actor, status string, page, size int) (*dto.ApplicationListResponse, error)
	DocumentPath(ctx context.Context, viewer services.Actor, applicationID, documentID int64) (string, *models.ApplicationDocument, error)
}

// ApplicationController handles the student side of applications
type ApplicationController struct {
	applicationService ApplicationService
	maxUploadBytes     int64
	logger             zerolog.Logger
}

// NewApplicationController creates a new ApplicationController. maxUploadMB bounds the whole multipart body.
func NewApplicationController(applicationService ApplicationService, maxUploadMB int, logger zerolog.Logger) *ApplicationController {
	return &ApplicationController{
		applicationService: applicationService,
		maxUploadBytes:     int64(maxUploadMB) << 20,
		logger:             logger,
	}
}

// documentFiles collects document_<requirementID> file fields from a multipart form.
// A malformed field name is returned as bad.
func documentFiles(form *multipart.Form) (files map[int64]*multipart.FileHeader, bad string) {
	files = make(map[int64]*multipart.FileHeader)
	if form == nil {
		return files, ""
	}
	for field, headers := range form.File {
		if !strings.HasPrefix(field, services.DocumentFieldPrefix) || len(headers) == 0 {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(field, services.DocumentFieldPrefix), 10, 64)
		if err != nil || id <= 0 {
			return nil, field
		}
		files[id] = headers[0]
	}
	return files, ""
}

func (c *ApplicationController) limitBody(ctx *gin.Context) {
	if c.maxUploadBytes > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxUploadBytes)
	}
}

// SubmitApplication godoc
// @Summary Apply for a scholarship
// @Description Multipart form with personalStatement, gpa, optional additionalInfo and one file per document requirement named document_<requirementId>
// @Tags applications
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Scholarship ID"
// @Param personalStatement formData string true "Personal statement"
// @Param gpa formData number true "GPA between 0.00 and 4.00"
// @Param additionalInfo formData string false "Additional information"
// @Success 201 {object} dto.APIResponse{data=dto.ApplicationResponse} "Application submitted"
// @Failure 400 {object} dto.ErrorResponse "Validation error or missing document"
// @Failure 409 {object} dto.ErrorResponse "Already applied or no slots left"
// @Security BearerAuth
// @Router /scholarships/{id}/applications [post]
func (c *ApplicationController) SubmitApplication(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	scholarshipID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	c.limitBody(ctx)

	var req dto.ApplicationRequest
	if err := ctx.ShouldBind(&req); err != nil {
		middleware.BindError(ctx, err)
		return
	}
	form, err := ctx.MultipartForm()
	if err != nil && err != http.ErrNotMultipart {
		c.logger.Warn().Err(err).Msg("Could not read multipart form")
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid or too large upload")
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return
	}
	files, bad := documentFiles(form)
	if bad != "" {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid document field "+bad).WithField(bad)
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return
	}

	resp, err := c.applicationService.Submit(ctx.Request.Context(), actor, scholarshipID, &req, files)
	if err != nil {
		c.logger.Warn().Err(err).Int64("scholarshipID", scholarshipID).Int64("studentID", actor.ID).Msg("Application rejected")
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondCreated(ctx, resp, "Application submitted")
}

// ListMyApplications godoc
// @Summary List my applications
// @Tags applications
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10)"
// @Success 200 {object} dto.APIResponse{data=dto.ApplicationListResponse} "Applications"
// @Security BearerAuth
// @Router /applications/mine [get]
func (c *ApplicationController) ListMyApplications(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var q dto.MyApplicationsQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		middleware.BindError(ctx, err)
		return
	}
	page, size := helpers.ParsePaginationParams(ctx)
	resp, err := c.applicationService.ListMine(ctx.Request.Context(), actor, q.Status, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, resp, "")
}

// GetMyApplication godoc
// @Summary Get one of my applications
// @Tags applications
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} dto.APIResponse{data=dto.ApplicationResponse} "Application"
// @Failure 404 {object} dto.ErrorResponse "Application not found"
// @Security BearerAuth
// @Router /applications/{id} [get]
func (c *ApplicationController) GetMyApplication(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.applicationService.GetForStudent(ctx.Request.Context(), actor, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, resp, "")
}

// UpdateMyApplication godoc
// @Summary Edit my application
// @Description Allowed only while the application is pending or waiting for additional information
// @Tags applications
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param request body dto.ApplicationRequest true "Application fields"
// @Success 200 {object} dto.APIResponse{data=dto.ApplicationResponse} "Application updated"
// @Failure 409 {object} dto.ErrorResponse "Application can no longer be edited"
// @Security BearerAuth
// @Router /applications/{id} [put]
func (c *ApplicationController) UpdateMyApplication(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.ApplicationRequest
	if err := ctx.ShouldBind(&req); err != nil {
		middleware.BindError(ctx, err)
		return
	}
	resp, err := c.applicationService.Update(ctx.Request.Context(), actor, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, resp, "Application updated")
}

// UploadDocument godoc
// @Summary Upload a document to my application
// @Tags applications
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Application ID"
// @Param file formData file true "Document"
// @Param requirementId formData int false "Document requirement the file satisfies"
// @Success 201 {object} dto.APIResponse{data=models.ApplicationDocument} "Document uploaded"
// @Failure 400 {object} dto.ErrorResponse "Invalid file"
// @Security BearerAuth
// @Router /applications/{id}/documents [post]
func (c *ApplicationController) UploadDocument(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	c.limitBody(ctx)

	fh, err := ctx.FormFile("file")
	if err != nil {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "file is required").WithField("file")
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return
	}
	var requirementID *int64
	if raw := ctx.PostForm("requirementId"); raw != "" {
		rid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || rid <= 0 {
			detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid requirementId").WithField("requirementId")
			ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
			return
		}
		requirementID = &rid
	}

	doc, err := c.applicationService.UploadDocument(ctx.Request.Context(), actor, id, requirementID, fh)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondCreated(ctx, doc, "Document uploaded")
}

// DeleteDocument godoc
// @Summary Remove a document from my application
// @Tags applications
// @Produce json
// @Param id path int true "Application ID"
// @Param docId path int true "Document ID"
// @Success 200 {object} dto.APIResponse "Document removed"
// @Security BearerAuth
// @Router /applications/{id}/documents/{docId} [delete]
func (c *ApplicationController) DeleteDocument(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	docID, ok := parseIDParam(ctx, "docId")
	if !ok {
		return
	}
	if err := c.applicationService.DeleteDocument(ctx.Request.Context(), actor, id, docID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, nil, "Document removed")
}

// DownloadDocument godoc
// @Summary Download an application document
// @Description Students can download their own documents, staff any document
// @Tags applications
// @Produce octet-stream
// @Param id path int true "Application ID"
// @Param docId path int true "Document ID"
// @Success 200 {file} file "Document"
// @Failure 404 {object} dto.ErrorResponse "Document not found"
// @Security BearerAuth
// @Router /applications/{id}/documents/{docId} [get]
func (c *ApplicationController) DownloadDocument(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	docID, ok := parseIDParam(ctx, "docId")
	if !ok {
		return
	}
	path, doc, err := c.applicationService.DocumentPath(ctx.Request.Context(), actor, id, docID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if doc.MimeType != "" {
		ctx.Header("Content-Type", doc.MimeType)
	}
	ctx.FileAttachment(path, doc.Name)
}
