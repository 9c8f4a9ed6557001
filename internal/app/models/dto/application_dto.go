package dto

import (
	"github.com/yigit/scholarsphere/internal/app/models"
	"github.com/yigit/scholarsphere/internal/app/workflow"
)

// ApplicationRequest carries the student-editable application fields.
// Bound from multipart form on submit and from JSON on update.
type ApplicationRequest struct {
	PersonalStatement string  `json:"personalStatement" form:"personalStatement" binding:"required"`
	GPA               float64 `json:"gpa" form:"gpa" binding:"gpa" example:"3.50"`
	AdditionalInfo    *string `json:"additionalInfo,omitempty" form:"additionalInfo"`
}

// MyApplicationsQuery filters a student's own applications
type MyApplicationsQuery struct {
	Status string `form:"status"`
}

// ApplicationResponse is an application with its status label and documents
type ApplicationResponse struct {
	*models.Application
	StatusLabel string                        `json:"statusLabel" example:"Pending Review"`
	CanEdit     bool                          `json:"canEdit"`
	Documents   []*models.ApplicationDocument `json:"documents,omitempty"`
}

// NewApplicationResponse maps an application to its API shape
func NewApplicationResponse(a *models.Application, docs []*models.ApplicationDocument) ApplicationResponse {
	return ApplicationResponse{
		Application: a,
		StatusLabel: a.Status.Label(),
		CanEdit:     workflow.CanStudentEdit(a.Status),
		Documents:   docs,
	}
}

// NewApplicationResponses maps a page of applications without documents
func NewApplicationResponses(apps []*models.Application) []ApplicationResponse {
	out := make([]ApplicationResponse, 0, len(apps))
	for _, a := range apps {
		out = append(out, NewApplicationResponse(a, nil))
	}
	return out
}

// StaffApplicationResponse is the review detail view
type StaffApplicationResponse struct {
	ApplicationResponse
	Student           *UserResponse         `json:"student"`
	Scholarship       *ScholarshipResponse  `json:"scholarship,omitempty"`
	OtherApplications []ApplicationResponse `json:"otherApplications"`
	AllowedActions    []string              `json:"allowedActions"`
}

// ApplicationListResponse is a page of applications with per-status counts
type ApplicationListResponse struct {
	Items        []ApplicationResponse `json:"items"`
	Pagination   PaginationInfo        `json:"pagination"`
	StatusCounts StatusCounts          `json:"statusCounts"`
}
