package dto

import (
	"time"

	"github.com/yigit/scholarsphere/internal/app/models"
)

// ScholarshipRequest is the create and update payload
type ScholarshipRequest struct {
	Title                  string    `json:"title" binding:"required,max=200" example:"Academic Excellence Grant"`
	Description            string    `json:"description" binding:"required"`
	EligibilityCriteria    string    `json:"eligibilityCriteria" binding:"required"`
	AwardAmount            float64   `json:"awardAmount" binding:"required,gt=0" example:"25000"`
	Deadline               time.Time `json:"deadline" binding:"required" example:"2026-12-01T17:00:00Z"`
	AvailableSlots         int       `json:"availableSlots" binding:"required,min=1" example:"10"`
	IsActive               *bool     `json:"isActive,omitempty"`
	DocumentRequirementIDs []int64   `json:"documentRequirementIds,omitempty"`
}

// ScholarshipListQuery holds list filters taken from the query string
type ScholarshipListQuery struct {
	Search    string   `form:"search"`
	MinAmount *float64 `form:"minAmount" binding:"omitempty,gte=0"`
	MaxAmount *float64 `form:"maxAmount" binding:"omitempty,gte=0"`
	Status    string   `form:"status" binding:"omitempty,oneof=open closed closing_soon"`
}

// RequirementRequest adds a categorised scholarship requirement
type RequirementRequest struct {
	Category    models.RequirementCategory `json:"category" binding:"required,oneof=academic documentation eligibility additional" example:"academic"`
	Description string                     `json:"description" binding:"required,max=500"`
	Notes       *string                    `json:"notes,omitempty"`
	Order       int                        `json:"order" binding:"min=0"`
}

// DocumentRequirementsRequest replaces a scholarship's document requirements
type DocumentRequirementsRequest struct {
	RequirementIDs []int64 `json:"requirementIds" binding:"required"`
}

// DocumentRequirementRequest adds an entry to the catalogue
type DocumentRequirementRequest struct {
	DocumentType    models.DocumentType `json:"documentType" binding:"required" example:"transcript"`
	CustomName      *string             `json:"customName,omitempty" binding:"omitempty,max=100"`
	Description     string              `json:"description"`
	IsRequired      bool                `json:"isRequired"`
	AcceptedFormats string              `json:"acceptedFormats,omitempty" example:"PDF, JPG"`
	MaxFileSizeMB   int                 `json:"maxFileSizeMb,omitempty" binding:"omitempty,min=1,max=50"`
}

// DocumentRequirementResponse adds the display name to a catalogue entry
type DocumentRequirementResponse struct {
	*models.DocumentRequirement
	DisplayName string `json:"displayName" example:"Transcript of Records"`
}

// NewDocumentRequirementResponses maps catalogue entries to responses
func NewDocumentRequirementResponses(reqs []*models.DocumentRequirement) []DocumentRequirementResponse {
	out := make([]DocumentRequirementResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, DocumentRequirementResponse{DocumentRequirement: r, DisplayName: r.DisplayName()})
	}
	return out
}

// ScholarshipResponse is a scholarship with derived slot and deadline fields
type ScholarshipResponse struct {
	*models.Scholarship
	RemainingSlots    int  `json:"remainingSlots" example:"3"`
	DaysUntilDeadline int  `json:"daysUntilDeadline" example:"12"`
	IsOpen            bool `json:"isOpen" example:"true"`
}

// NewScholarshipResponse derives display fields at now
func NewScholarshipResponse(s *models.Scholarship, now time.Time) ScholarshipResponse {
	return ScholarshipResponse{
		Scholarship:       s,
		RemainingSlots:    s.RemainingSlots(),
		DaysUntilDeadline: s.DaysUntilDeadline(now),
		IsOpen:            s.IsOpen(now),
	}
}

// ScholarshipDetailResponse adds requirements to a scholarship
type ScholarshipDetailResponse struct {
	ScholarshipResponse
	Requirements         map[models.RequirementCategory][]*models.ScholarshipRequirement `json:"requirements"`
	DocumentRequirements []DocumentRequirementResponse                                   `json:"documentRequirements"`
	HasApplied           bool                                                            `json:"hasApplied"`
}

// ScholarshipAnalyticsResponse summarises applications for one scholarship
type ScholarshipAnalyticsResponse struct {
	ScholarshipID     int64        `json:"scholarshipId"`
	Title             string       `json:"title"`
	TotalApplications int64        `json:"totalApplications"`
	StatusCounts      StatusCounts `json:"statusCounts"`
	AvailableSlots    int          `json:"availableSlots"`
	RemainingSlots    int          `json:"remainingSlots"`
}
