package models

import (
	"math"
	"time"

	"github.com/yigit/scholarsphere/internal/app/workflow"
)

// Scholarship defines the 'scholarships' table
type Scholarship struct {
	ID                  int64     `json:"id" db:"id" example:"1"`
	Title               string    `json:"title" db:"title" example:"Academic Excellence Grant"`
	Description         string    `json:"description" db:"description"`
	EligibilityCriteria string    `json:"eligibilityCriteria" db:"eligibility_criteria"`
	AwardAmount         float64   `json:"awardAmount" db:"award_amount" example:"25000"`
	Deadline            time.Time `json:"deadline" db:"deadline"`
	AvailableSlots      int       `json:"availableSlots" db:"available_slots" example:"10"`
	IsActive            bool      `json:"isActive" db:"is_active" example:"true"`
	CreatedBy           int64     `json:"createdBy" db:"created_by"`
	CreatedAt           time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time `json:"updatedAt" db:"updated_at"`

	// Aggregates filled by list/detail queries
	ApplicationCount int `json:"applicationCount"`
	ApprovedCount    int `json:"approvedCount"`
}

// RemainingSlots returns the slots not yet taken by approved applications
func (s *Scholarship) RemainingSlots() int {
	return workflow.RemainingSlots(s.AvailableSlots, s.ApprovedCount)
}

// IsOpen reports whether students can still apply at now
func (s *Scholarship) IsOpen(now time.Time) bool {
	return s.IsActive && s.Deadline.After(now)
}

// DaysUntilDeadline rounds up partial days; zero once the deadline has passed
func (s *Scholarship) DaysUntilDeadline(now time.Time) int {
	if !s.Deadline.After(now) {
		return 0
	}
	return int(math.Ceil(s.Deadline.Sub(now).Hours() / 24))
}

// ScholarshipFilter narrows scholarship listings
type ScholarshipFilter struct {
	Search     string
	MinAmount  *float64
	MaxAmount  *float64
	State      string // open, closed, closing_soon
	ActiveOnly bool
	Now        time.Time
	Offset     uint64
	Limit      int
}

const (
	ScholarshipStateOpen        = "open"
	ScholarshipStateClosed      = "closed"
	ScholarshipStateClosingSoon = "closing_soon"
)

// ClosingSoonWindow bounds the closing_soon filter
const ClosingSoonWindow = 7 * 24 * time.Hour

// RequirementCategory groups scholarship requirements
type RequirementCategory string

const (
	RequirementAcademic      RequirementCategory = "academic"
	RequirementDocumentation RequirementCategory = "documentation"
	RequirementEligibility   RequirementCategory = "eligibility"
	RequirementAdditional    RequirementCategory = "additional"
)

// IsValid reports whether c is a known category
func (c RequirementCategory) IsValid() bool {
	switch c {
	case RequirementAcademic, RequirementDocumentation, RequirementEligibility, RequirementAdditional:
		return true
	}
	return false
}

// ScholarshipRequirement defines the 'scholarship_requirements' table
type ScholarshipRequirement struct {
	ID            int64               `json:"id" db:"id"`
	ScholarshipID int64               `json:"scholarshipId" db:"scholarship_id"`
	Category      RequirementCategory `json:"category" db:"category" example:"academic"`
	Description   string              `json:"description" db:"description" example:"GWA of 1.75 or better"`
	Notes         *string             `json:"notes,omitempty" db:"notes"`
	SortOrder     int                 `json:"order" db:"sort_order"`
	CreatedAt     time.Time           `json:"createdAt" db:"created_at"`
}
