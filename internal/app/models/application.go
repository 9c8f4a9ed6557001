package models

import (
	"time"

	"github.com/yigit/scholarsphere/internal/app/workflow"
)

// Application defines the 'applications' table
type Application struct {
	ID                    int64           `json:"id" db:"id"`
	StudentID             int64           `json:"studentId" db:"student_id"`
	ScholarshipID         int64           `json:"scholarshipId" db:"scholarship_id"`
	Status                workflow.Status `json:"status" db:"status" example:"pending"`
	PersonalStatement     string          `json:"personalStatement" db:"personal_statement"`
	GPA                   float64         `json:"gpa" db:"gpa" example:"3.50"`
	AdditionalInfo        *string         `json:"additionalInfo,omitempty" db:"additional_info"`
	SubmittedAt           time.Time       `json:"submittedAt" db:"submitted_at"`
	UpdatedAt             time.Time       `json:"updatedAt" db:"updated_at"`
	ReviewedBy            *int64          `json:"reviewedBy,omitempty" db:"reviewed_by"`
	ReviewedAt            *time.Time      `json:"reviewedAt,omitempty" db:"reviewed_at"`
	ReviewerComments      *string         `json:"reviewerComments,omitempty" db:"reviewer_comments"`
	FinalDecisionBy       *int64          `json:"finalDecisionBy,omitempty" db:"final_decision_by"`
	FinalDecisionAt       *time.Time      `json:"finalDecisionAt,omitempty" db:"final_decision_at"`
	FinalDecisionComments *string         `json:"finalDecisionComments,omitempty" db:"final_decision_comments"`

	// Joined display fields
	StudentName      string `json:"studentName,omitempty"`
	StudentEmail     string `json:"studentEmail,omitempty"`
	ScholarshipTitle string `json:"scholarshipTitle,omitempty"`
	ReviewerName     string `json:"reviewerName,omitempty"`
	DeciderName      string `json:"finalDecisionByName,omitempty"`
}

// StatusChange is a single conditional status write
type StatusChange struct {
	ApplicationID int64
	From          workflow.Status
	To            workflow.Status
	ActorID       int64
	Comments      *string
	At            time.Time
	// Final writes the admin decision columns instead of the OSAS review columns
	Final bool
	// AssignOnly records the reviewer without a review timestamp
	AssignOnly bool
}

// ApplicationFilter narrows application listings
type ApplicationFilter struct {
	StudentID     *int64
	ScholarshipID *int64
	Statuses      []workflow.Status
	Search        string
	DecidedBy     *int64
	FinalOnly     bool
	ReviewedBy    *int64
	Unassigned    bool
	Offset        uint64
	Limit         int
}
