package dto

// RecommendationRequest records an OSAS recommendation or info request
type RecommendationRequest struct {
	Action   string `json:"action" binding:"required,oneof=approve reject request_info" example:"approve"`
	Comments string `json:"comments" binding:"max=2000"`
}

// DecisionRequest records an admin final decision
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required,decision" example:"approve"`
	Comments string `json:"comments" binding:"max=2000"`
}

// ReviewQueueQuery filters the staff review queue
type ReviewQueueQuery struct {
	Status        string `form:"status"`
	ScholarshipID *int64 `form:"scholarshipId" binding:"omitempty,min=1"`
	Search        string `form:"search"`
	Reviewer      string `form:"reviewer" binding:"omitempty,oneof=me unassigned"`
}

// PendingApprovalsQuery filters applications awaiting an admin decision
type PendingApprovalsQuery struct {
	Recommendation string `form:"recommendation" binding:"omitempty,oneof=approved rejected"`
	ScholarshipID  *int64 `form:"scholarshipId" binding:"omitempty,min=1"`
	Search         string `form:"search"`
}

// DecisionHistoryQuery filters decided applications
type DecisionHistoryQuery struct {
	Decision string `form:"decision" binding:"omitempty,oneof=approved rejected"`
	Mine     bool   `form:"mine"`
}

// TransitionResponse reports the status an application moved to
type TransitionResponse struct {
	ApplicationID int64  `json:"applicationId"`
	From          string `json:"from" example:"under_review"`
	To            string `json:"to" example:"osas_approved"`
	StatusLabel   string `json:"statusLabel" example:"Recommended for Approval"`
}

// WorkflowStatusResponse counts applications per status
type WorkflowStatusResponse struct {
	StatusCounts     StatusCounts `json:"statusCounts"`
	PendingApprovals int64        `json:"pendingApprovals"`
	Total            int64        `json:"total"`
}
