package dto

// OverviewResponse is the system-wide admin overview
type OverviewResponse struct {
	UsersByRole          map[string]int64 `json:"usersByRole"`
	TotalScholarships    int64            `json:"totalScholarships"`
	ActiveScholarships   int64            `json:"activeScholarships"`
	ApplicationsByStatus StatusCounts     `json:"applicationsByStatus"`
	TotalApplications    int64            `json:"totalApplications"`
	TotalNotifications   int64            `json:"totalNotifications"`
	UnreadNotifications  int64            `json:"unreadNotifications"`
}

// ScholarshipPerformance is one row of the scholarship performance report
type ScholarshipPerformance struct {
	ScholarshipID     int64   `json:"scholarshipId"`
	Title             string  `json:"title"`
	TotalApplications int64   `json:"totalApplications"`
	Approved          int64   `json:"approved"`
	Pending           int64   `json:"pending"`
	SuccessRate       float64 `json:"successRate" example:"33.3"`
	AvailableSlots    int     `json:"availableSlots"`
	RemainingSlots    int     `json:"remainingSlots"`
}

// DashboardResponse holds role-specific dashboard figures
type DashboardResponse struct {
	Role                string       `json:"role" example:"STUDENT"`
	StatusCounts        StatusCounts `json:"statusCounts"`
	TotalApplications   int64        `json:"totalApplications"`
	SuccessRate         float64      `json:"successRate"`
	OpenScholarships    int64        `json:"openScholarships"`
	UnreadNotifications int64        `json:"unreadNotifications"`
	AwaitingAction      int64        `json:"awaitingAction"`
}
