// Package workflow holds the two-tier review state machine for scholarship applications.
// It performs no I/O.
package workflow

// Status is the review state of an application.
type Status string

const (
	StatusPending                Status = "pending"
	StatusUnderReview            Status = "under_review"
	StatusOSASApproved           Status = "osas_approved"
	StatusOSASRejected           Status = "osas_rejected"
	StatusAdditionalInfoRequired Status = "additional_info_required"
	StatusApproved               Status = "approved"
	StatusRejected               Status = "rejected"
)

var statusLabels = map[Status]string{
	StatusPending:                "Pending Review",
	StatusUnderReview:            "Under Review by OSAS",
	StatusOSASApproved:           "Recommended for Approval",
	StatusOSASRejected:           "Recommended for Rejection",
	StatusAdditionalInfoRequired: "Additional Information Required",
	StatusApproved:               "Approved",
	StatusRejected:               "Rejected",
}

// AllStatuses lists every status in workflow order.
func AllStatuses() []Status {
	return []Status{
		StatusPending,
		StatusUnderReview,
		StatusOSASApproved,
		StatusOSASRejected,
		StatusAdditionalInfoRequired,
		StatusApproved,
		StatusRejected,
	}
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

// IsTerminal reports whether s is a final admin decision.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// IsOSASDecided reports whether OSAS has recorded a recommendation on s.
func (s Status) IsOSASDecided() bool {
	return s == StatusOSASApproved || s == StatusOSASRejected
}

// Label is the human readable name of s.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// CanStudentEdit reports whether the owning student may still change the application.
func CanStudentEdit(s Status) bool {
	return s == StatusPending || s == StatusAdditionalInfoRequired
}

// CanOSASReview reports whether OSAS may still act on the application.
func CanOSASReview(s Status) bool {
	return s == StatusPending || s == StatusUnderReview || s == StatusAdditionalInfoRequired
}

// CanAdminDecide reports whether the application is waiting on an admin decision.
func CanAdminDecide(s Status) bool {
	return s.IsOSASDecided()
}

// ParseStatus converts a raw value to a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", ErrUnknownStatus
	}
	return s, nil
}
