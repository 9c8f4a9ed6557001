package services

import (
	"context"
	"time"

	"github.com/yigit/scholarsphere/internal/app/models"
	"github.com/yigit/scholarsphere/internal/app/workflow"
	"github.com/yigit/scholarsphere/internal/pkg/websocket"
)

// Services defined in this package:
// - AuthService: registration, login, token rotation and profiles
// - ScholarshipService: scholarships, their requirements and the document catalogue
// - ApplicationService: student submissions, edits and documents
// - ReviewService: the OSAS and admin review tiers
// - NotificationService: in-app notifications, push, e-mail and reminders
// - AnalyticsService: overview, performance and dashboard figures
//
// Each service depends on the narrow store interfaces below rather than on
// concrete repositories.

// UserStore is the user persistence used by the services
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, userID int64) error
	UpdateName(ctx context.Context, userID int64, firstName, lastName string) error
	CreateStudentProfile(ctx context.Context, p *models.StudentProfile) error
	UpdateStudentProfile(ctx context.Context, p *models.StudentProfile) error
	StudentNumberExists(ctx context.Context, number string) (bool, error)
}

// UserDirectory resolves notification recipients
type UserDirectory interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	ListActiveIDsByRole(ctx context.Context, role models.RoleType) ([]int64, error)
	ListStudentsWithoutApplication(ctx context.Context, scholarshipID int64) ([]int64, error)
}

// TokenStore persists refresh tokens
type TokenStore interface {
	CreateToken(ctx context.Context, token string, userID int64, expiryDate time.Time) error
	GetTokenByValue(ctx context.Context, token string) (int64, time.Time, error)
	RevokeToken(ctx context.Context, token string) error
	RevokeAllUserTokens(ctx context.Context, userID int64) error
}

// ScholarshipStore is the scholarship persistence used by the services
type ScholarshipStore interface {
	Create(ctx context.Context, s *models.Scholarship) (int64, error)
	Update(ctx context.Context, s *models.Scholarship) error
	GetByID(ctx context.Context, id int64) (*models.Scholarship, error)
	LockByID(ctx context.Context, id int64) (*models.Scholarship, error)
	List(ctx context.Context, f models.ScholarshipFilter) ([]*models.Scholarship, int64, error)
	ListClosingBetween(ctx context.Context, from, to time.Time) ([]*models.Scholarship, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	CountAll(ctx context.Context) (total, active int64, err error)
	AddRequirement(ctx context.Context, req *models.ScholarshipRequirement) (int64, error)
	DeleteRequirement(ctx context.Context, scholarshipID, requirementID int64) error
	ListRequirements(ctx context.Context, scholarshipID int64) ([]*models.ScholarshipRequirement, error)
	SetDocumentRequirements(ctx context.Context, scholarshipID int64, requirementIDs []int64) error
	ListDocumentRequirements(ctx context.Context, scholarshipID int64) ([]*models.DocumentRequirement, error)
}

// ApplicationStore is the application persistence used by the services
type ApplicationStore interface {
	Create(ctx context.Context, a *models.Application) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Application, error)
	UpdateContent(ctx context.Context, a *models.Application, editable []workflow.Status) error
	ApplyTransition(ctx context.Context, change models.StatusChange) error
	List(ctx context.Context, f models.ApplicationFilter) ([]*models.Application, int64, error)
	CountByStatus(ctx context.Context, f models.ApplicationFilter) (map[workflow.Status]int64, error)
	CountApproved(ctx context.Context, scholarshipID int64) (int, error)
	ExistsForStudent(ctx context.Context, studentID, scholarshipID int64) (bool, error)
	ListStudentIDsByStatus(ctx context.Context, scholarshipID int64, status workflow.Status) ([]int64, error)
}

// DocumentStore is the document persistence used by the services
type DocumentStore interface {
	CreateRequirement(ctx context.Context, d *models.DocumentRequirement) (int64, error)
	ListRequirements(ctx context.Context) ([]*models.DocumentRequirement, error)
	RequirementExists(ctx context.Context, docType models.DocumentType, customName *string) (bool, error)
	CreateDocument(ctx context.Context, d *models.ApplicationDocument, editable []workflow.Status) (int64, error)
	ListByApplication(ctx context.Context, applicationID int64) ([]*models.ApplicationDocument, error)
	GetDocument(ctx context.Context, applicationID, documentID int64) (*models.ApplicationDocument, error)
	DeleteDocument(ctx context.Context, applicationID, documentID int64, editable []workflow.Status) error
}

// NotificationStore persists in-app notifications
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, userID int64, unreadOnly bool, offset uint64, limit int) ([]*models.Notification, int64, error)
	MarkRead(ctx context.Context, id, userID int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	CountAll(ctx context.Context) (total, unread int64, err error)
}

// Pusher delivers live events to connected users
type Pusher interface {
	Push(userID int64, ev websocket.Event)
}

// Notifier is what the workflow services use to tell people about changes.
// Implementations must not let delivery failures reach the caller's transition.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
	NotifyRole(ctx context.Context, role models.RoleType, n Notice) error
}

// Notice is one notification to deliver
type Notice struct {
	RecipientID   int64
	Title         string
	Message       string
	Type          models.NotificationType
	ApplicationID *int64

	// Mail, when set, also sends a status-change e-mail to the recipient
	Mail *StatusMail
}

// StatusMail carries the fields of a status-change e-mail
type StatusMail struct {
	ScholarshipTitle string
	StatusLabel      string
	Comments         string
}

// Actor identifies the authenticated user calling a service
type Actor struct {
	ID   int64
	Role models.RoleType
}

func (a Actor) workflowActor() (workflow.Actor, bool) {
	return workflow.ActorFromRole(string(a.Role))
}

func ptr[T any](v T) *T {
	return &v
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toStatusCounts(counts map[workflow.Status]int64) (map[string]int64, int64) {
	out := make(map[string]int64, len(counts))
	var total int64
	for st, n := range counts {
		out[string(st)] = n
		total += n
	}
	return out, total
}
