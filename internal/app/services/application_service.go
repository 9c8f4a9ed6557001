package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/scholarsphere/internal/app/models"
	"github.com/yigit/scholarsphere/internal/app/models/dto"
	"github.com/yigit/scholarsphere/internal/app/workflow"
	database "github.com/yigit/scholarsphere/internal/db"
	"github.com/yigit/scholarsphere/internal/pkg/apperrors"
	"github.com/yigit/scholarsphere/internal/pkg/filestorage"
	"github.com/yigit/scholarsphere/internal/pkg/helpers"
	"github.com/yigit/scholarsphere/internal/pkg/validation"
)

// DocumentFieldPrefix prefixes the multipart field of each document requirement
const DocumentFieldPrefix = "document_"

// DocumentField returns the multipart field name for a document requirement
func DocumentField(requirementID int64) string {
	return DocumentFieldPrefix + strconv.FormatInt(requirementID, 10)
}

var studentEditable = []workflow.Status{workflow.StatusPending, workflow.StatusAdditionalInfoRequired}

// ApplicationService handles the student side of applications
type ApplicationService struct {
	applications ApplicationStore
	scholarships ScholarshipStore
	documents    DocumentStore
	users        UserDirectory
	storage      filestorage.FileStorage
	tx           database.Transactor
	notifier     Notifier
	logger       zerolog.Logger
	now          func() time.Time
}

// NewApplicationService creates a new ApplicationService
func NewApplicationService(
	applications ApplicationStore,
	scholarships ScholarshipStore,
	documents DocumentStore,
	users UserDirectory,
	storage filestorage.FileStorage,
	tx database.Transactor,
	notifier Notifier,
	logger zerolog.Logger,
) *ApplicationService {
	return &ApplicationService{
		applications: applications,
		scholarships: scholarships,
		documents:    documents,
		users:        users,
		storage:      storage,
		tx:           tx,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
	}
}

func requireStudent(actor Actor) error {
	if actor.Role != models.RoleStudent {
		return apperrors.NewForbiddenError("only students can manage applications")
	}
	return nil
}

func validateApplicationInput(req *dto.ApplicationRequest) error {
	if req.PersonalStatement == "" {
		return apperrors.NewValidationError("personalStatement", "personal statement is required")
	}
	if !validation.ValidGPA(req.GPA) {
		return apperrors.NewValidationError("gpa", "GPA must be between 0.00 and 4.00 with at most two decimals")
	}
	return nil
}

func uploadRules(r *models.DocumentRequirement) filestorage.UploadRules {
	return filestorage.UploadRules{AllowedExtensions: r.AllowedExtensions(), MaxBytes: r.MaxBytes()}
}

// Submit creates an application with its documents. files is keyed by document requirement id.
func (s *ApplicationService) Submit(ctx context.Context, student Actor, scholarshipID int64, req *dto.ApplicationRequest, files map[int64]*multipart.FileHeader) (*dto.ApplicationResponse, error) {
	if err := requireStudent(student); err != nil {
		return nil, err
	}
	if err := validateApplicationInput(req); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, student.ID)
	if err != nil {
		return nil, err
	}
	if user.Profile == nil {
		return nil, apperrors.ErrStudentProfileIncomplete
	}

	scholarship, err := s.scholarships.GetByID(ctx, scholarshipID)
	if err != nil {
		return nil, err
	}
	if !scholarship.IsActive {
		return nil, apperrors.ErrScholarshipInactive
	}
	if !scholarship.Deadline.After(s.now()) {
		return nil, apperrors.ErrScholarshipClosed
	}
	if scholarship.RemainingSlots() == 0 {
		return nil, fmt.Errorf("%w: all %d slots are filled", workflow.ErrNoSlotsAvailable, scholarship.AvailableSlots)
	}
	applied, err := s.applications.ExistsForStudent(ctx, student.ID, scholarshipID)
	if err != nil {
		return nil, err
	}
	if applied {
		return nil, apperrors.ErrAlreadyApplied
	}

	requirements, err := s.scholarships.ListDocumentRequirements(ctx, scholarshipID)
	if err != nil {
		return nil, err
	}
	for _, r := range requirements {
		fh, ok := files[r.ID]
		if !ok || fh == nil {
			if r.IsRequired {
				return nil, apperrors.NewCustomError(apperrors.ErrMissingDocument, r.DisplayName()+" is required").
					WithDetails(map[string]interface{}{"field": DocumentField(r.ID)})
			}
			continue
		}
		if _, err := filestorage.ValidateUpload(fh, uploadRules(r)); err != nil {
			return nil, apperrors.NewCustomError(err, fmt.Sprintf("%s: %v", r.DisplayName(), err)).
				WithDetails(map[string]interface{}{"field": DocumentField(r.ID)})
		}
	}

	app := &models.Application{
		StudentID:         student.ID,
		ScholarshipID:     scholarshipID,
		PersonalStatement: req.PersonalStatement,
		GPA:               req.GPA,
		AdditionalInfo:    req.AdditionalInfo,
	}
	var stored []string
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.applications.Create(ctx, app); err != nil {
			return err
		}
		for _, r := range requirements {
			fh, ok := files[r.ID]
			if !ok || fh == nil {
				continue
			}
			doc, err := s.store(ctx, app.ID, &r.ID, fh, uploadRules(r))
			if err != nil {
				return err
			}
			stored = append(stored, doc.FilePath)
		}
		return nil
	})
	if err != nil {
		s.discard(stored)
		return nil, err
	}

	s.logger.Info().Int64("applicationID", app.ID).Int64("studentID", student.ID).Int64("scholarshipID", scholarshipID).Msg("Application submitted")

	safeNotify(ctx, s.notifier, s.logger, Notice{
		RecipientID:   student.ID,
		Title:         "Application Submitted",
		Message:       fmt.Sprintf("Your application for %s has been submitted successfully.", scholarship.Title),
		Type:          models.NotificationSuccess,
		ApplicationID: ptr(app.ID),
	})
	safeNotifyRole(ctx, s.notifier, s.logger, models.RoleAdmin, Notice{
		Title:         "New Scholarship Application",
		Message:       fmt.Sprintf("%s applied for %s.", user.FullName(), scholarship.Title),
		Type:          models.NotificationInfo,
		ApplicationID: ptr(app.ID),
	})

	return s.GetForStudent(ctx, student, app.ID)
}

func (s *ApplicationService) store(ctx context.Context, applicationID int64, requirementID *int64, fh *multipart.FileHeader, rules filestorage.UploadRules) (*models.ApplicationDocument, error) {
	saved, err := s.storage.Save(ctx, fh, fmt.Sprintf("applications/%d", applicationID), rules)
	if err != nil {
		return nil, err
	}
	doc := &models.ApplicationDocument{
		ApplicationID: applicationID,
		RequirementID: requirementID,
		Name:          saved.Filename,
		FilePath:      saved.Path,
		FileSize:      saved.FileSize,
		MimeType:      saved.MimeType,
	}
	if _, err := s.documents.CreateDocument(ctx, doc, studentEditable); err != nil {
		s.discard([]string{saved.Path})
		return nil, err
	}
	return doc, nil
}

func (s *ApplicationService) discard(paths []string) {
	for _, p := range paths {
		if err := s.storage.Delete(p); err != nil {
			s.logger.Warn().Err(err).Str("path", p).Msg("Failed to remove stored file")
		}
	}
}

// owned loads an application of the student. Other students' applications read as not found.
func (s *ApplicationService) owned(ctx context.Context, student Actor, applicationID int64) (*models.Application, error) {
	if err := requireStudent(student); err != nil {
		return nil, err
	}
	app, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.StudentID != student.ID {
		return nil, apperrors.ErrApplicationNotFound
	}
	return app, nil
}

func (s *ApplicationService) editable(ctx context.Context, student Actor, applicationID int64) (*models.Application, error) {
	app, err := s.owned(ctx, student, applicationID)
	if err != nil {
		return nil, err
	}
	if !workflow.CanStudentEdit(app.Status) {
		return nil, apperrors.NewCustomError(apperrors.ErrApplicationNotEditable,
			fmt.Sprintf("application can no longer be edited while %s", app.Status.Label()))
	}
	return app, nil
}

// Update rewrites the application content. The status is left unchanged.
func (s *ApplicationService) Update(ctx context.Context, student Actor, applicationID int64, req *dto.ApplicationRequest) (*dto.ApplicationResponse, error) {
	if err := validateApplicationInput(req); err != nil {
		return nil, err
	}
	app, err := s.editable(ctx, student, applicationID)
	if err != nil {
		return nil, err
	}

	app.PersonalStatement = req.PersonalStatement
	app.GPA = req.GPA
	app.AdditionalInfo = req.AdditionalInfo
	if err := s.applications.UpdateContent(ctx, app, studentEditable); err != nil {
		return nil, err
	}

	if app.Status == workflow.StatusAdditionalInfoRequired && app.ReviewedBy != nil {
		safeNotify(ctx, s.notifier, s.logger, Notice{
			RecipientID:   *app.ReviewedBy,
			Title:         "Application Updated",
			Message:       fmt.Sprintf("%s updated their application for %s.", app.StudentName, app.ScholarshipTitle),
			Type:          models.NotificationInfo,
			ApplicationID: ptr(app.ID),
		})
	}
	return s.GetForStudent(ctx, student, app.ID)
}

// UploadDocument attaches a file to an editable application. With a requirementID
// the requirement's formats and size apply, otherwise only the global limits.
func (s *ApplicationService) UploadDocument(ctx context.Context, student Actor, applicationID int64, requirementID *int64, fh *multipart.FileHeader) (*models.ApplicationDocument, error) {
	app, err := s.editable(ctx, student, applicationID)
	if err != nil {
		return nil, err
	}

	rules := filestorage.UploadRules{}
	if requirementID != nil {
		reqs, err := s.scholarships.ListDocumentRequirements(ctx, app.ScholarshipID)
		if err != nil {
			return nil, err
		}
		var match *models.DocumentRequirement
		for _, r := range reqs {
			if r.ID == *requirementID {
				match = r
				break
			}
		}
		if match == nil {
			return nil, apperrors.ErrRequirementNotFound
		}
		rules = uploadRules(match)
	}

	doc, err := s.store(ctx, app.ID, requirementID, fh, rules)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("applicationID", app.ID).Int64("documentID", doc.ID).Msg("Document uploaded")
	return doc, nil
}

// DeleteDocument removes a document from an editable application
func (s *ApplicationService) DeleteDocument(ctx context.Context, student Actor, applicationID, documentID int64) error {
	app, err := s.editable(ctx, student, applicationID)
	if err != nil {
		return err
	}
	doc, err := s.documents.GetDocument(ctx, app.ID, documentID)
	if err != nil {
		return err
	}
	if err := s.documents.DeleteDocument(ctx, app.ID, documentID, studentEditable); err != nil {
		return err
	}
	s.discard([]string{doc.FilePath})
	return nil
}

// GetForStudent returns one of the student's applications with its documents
func (s *ApplicationService) GetForStudent(ctx context.Context, student Actor, applicationID int64) (*dto.ApplicationResponse, error) {
	app, err := s.owned(ctx, student, applicationID)
	if err != nil {
		return nil, err
	}
	docs, err := s.documents.ListByApplication(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	resp := dto.NewApplicationResponse(app, docs)
	return &resp, nil
}

// ListMine lists the student's applications with per-status counts
func (s *ApplicationService) ListMine(ctx context.Context, student Actor, status string, page, size int) (*dto.ApplicationListResponse, error) {
	if err := requireStudent(student); err != nil {
		return nil, err
	}
	f := models.ApplicationFilter{StudentID: &student.ID}
	if status != "" {
		st, err := workflow.ParseStatus(status)
		if err != nil {
			return nil, apperrors.NewValidationError("status", "unknown application status")
		}
		f.Statuses = []workflow.Status{st}
	}
	f.Offset, f.Limit = helpers.CalculateOffsetLimit(page, size)

	apps, total, err := s.applications.List(ctx, f)
	if err != nil {
		return nil, err
	}
	counts, err := s.applications.CountByStatus(ctx, f)
	if err != nil {
		return nil, err
	}
	sc, _ := toStatusCounts(counts)
	return &dto.ApplicationListResponse{
		Items:        dto.NewApplicationResponses(apps),
		Pagination:   helpers.NewPaginationInfo(total, page, f.Limit),
		StatusCounts: sc,
	}, nil
}

// DocumentPath resolves the on-disk location of a document the viewer may read.
// Students may only read their own; staff may read any.
func (s *ApplicationService) DocumentPath(ctx context.Context, viewer Actor, applicationID, documentID int64) (string, *models.ApplicationDocument, error) {
	if viewer.Role == models.RoleStudent {
		if _, err := s.owned(ctx, viewer, applicationID); err != nil {
			return "", nil, err
		}
	}
	doc, err := s.documents.GetDocument(ctx, applicationID, documentID)
	if err != nil {
		return "", nil, err
	}
	full, err := s.storage.FullPath(doc.FilePath)
	if err != nil {
		return "", nil, err
	}
	return full, doc, nil
}
