package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/scholarsphere/internal/app/models"
	"github.com/yigit/scholarsphere/internal/app/models/dto"
	"github.com/yigit/scholarsphere/internal/app/workflow"
	database "github.com/yigit/scholarsphere/internal/db"
	"github.com/yigit/scholarsphere/internal/pkg/apperrors"
	"github.com/yigit/scholarsphere/internal/pkg/helpers"
)

// ScholarshipService manages scholarships, their requirements and the document catalogue
type ScholarshipService struct {
	scholarships ScholarshipStore
	applications ApplicationStore
	documents    DocumentStore
	tx           database.Transactor
	notifier     Notifier
	logger       zerolog.Logger
	now          func() time.Time
}

// NewScholarshipService creates a new ScholarshipService
func NewScholarshipService(
	scholarships ScholarshipStore,
	applications ApplicationStore,
	documents DocumentStore,
	tx database.Transactor,
	notifier Notifier,
	logger zerolog.Logger,
) *ScholarshipService {
	return &ScholarshipService{
		scholarships: scholarships,
		applications: applications,
		documents:    documents,
		tx:           tx,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *ScholarshipService) validate(req *dto.ScholarshipRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return apperrors.NewValidationError("title", "title is required")
	}
	if req.AwardAmount <= 0 {
		return apperrors.NewValidationError("awardAmount", "award amount must be greater than zero")
	}
	if req.AvailableSlots < 1 {
		return apperrors.NewValidationError("availableSlots", "available slots must be at least 1")
	}
	return nil
}

func (s *ScholarshipService) checkCatalogue(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	catalogue, err := s.documents.ListRequirements(ctx)
	if err != nil {
		return err
	}
	known := make(map[int64]bool, len(catalogue))
	for _, d := range catalogue {
		known[d.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return apperrors.NewCustomError(apperrors.ErrRequirementNotFound, fmt.Sprintf("document requirement %d does not exist", id))
		}
	}
	return nil
}

// Create adds a scholarship and tells every active student about it
func (s *ScholarshipService) Create(ctx context.Context, admin Actor, req *dto.ScholarshipRequest) (*dto.ScholarshipDetailResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if !req.Deadline.After(s.now()) {
		return nil, apperrors.NewValidationError("deadline", "deadline must be in the future")
	}
	if err := s.checkCatalogue(ctx, req.DocumentRequirementIDs); err != nil {
		return nil, err
	}

	sch := &models.Scholarship{
		Title:               strings.TrimSpace(req.Title),
		Description:         req.Description,
		EligibilityCriteria: req.EligibilityCriteria,
		AwardAmount:         req.AwardAmount,
		Deadline:            req.Deadline,
		AvailableSlots:      req.AvailableSlots,
		IsActive:            req.IsActive == nil || *req.IsActive,
		CreatedBy:           admin.ID,
	}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.scholarships.Create(ctx, sch); err != nil {
			return err
		}
		if len(req.DocumentRequirementIDs) > 0 {
			return s.scholarships.SetDocumentRequirements(ctx, sch.ID, req.DocumentRequirementIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("scholarshipID", sch.ID).Int64("adminID", admin.ID).Msg("Scholarship created")
	if sch.IsActive {
		safeNotifyRole(ctx, s.notifier, s.logger, models.RoleStudent, Notice{
			Title:   "New Scholarship Available",
			Message: fmt.Sprintf("%s is now open for applications until %s.", sch.Title, sch.Deadline.Format("January 2, 2006")),
			Type:    models.NotificationInfo,
		})
	}
	return s.Get(ctx, sch.ID, admin)
}

// Update changes a scholarship. Once applications exist the award amount and
// deadline are fixed and slots may only grow.
func (s *ScholarshipService) Update(ctx context.Context, id int64, admin Actor, req *dto.ScholarshipRequest) (*dto.ScholarshipDetailResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	current, err := s.scholarships.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if current.ApplicationCount > 0 {
		if req.AwardAmount != current.AwardAmount || !req.Deadline.Equal(current.Deadline) {
			return nil, apperrors.ErrScholarshipLockedFields
		}
		if req.AvailableSlots < current.AvailableSlots {
			return nil, apperrors.NewCustomError(apperrors.ErrScholarshipLockedFields,
				fmt.Sprintf("available slots can only be raised once applications exist (currently %d)", current.AvailableSlots))
		}
	} else if !req.Deadline.Equal(current.Deadline) && !req.Deadline.After(s.now()) {
		return nil, apperrors.NewValidationError("deadline", "deadline must be in the future")
	}
	if req.AvailableSlots < current.ApprovedCount {
		return nil, apperrors.NewValidationError("availableSlots",
			fmt.Sprintf("available slots cannot be below the %d approved applications", current.ApprovedCount))
	}
	if req.DocumentRequirementIDs != nil {
		if err := s.checkCatalogue(ctx, req.DocumentRequirementIDs); err != nil {
			return nil, err
		}
	}

	current.Title = strings.TrimSpace(req.Title)
	current.Description = req.Description
	current.EligibilityCriteria = req.EligibilityCriteria
	current.AwardAmount = req.AwardAmount
	current.Deadline = req.Deadline
	current.AvailableSlots = req.AvailableSlots

	deactivated := req.IsActive != nil && !*req.IsActive && current.IsActive
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.scholarships.Update(ctx, current); err != nil {
			return err
		}
		if req.IsActive != nil && *req.IsActive != current.IsActive {
			if err := s.scholarships.SetActive(ctx, id, *req.IsActive); err != nil {
				return err
			}
		}
		if req.DocumentRequirementIDs != nil {
			return s.scholarships.SetDocumentRequirements(ctx, id, req.DocumentRequirementIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("scholarshipID", id).Int64("adminID", admin.ID).Msg("Scholarship updated")
	if deactivated {
		s.notifyDeactivated(ctx, current)
	}
	return s.Get(ctx, id, admin)
}

// ToggleActive flips the active flag and returns the new value
func (s *ScholarshipService) ToggleActive(ctx context.Context, id int64) (bool, error) {
	sch, err := s.scholarships.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	active := !sch.IsActive
	if err := s.scholarships.SetActive(ctx, id, active); err != nil {
		return false, err
	}
	s.logger.Info().Int64("scholarshipID", id).Bool("active", active).Msg("Scholarship active flag changed")
	if !active {
		s.notifyDeactivated(ctx, sch)
	}
	return active, nil
}

func (s *ScholarshipService) notifyDeactivated(ctx context.Context, sch *models.Scholarship) {
	students, err := s.applications.ListStudentIDsByStatus(ctx, sch.ID, workflow.StatusPending)
	if err != nil {
		s.logger.Warn().Err(err).Int64("scholarshipID", sch.ID).Msg("Could not list pending applicants")
		return
	}
	for _, id := range students {
		safeNotify(ctx, s.notifier, s.logger, Notice{
			RecipientID: id,
			Title:       "Scholarship Deactivated",
			Message:     fmt.Sprintf("%s has been deactivated. Your pending application will be reviewed once it reopens.", sch.Title),
			Type:        models.NotificationWarning,
		})
	}
}

// Delete removes a scholarship that has no applications
func (s *ScholarshipService) Delete(ctx context.Context, id int64) error {
	if err := s.scholarships.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("scholarshipID", id).Msg("Scholarship deleted")
	return nil
}

// Get returns the scholarship detail. Students cannot see inactive scholarships.
func (s *ScholarshipService) Get(ctx context.Context, id int64, viewer Actor) (*dto.ScholarshipDetailResponse, error) {
	sch, err := s.scholarships.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewer.Role == models.RoleStudent && !sch.IsActive {
		return nil, apperrors.ErrScholarshipNotFound
	}

	reqs, err := s.scholarships.ListRequirements(ctx, id)
	if err != nil {
		return nil, err
	}
	docs, err := s.scholarships.ListDocumentRequirements(ctx, id)
	if err != nil {
		return nil, err
	}

	grouped := make(map[models.RequirementCategory][]*models.ScholarshipRequirement)
	for _, r := range reqs {
		grouped[r.Category] = append(grouped[r.Category], r)
	}

	resp := &dto.ScholarshipDetailResponse{
		ScholarshipResponse:  dto.NewScholarshipResponse(sch, s.now()),
		Requirements:         grouped,
		DocumentRequirements: dto.NewDocumentRequirementResponses(docs),
	}
	if viewer.Role == models.RoleStudent {
		resp.HasApplied, err = s.applications.ExistsForStudent(ctx, viewer.ID, id)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// List returns one page of scholarships. Students only see active ones.
func (s *ScholarshipService) List(ctx context.Context, viewer Actor, q dto.ScholarshipListQuery, page, size int) (*dto.PaginatedResponse, error) {
	if q.MinAmount != nil && q.MaxAmount != nil && *q.MinAmount > *q.MaxAmount {
		return nil, apperrors.NewValidationError("minAmount", "minimum amount cannot exceed maximum amount")
	}
	now := s.now()
	f := models.ScholarshipFilter{
		Search:     strings.TrimSpace(q.Search),
		MinAmount:  q.MinAmount,
		MaxAmount:  q.MaxAmount,
		State:      q.Status,
		ActiveOnly: viewer.Role == models.RoleStudent,
		Now:        now,
	}
	f.Offset, f.Limit = helpers.CalculateOffsetLimit(page, size)

	items, total, err := s.scholarships.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ScholarshipResponse, 0, len(items))
	for _, sch := range items {
		out = append(out, dto.NewScholarshipResponse(sch, now))
	}
	return &dto.PaginatedResponse{
		Items:      out,
		Pagination: helpers.NewPaginationInfo(total, page, f.Limit),
	}, nil
}

// AddRequirement attaches a categorised requirement to a scholarship
func (s *ScholarshipService) AddRequirement(ctx context.Context, scholarshipID int64, req *dto.RequirementRequest) (*models.ScholarshipRequirement, error) {
	if !req.Category.IsValid() {
		return nil, apperrors.NewValidationError("category", "unknown requirement category")
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, apperrors.NewValidationError("description", "description is required")
	}
	if _, err := s.scholarships.GetByID(ctx, scholarshipID); err != nil {
		return nil, err
	}
	r := &models.ScholarshipRequirement{
		ScholarshipID: scholarshipID,
		Category:      req.Category,
		Description:   strings.TrimSpace(req.Description),
		Notes:         req.Notes,
		SortOrder:     req.Order,
	}
	if _, err := s.scholarships.AddRequirement(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteRequirement removes a requirement from a scholarship
func (s *ScholarshipService) DeleteRequirement(ctx context.Context, scholarshipID, requirementID int64) error {
	return s.scholarships.DeleteRequirement(ctx, scholarshipID, requirementID)
}

// SetDocumentRequirements replaces the documents a scholarship asks for
func (s *ScholarshipService) SetDocumentRequirements(ctx context.Context, scholarshipID int64, ids []int64) ([]dto.DocumentRequirementResponse, error) {
	if _, err := s.scholarships.GetByID(ctx, scholarshipID); err != nil {
		return nil, err
	}
	if err := s.checkCatalogue(ctx, ids); err != nil {
		return nil, err
	}
	if err := s.scholarships.SetDocumentRequirements(ctx, scholarshipID, ids); err != nil {
		return nil, err
	}
	docs, err := s.scholarships.ListDocumentRequirements(ctx, scholarshipID)
	if err != nil {
		return nil, err
	}
	return dto.NewDocumentRequirementResponses(docs), nil
}

// ListDocumentCatalogue returns every document requirement
func (s *ScholarshipService) ListDocumentCatalogue(ctx context.Context) ([]dto.DocumentRequirementResponse, error) {
	docs, err := s.documents.ListRequirements(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewDocumentRequirementResponses(docs), nil
}

// CreateDocumentRequirement adds an entry to the document catalogue
func (s *ScholarshipService) CreateDocumentRequirement(ctx context.Context, req *dto.DocumentRequirementRequest) (*dto.DocumentRequirementResponse, error) {
	if !req.DocumentType.IsValid() {
		return nil, apperrors.NewValidationError("documentType", "unknown document type")
	}
	if req.DocumentType == models.DocOther && strings.TrimSpace(derefString(req.CustomName)) == "" {
		return nil, apperrors.NewValidationError("customName", "custom name is required for other documents")
	}
	exists, err := s.documents.RequirementExists(ctx, req.DocumentType, req.CustomName)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.NewConflictError("this document requirement already exists")
	}

	d := &models.DocumentRequirement{
		DocumentType:    req.DocumentType,
		CustomName:      req.CustomName,
		Description:     req.Description,
		IsRequired:      req.IsRequired,
		AcceptedFormats: req.AcceptedFormats,
		MaxFileSizeMB:   req.MaxFileSizeMB,
	}
	if d.AcceptedFormats == "" {
		d.AcceptedFormats = models.DefaultAcceptedFormats
	}
	if d.MaxFileSizeMB == 0 {
		d.MaxFileSizeMB = models.DefaultMaxFileSizeMB
	}
	if _, err := s.documents.CreateRequirement(ctx, d); err != nil {
		return nil, err
	}
	return &dto.DocumentRequirementResponse{DocumentRequirement: d, DisplayName: d.DisplayName()}, nil
}

// Analytics returns per-status application counts for one scholarship
func (s *ScholarshipService) Analytics(ctx context.Context, id int64) (*dto.ScholarshipAnalyticsResponse, error) {
	sch, err := s.scholarships.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.applications.CountByStatus(ctx, models.ApplicationFilter{ScholarshipID: &id})
	if err != nil {
		return nil, err
	}
	sc, total := toStatusCounts(counts)
	return &dto.ScholarshipAnalyticsResponse{
		ScholarshipID:     sch.ID,
		Title:             sch.Title,
		TotalApplications: total,
		StatusCounts:      sc,
		AvailableSlots:    sch.AvailableSlots,
		RemainingSlots:    workflow.RemainingSlots(sch.AvailableSlots, int(counts[workflow.StatusApproved])),
	}, nil
}
