package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/scholarsphere/internal/app/models"
	"github.com/yigit/scholarsphere/internal/app/workflow"
	"github.com/yigit/scholarsphere/internal/pkg/apperrors"
	"github.com/yigit/scholarsphere/internal/pkg/dberrors"
	"github.com/yigit/scholarsphere/internal/pkg/logger"
)

// ScholarshipRepository handles scholarship and requirement persistence
type ScholarshipRepository struct {
	baseRepository
}

// NewScholarshipRepository creates a new ScholarshipRepository
func NewScholarshipRepository(db *pgxpool.Pool) *ScholarshipRepository {
	return &ScholarshipRepository{baseRepository: newBaseRepository(db)}
}

var scholarshipColumns = []string{
	"s.id", "s.title", "s.description", "s.eligibility_criteria", "s.award_amount::float8",
	"s.deadline", "s.available_slots", "s.is_active", "s.created_by", "s.created_at", "s.updated_at",
}

func (r *ScholarshipRepository) selectWithCounts() squirrel.SelectBuilder {
	return r.sb.Select(scholarshipColumns...).
		Column("(SELECT COUNT(*) FROM applications a WHERE a.scholarship_id = s.id) AS application_count").
		Column("(SELECT COUNT(*) FROM applications a WHERE a.scholarship_id = s.id AND a.status = ?) AS approved_count", workflow.StatusApproved).
		From("scholarships s")
}

func scanScholarship(row pgx.Row, withCounts bool) (*models.Scholarship, error) {
	s := &models.Scholarship{}
	dest := []any{
		&s.ID, &s.Title, &s.Description, &s.EligibilityCriteria, &s.AwardAmount,
		&s.Deadline, &s.AvailableSlots, &s.IsActive, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt,
	}
	if withCounts {
		dest = append(dest, &s.ApplicationCount, &s.ApprovedCount)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a scholarship and returns its id
func (r *ScholarshipRepository) Create(ctx context.Context, s *models.Scholarship) (int64, error) {
	sql, args, err := r.sb.Insert("scholarships").
		Columns("title", "description", "eligibility_criteria", "award_amount", "deadline", "available_slots", "is_active", "created_by").
		Values(s.Title, s.Description, s.EligibilityCriteria, s.AwardAmount, s.Deadline, s.AvailableSlots, s.IsActive, s.CreatedBy).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create scholarship query: %w", err)
	}

	var id int64
	if err := r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		if dberrors.IsCheckViolation(err, "") {
			return 0, apperrors.NewValidationError("scholarship", "award amount must be positive and slots at least one")
		}
		logger.Error().Err(err).Msg("Error executing create scholarship query")
		return 0, fmt.Errorf("error creating scholarship: %w", err)
	}
	return id, nil
}

// Update writes every editable column
func (r *ScholarshipRepository) Update(ctx context.Context, s *models.Scholarship) error {
	sql, args, err := r.sb.Update("scholarships").
		SetMap(map[string]interface{}{
			"title":                s.Title,
			"description":          s.Description,
			"eligibility_criteria": s.EligibilityCriteria,
			"award_amount":         s.AwardAmount,
			"deadline":             s.Deadline,
			"available_slots":      s.AvailableSlots,
			"updated_at":           time.Now(),
		}).
		Where(squirrel.Eq{"id": s.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update scholarship query: %w", err)
	}

	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating scholarship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrScholarshipNotFound
	}
	return nil
}

// GetByID retrieves a scholarship with application counts
func (r *ScholarshipRepository) GetByID(ctx context.Context, id int64) (*models.Scholarship, error) {
	sql, args, err := r.selectWithCounts().Where(squirrel.Eq{"s.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get scholarship query: %w", err)
	}

	s, err := scanScholarship(r.conn(ctx).QueryRow(ctx, sql, args...), true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrScholarshipNotFound
		}
		return nil, fmt.Errorf("error getting scholarship: %w", err)
	}
	return s, nil
}

func (r *ScholarshipRepository) lockQuery(id int64) squirrel.SelectBuilder {
	return r.sb.Select(scholarshipColumns...).
		From("scholarships s").
		Where(squirrel.Eq{"s.id": id}).
		Suffix("FOR UPDATE")
}

// LockByID reads a scholarship row with FOR UPDATE. Must run inside a transaction.
func (r *ScholarshipRepository) LockByID(ctx context.Context, id int64) (*models.Scholarship, error) {
	sql, args, err := r.lockQuery(id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build lock scholarship query: %w", err)
	}

	s, err := scanScholarship(r.conn(ctx).QueryRow(ctx, sql, args...), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrScholarshipNotFound
		}
		return nil, fmt.Errorf("error locking scholarship: %w", err)
	}
	return s, nil
}

func applyScholarshipFilter(q squirrel.SelectBuilder, f models.ScholarshipFilter) squirrel.SelectBuilder {
	if f.Search != "" {
		q = q.Where(ilikeAny(f.Search, "s.title", "s.description", "s.eligibility_criteria"))
	}
	if f.MinAmount != nil {
		q = q.Where(squirrel.GtOrEq{"s.award_amount": *f.MinAmount})
	}
	if f.MaxAmount != nil {
		q = q.Where(squirrel.LtOrEq{"s.award_amount": *f.MaxAmount})
	}
	if f.ActiveOnly {
		q = q.Where(squirrel.Eq{"s.is_active": true})
	}
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}
	switch f.State {
	case models.ScholarshipStateOpen:
		q = q.Where(squirrel.Gt{"s.deadline": now})
	case models.ScholarshipStateClosed:
		q = q.Where(squirrel.LtOrEq{"s.deadline": now})
	case models.ScholarshipStateClosingSoon:
		q = q.Where(squirrel.Gt{"s.deadline": now}).
			Where(squirrel.LtOrEq{"s.deadline": now.Add(models.ClosingSoonWindow)})
	}
	return q
}

// List returns one page of scholarships and the total matching count
func (r *ScholarshipRepository) List(ctx context.Context, f models.ScholarshipFilter) ([]*models.Scholarship, int64, error) {
	countSQL, countArgs, err := applyScholarshipFilter(r.sb.Select("COUNT(*)").From("scholarships s"), f).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count scholarships query: %w", err)
	}
	var total int64
	if err := r.conn(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting scholarships: %w", err)
	}

	q := applyScholarshipFilter(r.selectWithCounts(), f).OrderBy("s.deadline ASC", "s.id ASC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit)).Offset(f.Offset)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list scholarships query: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list scholarships query")
		return nil, 0, fmt.Errorf("error listing scholarships: %w", err)
	}
	defer rows.Close()

	items := []*models.Scholarship{}
	for rows.Next() {
		s, err := scanScholarship(rows, true)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning scholarship row: %w", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating scholarship rows: %w", err)
	}
	return items, total, nil
}

// ListClosingBetween returns active scholarships whose deadline falls in (from, to]
func (r *ScholarshipRepository) ListClosingBetween(ctx context.Context, from, to time.Time) ([]*models.Scholarship, error) {
	sql, args, err := r.sb.Select(scholarshipColumns...).
		From("scholarships s").
		Where(squirrel.Eq{"s.is_active": true}).
		Where(squirrel.Gt{"s.deadline": from}).
		Where(squirrel.LtOrEq{"s.deadline": to}).
		OrderBy("s.deadline").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build closing scholarships query: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing closing scholarships: %w", err)
	}
	defer rows.Close()

	items := []*models.Scholarship{}
	for rows.Next() {
		s, err := scanScholarship(rows, false)
		if err != nil {
			return nil, fmt.Errorf("error scanning scholarship row: %w", err)
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// SetActive flips the active flag
func (r *ScholarshipRepository) SetActive(ctx context.Context, id int64, active bool) error {
	sql, args, err := r.sb.Update("scholarships").
		Set("is_active", active).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build set active query: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating scholarship status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrScholarshipNotFound
	}
	return nil
}

// Delete removes a scholarship without applications
func (r *ScholarshipRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("scholarships").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete scholarship query: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsForeignKeyError(err) {
			return apperrors.ErrScholarshipHasApps
		}
		return fmt.Errorf("error deleting scholarship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrScholarshipNotFound
	}
	return nil
}

// CountAll returns total and active scholarship counts
func (r *ScholarshipRepository) CountAll(ctx context.Context) (total, active int64, err error) {
	err = r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active) FROM scholarships`).Scan(&total, &active)
	if err != nil {
		return 0, 0, fmt.Errorf("error counting scholarships: %w", err)
	}
	return total, active, nil
}

// AddRequirement inserts a scholarship requirement
func (r *ScholarshipRepository) AddRequirement(ctx context.Context, req *models.ScholarshipRequirement) (int64, error) {
	sql, args, err := r.sb.Insert("scholarship_requirements").
		Columns("scholarship_id", "category", "description", "notes", "sort_order").
		Values(req.ScholarshipID, req.Category, req.Description, req.Notes, req.SortOrder).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build add requirement query: %w", err)
	}
	var id int64
	if err := r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		if dberrors.IsForeignKeyError(err) {
			return 0, apperrors.ErrScholarshipNotFound
		}
		return 0, fmt.Errorf("error adding requirement: %w", err)
	}
	return id, nil
}

// DeleteRequirement removes a requirement belonging to scholarshipID
func (r *ScholarshipRepository) DeleteRequirement(ctx context.Context, scholarshipID, requirementID int64) error {
	sql, args, err := r.sb.Delete("scholarship_requirements").
		Where(squirrel.Eq{"id": requirementID, "scholarship_id": scholarshipID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete requirement query: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error deleting requirement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrRequirementNotFound
	}
	return nil
}

// ListRequirements returns requirements ordered by category then order
func (r *ScholarshipRepository) ListRequirements(ctx context.Context, scholarshipID int64) ([]*models.ScholarshipRequirement, error) {
	sql, args, err := r.sb.Select("id", "scholarship_id", "category", "description", "notes", "sort_order", "created_at").
		From("scholarship_requirements").
		Where(squirrel.Eq{"scholarship_id": scholarshipID}).
		OrderBy("category", "sort_order", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list requirements query: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing requirements: %w", err)
	}
	defer rows.Close()

	items := []*models.ScholarshipRequirement{}
	for rows.Next() {
		req := &models.ScholarshipRequirement{}
		if err := rows.Scan(&req.ID, &req.ScholarshipID, &req.Category, &req.Description, &req.Notes, &req.SortOrder, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning requirement row: %w", err)
		}
		items = append(items, req)
	}
	return items, rows.Err()
}

// SetDocumentRequirements replaces the document requirements linked to a scholarship
func (r *ScholarshipRepository) SetDocumentRequirements(ctx context.Context, scholarshipID int64, requirementIDs []int64) error {
	delSQL, delArgs, err := r.sb.Delete("scholarship_document_requirements").
		Where(squirrel.Eq{"scholarship_id": scholarshipID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build clear document requirements query: %w", err)
	}
	if _, err := r.conn(ctx).Exec(ctx, delSQL, delArgs...); err != nil {
		return fmt.Errorf("error clearing document requirements: %w", err)
	}
	if len(requirementIDs) == 0 {
		return nil
	}

	ins := r.sb.Insert("scholarship_document_requirements").Columns("scholarship_id", "document_requirement_id")
	for _, id := range requirementIDs {
		ins = ins.Values(scholarshipID, id)
	}
	sql, args, err := ins.Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build link document requirements query: %w", err)
	}
	if _, err := r.conn(ctx).Exec(ctx, sql, args...); err != nil {
		if dberrors.IsForeignKeyError(err) {
			return apperrors.NewResourceNotFoundError("document requirement not found")
		}
		return fmt.Errorf("error linking document requirements: %w", err)
	}
	return nil
}

// ListDocumentRequirements returns the document requirements linked to a scholarship
func (r *ScholarshipRepository) ListDocumentRequirements(ctx context.Context, scholarshipID int64) ([]*models.DocumentRequirement, error) {
	sql, args, err := r.sb.Select(documentRequirementColumns...).
		From("document_requirements dr").
		Join("scholarship_document_requirements sdr ON sdr.document_requirement_id = dr.id").
		Where(squirrel.Eq{"sdr.scholarship_id": scholarshipID}).
		OrderBy("dr.is_required DESC", "dr.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list document requirements query: %w", err)
	}
	return queryDocumentRequirements(ctx, r.conn(ctx), sql, args)
}
