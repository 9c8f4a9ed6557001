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

// ApplicationRepository handles scholarship application persistence
type ApplicationRepository struct {
	baseRepository
}

// NewApplicationRepository creates a new ApplicationRepository
func NewApplicationRepository(db *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{baseRepository: newBaseRepository(db)}
}

func (r *ApplicationRepository) selectJoined() squirrel.SelectBuilder {
	return r.sb.Select(
		"a.id", "a.student_id", "a.scholarship_id", "a.status", "a.personal_statement", "a.gpa::float8",
		"a.additional_info", "a.submitted_at", "a.updated_at",
		"a.reviewed_by", "a.reviewed_at", "a.reviewer_comments",
		"a.final_decision_by", "a.final_decision_at", "a.final_decision_comments",
		"st.first_name || ' ' || st.last_name", "st.email", "s.title",
		"COALESCE(rv.first_name || ' ' || rv.last_name, '')",
		"COALESCE(fd.first_name || ' ' || fd.last_name, '')",
	).
		From("applications a").
		Join("users st ON st.id = a.student_id").
		Join("scholarships s ON s.id = a.scholarship_id").
		LeftJoin("users rv ON rv.id = a.reviewed_by").
		LeftJoin("users fd ON fd.id = a.final_decision_by")
}

func scanApplication(row pgx.Row) (*models.Application, error) {
	a := &models.Application{}
	err := row.Scan(
		&a.ID, &a.StudentID, &a.ScholarshipID, &a.Status, &a.PersonalStatement, &a.GPA,
		&a.AdditionalInfo, &a.SubmittedAt, &a.UpdatedAt,
		&a.ReviewedBy, &a.ReviewedAt, &a.ReviewerComments,
		&a.FinalDecisionBy, &a.FinalDecisionAt, &a.FinalDecisionComments,
		&a.StudentName, &a.StudentEmail, &a.ScholarshipTitle, &a.ReviewerName, &a.DeciderName,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a pending application
func (r *ApplicationRepository) Create(ctx context.Context, a *models.Application) (int64, error) {
	sql, args, err := r.sb.Insert("applications").
		Columns("student_id", "scholarship_id", "status", "personal_statement", "gpa", "additional_info").
		Values(a.StudentID, a.ScholarshipID, workflow.StatusPending, a.PersonalStatement, a.GPA, a.AdditionalInfo).
		Suffix("RETURNING id, submitted_at").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create application query: %w", err)
	}

	var id int64
	if err := r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&id, &a.SubmittedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "applications_student_scholarship_key") {
			return 0, apperrors.ErrAlreadyApplied
		}
		if dberrors.IsCheckViolation(err, "applications_gpa_check") {
			return 0, apperrors.NewValidationError("gpa", "GPA must be between 0.00 and 4.00")
		}
		logger.Error().Err(err).Int64("studentID", a.StudentID).Msg("Error executing create application query")
		return 0, fmt.Errorf("error creating application: %w", err)
	}
	a.ID = id
	a.Status = workflow.StatusPending
	return id, nil
}

// GetByID retrieves an application with student, scholarship and reviewer names
func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*models.Application, error) {
	sql, args, err := r.selectJoined().Where(squirrel.Eq{"a.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get application query: %w", err)
	}
	a, err := scanApplication(r.conn(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("error getting application: %w", err)
	}
	return a, nil
}

// UpdateContent rewrites the student-editable fields while the status is one of editable
func (r *ApplicationRepository) UpdateContent(ctx context.Context, a *models.Application, editable []workflow.Status) error {
	sql, args, err := r.sb.Update("applications").
		SetMap(map[string]interface{}{
			"personal_statement": a.PersonalStatement,
			"gpa":                a.GPA,
			"additional_info":    a.AdditionalInfo,
			"updated_at":         time.Now(),
		}).
		Where(squirrel.Eq{"id": a.ID, "student_id": a.StudentID, "status": editable}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update application query: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsCheckViolation(err, "applications_gpa_check") {
			return apperrors.NewValidationError("gpa", "GPA must be between 0.00 and 4.00")
		}
		return fmt.Errorf("error updating application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrApplicationNotEditable
	}
	return nil
}

func (r *ApplicationRepository) transitionQuery(change models.StatusChange, at time.Time) squirrel.UpdateBuilder {
	q := r.sb.Update("applications").
		Set("status", change.To).
		Set("updated_at", at)
	switch {
	case change.Final:
		q = q.Set("final_decision_by", change.ActorID).
			Set("final_decision_at", at).
			Set("final_decision_comments", change.Comments)
	case change.AssignOnly:
		q = q.Set("reviewed_by", change.ActorID)
	default:
		q = q.Set("reviewed_by", change.ActorID).
			Set("reviewed_at", at).
			Set("reviewer_comments", change.Comments)
	}
	return q.Where(squirrel.Eq{"id": change.ApplicationID, "status": change.From})
}

// ApplyTransition writes a status change only if the row still holds change.From.
// Zero affected rows means another writer moved the application first.
func (r *ApplicationRepository) ApplyTransition(ctx context.Context, change models.StatusChange) error {
	at := change.At
	if at.IsZero() {
		at = time.Now()
	}

	sql, args, err := r.transitionQuery(change, at).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build transition query: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating application status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		logger.Warn().
			Int64("applicationID", change.ApplicationID).
			Str("from", string(change.From)).
			Str("to", string(change.To)).
			Msg("Conditional status update matched no rows")
		return apperrors.ErrConcurrentUpdate
	}
	return nil
}

func applyApplicationFilter(q squirrel.SelectBuilder, f models.ApplicationFilter) squirrel.SelectBuilder {
	if f.StudentID != nil {
		q = q.Where(squirrel.Eq{"a.student_id": *f.StudentID})
	}
	if f.ScholarshipID != nil {
		q = q.Where(squirrel.Eq{"a.scholarship_id": *f.ScholarshipID})
	}
	if len(f.Statuses) > 0 {
		q = q.Where(squirrel.Eq{"a.status": f.Statuses})
	}
	if f.DecidedBy != nil {
		q = q.Where(squirrel.Eq{"a.final_decision_by": *f.DecidedBy})
	}
	if f.FinalOnly {
		q = q.Where("a.final_decision_at IS NOT NULL")
	}
	if f.ReviewedBy != nil {
		q = q.Where(squirrel.Eq{"a.reviewed_by": *f.ReviewedBy})
	}
	if f.Unassigned {
		q = q.Where("a.reviewed_by IS NULL")
	}
	if f.Search != "" {
		q = q.Where(ilikeAny(f.Search, "st.first_name", "st.last_name", "st.email", "s.title"))
	}
	return q
}

func (r *ApplicationRepository) countBase() squirrel.SelectBuilder {
	return r.sb.Select("COUNT(*)").
		From("applications a").
		Join("users st ON st.id = a.student_id").
		Join("scholarships s ON s.id = a.scholarship_id")
}

// List returns one page of applications and the total matching count
func (r *ApplicationRepository) List(ctx context.Context, f models.ApplicationFilter) ([]*models.Application, int64, error) {
	countSQL, countArgs, err := applyApplicationFilter(r.countBase(), f).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count applications query: %w", err)
	}
	var total int64
	if err := r.conn(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting applications: %w", err)
	}

	order := "a.submitted_at DESC"
	if f.FinalOnly {
		order = "a.final_decision_at DESC"
	}
	q := applyApplicationFilter(r.selectJoined(), f).OrderBy(order, "a.id DESC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit)).Offset(f.Offset)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list applications query: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list applications query")
		return nil, 0, fmt.Errorf("error listing applications: %w", err)
	}
	defer rows.Close()

	items := []*models.Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning application row: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating application rows: %w", err)
	}
	return items, total, nil
}

// CountByStatus returns per-status counts of applications matching f. f.Statuses is ignored.
func (r *ApplicationRepository) CountByStatus(ctx context.Context, f models.ApplicationFilter) (map[workflow.Status]int64, error) {
	f.Statuses = nil
	q := applyApplicationFilter(
		r.sb.Select("a.status", "COUNT(*)").
			From("applications a").
			Join("users st ON st.id = a.student_id").
			Join("scholarships s ON s.id = a.scholarship_id"), f).
		GroupBy("a.status")
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build count by status query: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error counting applications by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[workflow.Status]int64, len(workflow.AllStatuses()))
	for _, s := range workflow.AllStatuses() {
		counts[s] = 0
	}
	for rows.Next() {
		var status workflow.Status
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("error scanning status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CountApproved returns the number of approved applications for a scholarship
func (r *ApplicationRepository) CountApproved(ctx context.Context, scholarshipID int64) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM applications WHERE scholarship_id = $1 AND status = $2`,
		scholarshipID, workflow.StatusApproved).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error counting approved applications: %w", err)
	}
	return n, nil
}

// ExistsForStudent reports whether the student already applied to the scholarship
func (r *ApplicationRepository) ExistsForStudent(ctx context.Context, studentID, scholarshipID int64) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM applications WHERE student_id = $1 AND scholarship_id = $2)`,
		studentID, scholarshipID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking existing application: %w", err)
	}
	return exists, nil
}

// ListStudentIDsByStatus returns the distinct students holding an application in status
func (r *ApplicationRepository) ListStudentIDsByStatus(ctx context.Context, scholarshipID int64, status workflow.Status) ([]int64, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT DISTINCT student_id FROM applications WHERE scholarship_id = $1 AND status = $2 ORDER BY student_id`,
		scholarshipID, status)
	if err != nil {
		return nil, fmt.Errorf("error listing applicants: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}
