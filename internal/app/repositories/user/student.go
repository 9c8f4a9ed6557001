package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/scholarsphere/internal/app/models"
	database "github.com/yigit/scholarsphere/internal/db"
	"github.com/yigit/scholarsphere/internal/pkg/apperrors"
	"github.com/yigit/scholarsphere/internal/pkg/dberrors"
	"github.com/yigit/scholarsphere/internal/pkg/logger"
)

// StudentRepository handles student profile database operations
type StudentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(db *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateProfile creates a student profile for an existing user
func (r *StudentRepository) CreateProfile(ctx context.Context, p *models.StudentProfile) error {
	sql, args, err := r.sb.Insert("student_profiles").
		Columns("user_id", "student_number", "department", "year_level", "campus", "phone").
		Values(p.UserID, p.StudentNumber, p.Department, p.YearLevel, p.Campus, p.Phone).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create student profile query: %w", err)
	}

	if _, err = database.Conn(ctx, r.db).Exec(ctx, sql, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "student_profiles_student_number_key") {
			logger.Warn().Str("studentNumber", p.StudentNumber).Msg("Attempted to create student with duplicate student number")
			return apperrors.ErrStudentNumberExists
		}
		return fmt.Errorf("error creating student profile: %w", err)
	}

	logger.Info().Int64("userID", p.UserID).Str("studentNumber", p.StudentNumber).Msg("Student profile created")
	return nil
}

// GetProfile retrieves the profile of a student user
func (r *StudentRepository) GetProfile(ctx context.Context, userID int64) (*models.StudentProfile, error) {
	sql, args, err := r.sb.Select("user_id", "student_number", "department", "year_level", "campus", "phone").
		From("student_profiles").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get student profile query: %w", err)
	}

	p := &models.StudentProfile{}
	err = database.Conn(ctx, r.db).QueryRow(ctx, sql, args...).
		Scan(&p.UserID, &p.StudentNumber, &p.Department, &p.YearLevel, &p.Campus, &p.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting student profile: %w", err)
	}
	return p, nil
}

// UpdateProfile updates the editable student profile fields
func (r *StudentRepository) UpdateProfile(ctx context.Context, p *models.StudentProfile) error {
	sql, args, err := r.sb.Update("student_profiles").
		SetMap(map[string]interface{}{
			"department": p.Department,
			"year_level": p.YearLevel,
			"campus":     p.Campus,
			"phone":      p.Phone,
		}).
		Where(squirrel.Eq{"user_id": p.UserID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update student profile query: %w", err)
	}

	tag, err := database.Conn(ctx, r.db).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating student profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// StudentNumberExists checks if a student number is taken
func (r *StudentRepository) StudentNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := database.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM student_profiles WHERE student_number = $1)`, number).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking student number: %w", err)
	}
	return exists, nil
}

// ListActiveWithoutApplication returns active students who have not applied to a scholarship
func (r *StudentRepository) ListActiveWithoutApplication(ctx context.Context, scholarshipID int64) ([]int64, error) {
	sql, args, err := r.sb.Select("u.id").
		From("users u").
		Where(squirrel.Eq{"u.role_type": models.RoleStudent, "u.is_active": true}).
		Where("NOT EXISTS (SELECT 1 FROM applications a WHERE a.student_id = u.id AND a.scholarship_id = ?)", scholarshipID).
		OrderBy("u.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build reminder recipients query: %w", err)
	}

	rows, err := database.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing reminder recipients: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}
