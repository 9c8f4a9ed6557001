package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/scholarsphere/internal/app/models"
	database "github.com/yigit/scholarsphere/internal/db"
	"github.com/yigit/scholarsphere/internal/pkg/apperrors"
	"github.com/yigit/scholarsphere/internal/pkg/dberrors"
)

// Repository handles common user database operations
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{
		db: db,
	}
}

const userColumns = `id, email, password, first_name, last_name, role_type, is_active, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FirstName, &u.LastName,
		&u.RoleType, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error scanning user: %w", err)
	}
	return u, nil
}

// CreateUser creates a new user
func (r *Repository) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	var id int64
	err := database.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO users (email, password, first_name, last_name, role_type, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		user.Email, user.Password, user.FirstName, user.LastName, user.RoleType, user.IsActive).Scan(&id)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "users_email_key") {
			return 0, apperrors.ErrEmailAlreadyExists
		}
		return 0, fmt.Errorf("error creating user: %w", err)
	}

	return id, nil
}

// GetUserByEmail retrieves a user by email
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(database.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(database.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// EmailExists checks if an email already exists
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := database.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = lower($1))`,
		email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking email: %w", err)
	}

	return exists, nil
}

// UpdateLastLogin updates the last login time
func (r *Repository) UpdateLastLogin(ctx context.Context, userID int64) error {
	_, err := database.Conn(ctx, r.db).Exec(ctx, `
		UPDATE users
		SET last_login_at = $1
		WHERE id = $2`,
		time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update last login time: %w", err)
	}

	return nil
}

// UpdateName updates a user's first and last name
func (r *Repository) UpdateName(ctx context.Context, userID int64, firstName, lastName string) error {
	tag, err := database.Conn(ctx, r.db).Exec(ctx, `
		UPDATE users
		SET first_name = $1, last_name = $2, updated_at = NOW()
		WHERE id = $3`,
		firstName, lastName, userID)
	if err != nil {
		return fmt.Errorf("failed to update user name: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// ListActiveIDsByRole returns ids of active users holding role
func (r *Repository) ListActiveIDsByRole(ctx context.Context, role models.RoleType) ([]int64, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, `
		SELECT id FROM users WHERE role_type = $1 AND is_active ORDER BY id`, role)
	if err != nil {
		return nil, fmt.Errorf("error listing users by role: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// CountByRole returns the number of users per role
func (r *Repository) CountByRole(ctx context.Context) (map[models.RoleType]int64, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, `
		SELECT role_type, COUNT(*) FROM users GROUP BY role_type`)
	if err != nil {
		return nil, fmt.Errorf("error counting users: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.RoleType]int64)
	for rows.Next() {
		var role models.RoleType
		var n int64
		if err := rows.Scan(&role, &n); err != nil {
			return nil, fmt.Errorf("error scanning user count: %w", err)
		}
		counts[role] = n
	}
	return counts, rows.Err()
}
