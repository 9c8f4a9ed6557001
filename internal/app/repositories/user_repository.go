package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/scholarsphere/internal/app/models"
	"github.com/yigit/scholarsphere/internal/app/repositories/user"
)

// UserRepository combines all user-related repositories
type UserRepository struct {
	common  *user.Repository
	student *user.StudentRepository
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		common:  user.NewRepository(db),
		student: user.NewStudentRepository(db),
	}
}

// CreateUser creates a new user
func (r *UserRepository) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	return r.common.CreateUser(ctx, u)
}

// GetUserByEmail retrieves a user by email
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.common.GetUserByEmail(ctx, email)
}

// GetUserByID retrieves a user by ID, with the student profile for students
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := r.common.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.RoleType == models.RoleStudent {
		profile, err := r.student.GetProfile(ctx, id)
		if err == nil {
			u.Profile = profile
		}
	}
	return u, nil
}

// EmailExists checks if an email already exists
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.common.EmailExists(ctx, email)
}

// UpdateLastLogin updates the last login time
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID int64) error {
	return r.common.UpdateLastLogin(ctx, userID)
}

// UpdateName updates a user's name
func (r *UserRepository) UpdateName(ctx context.Context, userID int64, firstName, lastName string) error {
	return r.common.UpdateName(ctx, userID, firstName, lastName)
}

// CreateStudentProfile creates a student profile
func (r *UserRepository) CreateStudentProfile(ctx context.Context, p *models.StudentProfile) error {
	return r.student.CreateProfile(ctx, p)
}

// UpdateStudentProfile updates a student profile
func (r *UserRepository) UpdateStudentProfile(ctx context.Context, p *models.StudentProfile) error {
	return r.student.UpdateProfile(ctx, p)
}

// StudentNumberExists checks if a student number already exists
func (r *UserRepository) StudentNumberExists(ctx context.Context, number string) (bool, error) {
	return r.student.StudentNumberExists(ctx, number)
}

// ListActiveIDsByRole returns ids of active users with role
func (r *UserRepository) ListActiveIDsByRole(ctx context.Context, role models.RoleType) ([]int64, error) {
	return r.common.ListActiveIDsByRole(ctx, role)
}

// ListStudentsWithoutApplication returns active students who have not applied to scholarshipID
func (r *UserRepository) ListStudentsWithoutApplication(ctx context.Context, scholarshipID int64) ([]int64, error) {
	return r.student.ListActiveWithoutApplication(ctx, scholarshipID)
}

// CountByRole returns user counts per role
func (r *UserRepository) CountByRole(ctx context.Context) (map[models.RoleType]int64, error) {
	return r.common.CountByRole(ctx)
}
