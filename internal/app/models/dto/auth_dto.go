package dto

import (
	"time"

	"github.com/yigit/scholarsphere/internal/app/models"
)

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken           string `json:"accessToken"`
	TokenType             string `json:"tokenType" example:"Bearer"`
	ExpiresIn             int64  `json:"expiresIn"`
	RefreshToken          string `json:"refreshToken,omitempty"`
	RefreshTokenExpiresIn int64  `json:"refreshTokenExpiresIn,omitempty"`
}

// RefreshTokenRequest represents refresh token request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RegisterRequest is the student self-registration payload
type RegisterRequest struct {
	Email         string           `json:"email" binding:"required,email"`
	Password      string           `json:"password" binding:"required,min=8"`
	FirstName     string           `json:"firstName" binding:"required,max=150"`
	LastName      string           `json:"lastName" binding:"required,max=150"`
	StudentNumber string           `json:"studentNumber" binding:"required,max=20,student_number" example:"2021-00123"`
	Department    string           `json:"department" binding:"required,max=100"`
	YearLevel     models.YearLevel `json:"yearLevel" binding:"required,oneof=1st 2nd 3rd 4th graduate" example:"3rd"`
	Campus        string           `json:"campus" binding:"required,max=100"`
	Phone         *string          `json:"phone,omitempty" binding:"omitempty,max=20"`
}

// UpdateProfileRequest represents profile update data. Student fields are ignored for staff.
type UpdateProfileRequest struct {
	FirstName  string           `json:"firstName" binding:"required,max=150"`
	LastName   string           `json:"lastName" binding:"required,max=150"`
	Department string           `json:"department,omitempty" binding:"omitempty,max=100"`
	YearLevel  models.YearLevel `json:"yearLevel,omitempty" binding:"omitempty,oneof=1st 2nd 3rd 4th graduate"`
	Campus     string           `json:"campus,omitempty" binding:"omitempty,max=100"`
	Phone      *string          `json:"phone,omitempty" binding:"omitempty,max=20"`
}

// StudentProfileResponse holds the student-only profile fields
type StudentProfileResponse struct {
	StudentNumber string           `json:"studentNumber" example:"2021-00123"`
	Department    string           `json:"department" example:"College of Engineering"`
	YearLevel     models.YearLevel `json:"yearLevel" example:"3rd"`
	Campus        string           `json:"campus" example:"Main"`
	Phone         *string          `json:"phone,omitempty"`
}

// UserResponse represents basic user information
type UserResponse struct {
	ID          int64                   `json:"id"`
	Email       string                  `json:"email"`
	FirstName   string                  `json:"firstName"`
	LastName    string                  `json:"lastName"`
	Role        models.RoleType         `json:"role" example:"STUDENT" enums:"STUDENT,OSAS,ADMIN"`
	IsActive    bool                    `json:"isActive"`
	LastLoginAt *time.Time              `json:"lastLoginAt,omitempty"`
	Profile     *StudentProfileResponse `json:"profile,omitempty"`
}

// NewUserResponse maps a user model to its API shape
func NewUserResponse(u *models.User) *UserResponse {
	if u == nil {
		return nil
	}
	resp := &UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        u.RoleType,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
	}
	if p := u.Profile; p != nil {
		resp.Profile = &StudentProfileResponse{
			StudentNumber: p.StudentNumber,
			Department:    p.Department,
			YearLevel:     p.YearLevel,
			Campus:        p.Campus,
			Phone:         p.Phone,
		}
	}
	return resp
}

// AuthResponse represents successful authentication response
type AuthResponse struct {
	Token TokenResponse `json:"token"`
	User  *UserResponse `json:"user"`
}

// LogoutRequest revokes one refresh token, or all of the user's tokens
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
	All          bool   `json:"all"`
}
