package models

import (
	"time"
)

// User defines the user model based on the 'users' table
type User struct {
	ID          int64      `json:"id" db:"id" example:"1"`
	Email       string     `json:"email" db:"email" example:"juan@school.edu.ph"`
	Password    string     `json:"-" db:"password"`
	FirstName   string     `json:"firstName" db:"first_name" example:"Juan"`
	LastName    string     `json:"lastName" db:"last_name" example:"Dela Cruz"`
	RoleType    RoleType   `json:"roleType" db:"role_type" example:"STUDENT"`
	IsActive    bool       `json:"isActive" db:"is_active" example:"true"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`

	// Populated for students only
	Profile *StudentProfile `json:"profile,omitempty"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// StudentProfile defines the 'student_profiles' table
type StudentProfile struct {
	UserID        int64     `json:"userId" db:"user_id"`
	StudentNumber string    `json:"studentNumber" db:"student_number" example:"2021-00123"`
	Department    string    `json:"department" db:"department" example:"College of Engineering"`
	YearLevel     YearLevel `json:"yearLevel" db:"year_level" example:"3rd"`
	Campus        string    `json:"campus" db:"campus" example:"Main"`
	Phone         *string   `json:"phone,omitempty" db:"phone"`
}
