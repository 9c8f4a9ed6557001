package models

// RoleType defines the user role type
type RoleType string

const (
	RoleStudent RoleType = "STUDENT"
	RoleOSAS    RoleType = "OSAS"
	RoleAdmin   RoleType = "ADMIN"
)

// IsStaff reports whether the role reviews applications.
func (r RoleType) IsStaff() bool {
	return r == RoleOSAS || r == RoleAdmin
}

// IsValid reports whether r is a known role.
func (r RoleType) IsValid() bool {
	switch r {
	case RoleStudent, RoleOSAS, RoleAdmin:
		return true
	}
	return false
}

// YearLevel is a student's year of study
type YearLevel string

const (
	YearFirst    YearLevel = "1st"
	YearSecond   YearLevel = "2nd"
	YearThird    YearLevel = "3rd"
	YearFourth   YearLevel = "4th"
	YearGraduate YearLevel = "graduate"
)

// IsValid reports whether y is a known year level.
func (y YearLevel) IsValid() bool {
	switch y {
	case YearFirst, YearSecond, YearThird, YearFourth, YearGraduate:
		return true
	}
	return false
}
