package validation

import (
	"math"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	// Student number, e.g. 2021-00123
	StudentNumberPattern = `^[0-9A-Za-z][0-9A-Za-z\-]{3,19}$`

	// Password min length
	PasswordMinLength = 8

	// GPA bounds on a 4.00 scale
	MinGPA = 0.0
	MaxGPA = 4.0
)

// CompiledPatterns caches compiled regex patterns for better performance
var CompiledPatterns = struct {
	StudentNumber *regexp.Regexp
}{
	StudentNumber: regexp.MustCompile(StudentNumberPattern),
}

// ValidGPA reports whether g lies in [0.00, 4.00] with at most two decimals
func ValidGPA(g float64) bool {
	if math.IsNaN(g) || g < MinGPA || g > MaxGPA {
		return false
	}
	scaled := g * 100
	return math.Abs(scaled-math.Round(scaled)) < 1e-6
}

// ValidStudentNumber checks the student number format
func ValidStudentNumber(s string) bool {
	return CompiledPatterns.StudentNumber.MatchString(s)
}

// ValidPassword requires the minimum length, a letter and a digit
func ValidPassword(p string) bool {
	if len(p) < PasswordMinLength {
		return false
	}
	return strings.ContainsAny(p, "0123456789") &&
		strings.IndexFunc(p, func(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }) >= 0
}

// RegisterCustomValidators adds the gpa, decision and student_number tags to v
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("gpa", func(fl validator.FieldLevel) bool {
		return ValidGPA(fl.Field().Float())
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("decision", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "approve", "reject":
			return true
		}
		return false
	}); err != nil {
		return err
	}
	return v.RegisterValidation("student_number", func(fl validator.FieldLevel) bool {
		return ValidStudentNumber(fl.Field().String())
	})
}
