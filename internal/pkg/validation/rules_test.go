package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidGPA(t *testing.T) {
	tests := []struct {
		gpa  float64
		want bool
	}{
		{0, true},
		{4, true},
		{3.5, true},
		{3.75, true},
		{-0.01, false},
		{4.01, false},
		{3.333, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidGPA(tt.gpa), "gpa %v", tt.gpa)
	}
}

func TestValidPassword(t *testing.T) {
	assert.True(t, ValidPassword("secret123"))
	assert.False(t, ValidPassword("short1"))
	assert.False(t, ValidPassword("onlyletters"))
	assert.False(t, ValidPassword("1234567890"))
}

func TestRegisterCustomValidators(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterCustomValidators(v))

	type payload struct {
		GPA      float64 `validate:"gpa"`
		Decision string  `validate:"decision"`
		Number   string  `validate:"student_number"`
	}

	assert.NoError(t, v.Struct(payload{GPA: 3.2, Decision: "approve", Number: "2021-00123"}))
	assert.Error(t, v.Struct(payload{GPA: 5, Decision: "approve", Number: "2021-00123"}))
	assert.Error(t, v.Struct(payload{GPA: 3, Decision: "maybe", Number: "2021-00123"}))
	assert.Error(t, v.Struct(payload{GPA: 3, Decision: "reject", Number: "#"}))
}
