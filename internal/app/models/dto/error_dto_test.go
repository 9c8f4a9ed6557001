package dto

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/scholarsphere/internal/pkg/validation"
)

func TestHandleValidationError(t *testing.T) {
	v := validator.New()
	require.NoError(t, validation.RegisterCustomValidators(v))

	type profile struct {
		StudentNumber string  `validate:"student_number"`
		Email         string  `validate:"required,email"`
		Gpa           float64 `validate:"gpa"`
	}

	t.Run("each failed field gets its message", func(t *testing.T) {
		detail := HandleValidationError(v.Struct(profile{StudentNumber: "#", Email: "nope", Gpa: 4.5}))
		assert.Equal(t, ErrorCodeValidationFailed, detail.Code)
		assert.Empty(t, detail.Field)

		errs, ok := detail.Details.([]ErrorDetail)
		require.True(t, ok)
		messages := make(map[string]string, len(errs))
		for _, e := range errs {
			messages[e.Field] = e.Message
		}
		assert.Equal(t, map[string]string{
			"studentNumber": "studentNumber has an invalid format",
			"email":         "email must be a valid email address",
			"gpa":           "gpa must be between 0.00 and 4.00",
		}, messages)
	})

	t.Run("single failure names the field", func(t *testing.T) {
		detail := HandleValidationError(v.Struct(profile{StudentNumber: "2021-00123", Gpa: 3.2}))
		assert.Equal(t, "email", detail.Field)
	})

	t.Run("non validator error", func(t *testing.T) {
		detail := HandleValidationError(errors.New("unexpected EOF"))
		assert.Equal(t, ErrorCodeValidationFailed, detail.Code)
		assert.Equal(t, "unexpected EOF", detail.Details)
	})
}
