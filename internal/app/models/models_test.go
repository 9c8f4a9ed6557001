package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDocumentRequirementExtensions(t *testing.T) {
	req := &DocumentRequirement{AcceptedFormats: "PDF, .docx ,JPG"}
	assert.Equal(t, []string{"pdf", "docx", "jpg", "jpeg"}, req.AllowedExtensions())

	empty := &DocumentRequirement{}
	assert.Equal(t, []string{"pdf", "doc", "docx", "jpg", "jpeg", "png"}, empty.AllowedExtensions())
	assert.Equal(t, int64(5<<20), empty.MaxBytes())
}

func TestDocumentRequirementDisplayName(t *testing.T) {
	name := "Parent's Consent"
	assert.Equal(t, "Parent's Consent", (&DocumentRequirement{DocumentType: DocOther, CustomName: &name}).DisplayName())
	assert.Equal(t, "Other", (&DocumentRequirement{DocumentType: DocOther}).DisplayName())
	assert.Equal(t, "Transcript of Records", (&DocumentRequirement{DocumentType: DocTranscript}).DisplayName())
}

func TestScholarshipDeadlineHelpers(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &Scholarship{IsActive: true, Deadline: now.Add(36 * time.Hour), AvailableSlots: 3, ApprovedCount: 1}

	assert.True(t, s.IsOpen(now))
	assert.Equal(t, 2, s.DaysUntilDeadline(now))
	assert.Equal(t, 2, s.RemainingSlots())

	s.Deadline = now.Add(-time.Minute)
	assert.False(t, s.IsOpen(now))
	assert.Equal(t, 0, s.DaysUntilDeadline(now))

	s.ApprovedCount = 5
	assert.Equal(t, 0, s.RemainingSlots())
}
