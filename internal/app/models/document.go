package models

import (
	"strings"
	"time"
)

// DocumentType identifies a kind of supporting document
type DocumentType string

const (
	DocCertificateEnrollment DocumentType = "certificate_enrollment"
	DocCertificateGrades     DocumentType = "certificate_grades"
	DocCertificateIndigency  DocumentType = "certificate_indigency"
	DocBirthCertificate      DocumentType = "birth_certificate"
	DocBarangayClearance     DocumentType = "barangay_clearance"
	DocPoliceClearance       DocumentType = "police_clearance"
	DocMedicalCertificate    DocumentType = "medical_certificate"
	DocRecommendationLetter  DocumentType = "recommendation_letter"
	DocEssay                 DocumentType = "essay"
	DocTranscript            DocumentType = "transcript"
	DocTaxReturn             DocumentType = "tax_return"
	DocPayslip               DocumentType = "payslip"
	DocOther                 DocumentType = "other"
)

var documentTypeNames = map[DocumentType]string{
	DocCertificateEnrollment: "Certificate of Enrollment",
	DocCertificateGrades:     "Certificate of Grades",
	DocCertificateIndigency:  "Certificate of Indigency",
	DocBirthCertificate:      "Birth Certificate",
	DocBarangayClearance:     "Barangay Clearance",
	DocPoliceClearance:       "Police Clearance",
	DocMedicalCertificate:    "Medical Certificate",
	DocRecommendationLetter:  "Recommendation Letter",
	DocEssay:                 "Essay",
	DocTranscript:            "Transcript of Records",
	DocTaxReturn:             "Income Tax Return",
	DocPayslip:               "Payslip",
	DocOther:                 "Other",
}

// IsValid reports whether t is a known document type
func (t DocumentType) IsValid() bool {
	_, ok := documentTypeNames[t]
	return ok
}

// DocumentTypes lists every known document type
func DocumentTypes() []DocumentType {
	return []DocumentType{
		DocCertificateEnrollment, DocCertificateGrades, DocCertificateIndigency, DocBirthCertificate,
		DocBarangayClearance, DocPoliceClearance, DocMedicalCertificate, DocRecommendationLetter,
		DocEssay, DocTranscript, DocTaxReturn, DocPayslip, DocOther,
	}
}

const (
	DefaultAcceptedFormats = "PDF, DOC, DOCX, JPG, PNG"
	DefaultMaxFileSizeMB   = 5
)

// DocumentRequirement defines the 'document_requirements' table
type DocumentRequirement struct {
	ID              int64        `json:"id" db:"id"`
	DocumentType    DocumentType `json:"documentType" db:"document_type" example:"transcript"`
	CustomName      *string      `json:"customName,omitempty" db:"custom_name"`
	Description     string       `json:"description" db:"description"`
	IsRequired      bool         `json:"isRequired" db:"is_required" example:"true"`
	AcceptedFormats string       `json:"acceptedFormats" db:"accepted_formats" example:"PDF, DOC, DOCX, JPG, PNG"`
	MaxFileSizeMB   int          `json:"maxFileSizeMb" db:"max_file_size_mb" example:"5"`
	CreatedAt       time.Time    `json:"createdAt" db:"created_at"`
}

// DisplayName prefers the custom name for "other" documents
func (r *DocumentRequirement) DisplayName() string {
	if r.DocumentType == DocOther && r.CustomName != nil && *r.CustomName != "" {
		return *r.CustomName
	}
	if name, ok := documentTypeNames[r.DocumentType]; ok {
		return name
	}
	return string(r.DocumentType)
}

// AllowedExtensions parses AcceptedFormats into lower-case extensions without dots.
// JPG implies JPEG.
func (r *DocumentRequirement) AllowedExtensions() []string {
	formats := r.AcceptedFormats
	if strings.TrimSpace(formats) == "" {
		formats = DefaultAcceptedFormats
	}
	var out []string
	for _, f := range strings.Split(formats, ",") {
		ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(f), "."))
		if ext == "" {
			continue
		}
		out = append(out, ext)
		if ext == "jpg" {
			out = append(out, "jpeg")
		}
	}
	return out
}

// MaxBytes is the per-file size limit for this requirement
func (r *DocumentRequirement) MaxBytes() int64 {
	mb := r.MaxFileSizeMB
	if mb <= 0 {
		mb = DefaultMaxFileSizeMB
	}
	return int64(mb) << 20
}

// ApplicationDocument defines the 'application_documents' table
type ApplicationDocument struct {
	ID            int64     `json:"id" db:"id"`
	ApplicationID int64     `json:"applicationId" db:"application_id"`
	RequirementID *int64    `json:"requirementId,omitempty" db:"requirement_id"`
	Name          string    `json:"name" db:"name" example:"transcript.pdf"`
	FilePath      string    `json:"filePath" db:"file_path"`
	FileSize      int64     `json:"fileSize" db:"file_size"`
	MimeType      string    `json:"mimeType" db:"mime_type" example:"application/pdf"`
	UploadedAt    time.Time `json:"uploadedAt" db:"uploaded_at"`
}
