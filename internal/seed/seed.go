package seed

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	appModels "github.com/yigit/scholarsphere/internal/app/models"
	appRepos "github.com/yigit/scholarsphere/internal/app/repositories"
	"github.com/yigit/scholarsphere/internal/pkg/auth"
)

// Default accounts created on an empty database
const (
	DefaultAdminEmail    = "admin@scholarsphere.app"
	DefaultAdminPassword = "Admin123!"
	DefaultOSASEmail     = "osas@scholarsphere.app"
	DefaultOSASPassword  = "Osas1234!"
)

var catalogue = []appModels.DocumentRequirement{
	{DocumentType: appModels.DocCertificateEnrollment, Description: "Certificate of enrollment for the current term", IsRequired: true},
	{DocumentType: appModels.DocCertificateGrades, Description: "Grades from the previous term", IsRequired: true},
	{DocumentType: appModels.DocTranscript, Description: "Official transcript of records", IsRequired: true},
	{DocumentType: appModels.DocCertificateIndigency, Description: "Issued by the barangay of residence", IsRequired: false},
	{DocumentType: appModels.DocRecommendationLetter, Description: "From a faculty member or adviser", IsRequired: false},
	{DocumentType: appModels.DocEssay, Description: "Essay of at most 500 words", IsRequired: false, AcceptedFormats: "PDF, DOC, DOCX, TXT"},
	{DocumentType: appModels.DocTaxReturn, Description: "Parents' latest income tax return", IsRequired: false},
}

// CreateDefaultData creates the document catalogue, the default staff accounts and a sample scholarship.
// Every step is skipped when its data already exists so the seed can run on each start.
func CreateDefaultData(ctx context.Context, repos *appRepos.Repositories, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating default data...")
	var finalErr error

	var requirementIDs []int64
	for i := range catalogue {
		req := catalogue[i]
		exists, err := repos.DocumentRepository.RequirementExists(ctx, req.DocumentType, req.CustomName)
		if err != nil {
			finalErr = errors.Join(finalErr, err)
			continue
		}
		if exists {
			continue
		}
		if req.AcceptedFormats == "" {
			req.AcceptedFormats = appModels.DefaultAcceptedFormats
		}
		req.MaxFileSizeMB = appModels.DefaultMaxFileSizeMB
		id, err := repos.DocumentRepository.CreateRequirement(ctx, &req)
		if err != nil {
			lgr.Error().Err(err).Str("documentType", string(req.DocumentType)).Msg("Error creating document requirement")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		if req.IsRequired {
			requirementIDs = append(requirementIDs, id)
		}
	}

	adminID, err := ensureStaff(ctx, repos, lgr, DefaultAdminEmail, DefaultAdminPassword, "System", "Administrator", appModels.RoleAdmin)
	if err != nil {
		finalErr = errors.Join(finalErr, err)
	}
	if _, err := ensureStaff(ctx, repos, lgr, DefaultOSASEmail, DefaultOSASPassword, "OSAS", "Officer", appModels.RoleOSAS); err != nil {
		finalErr = errors.Join(finalErr, err)
	}

	if adminID > 0 {
		if err := ensureSampleScholarship(ctx, repos, lgr, adminID, requirementIDs); err != nil {
			finalErr = errors.Join(finalErr, err)
		}
	}

	lgr.Info().Msg("Default data check/creation finished.")
	return finalErr
}

// ensureStaff returns the id of the account with email, creating it when missing
func ensureStaff(ctx context.Context, repos *appRepos.Repositories, lgr zerolog.Logger, email, password, first, last string, role appModels.RoleType) (int64, error) {
	if existing, err := repos.UserRepository.GetUserByEmail(ctx, email); err == nil {
		lgr.Debug().Str("email", email).Msg("Staff account already exists, skipping creation")
		return existing.ID, nil
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		lgr.Error().Err(err).Msg("Error hashing staff password")
		return 0, err
	}
	id, err := repos.UserRepository.CreateUser(ctx, &appModels.User{
		Email:     email,
		Password:  hashed,
		FirstName: first,
		LastName:  last,
		RoleType:  role,
		IsActive:  true,
	})
	if err != nil {
		lgr.Error().Err(err).Str("email", email).Msg("Error creating staff account")
		return 0, err
	}
	lgr.Info().Int64("userID", id).Str("role", string(role)).Msg("Default staff account created")
	return id, nil
}

func ensureSampleScholarship(ctx context.Context, repos *appRepos.Repositories, lgr zerolog.Logger, adminID int64, requirementIDs []int64) error {
	total, _, err := repos.ScholarshipRepository.CountAll(ctx)
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}

	id, err := repos.ScholarshipRepository.Create(ctx, &appModels.Scholarship{
		Title:               "Academic Excellence Grant",
		Description:         "Tuition support for students with outstanding academic records.",
		EligibilityCriteria: "Enrolled full time with a GPA of 3.25 or higher",
		AwardAmount:         25000,
		Deadline:            time.Now().AddDate(0, 1, 0),
		AvailableSlots:      10,
		IsActive:            true,
		CreatedBy:           adminID,
	})
	if err != nil {
		lgr.Error().Err(err).Msg("Error creating sample scholarship")
		return err
	}

	notes := "Computed from the last two terms"
	reqs := []appModels.ScholarshipRequirement{
		{ScholarshipID: id, Category: appModels.RequirementAcademic, Description: "GPA of 3.25 or higher", Notes: &notes, SortOrder: 1},
		{ScholarshipID: id, Category: appModels.RequirementEligibility, Description: "Currently enrolled with at least 18 units", SortOrder: 1},
	}
	for i := range reqs {
		if _, err := repos.ScholarshipRepository.AddRequirement(ctx, &reqs[i]); err != nil {
			return err
		}
	}
	if len(requirementIDs) > 0 {
		if err := repos.ScholarshipRepository.SetDocumentRequirements(ctx, id, requirementIDs); err != nil {
			return err
		}
	}
	lgr.Info().Int64("scholarshipID", id).Msg("Sample scholarship created")
	return nil
}
