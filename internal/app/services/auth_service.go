package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/scholarsphere/internal/app/models"
	"github.com/yigit/scholarsphere/internal/app/models/dto"
	database "github.com/yigit/scholarsphere/internal/db"
	"github.com/yigit/scholarsphere/internal/pkg/apperrors"
	"github.com/yigit/scholarsphere/internal/pkg/auth"
	"github.com/yigit/scholarsphere/internal/pkg/validation"
)

// TokenIssuer signs token pairs for a user
type TokenIssuer interface {
	GenerateTokenPair(user *models.User) (*auth.TokenPair, error)
}

// AuthService handles authentication operations
type AuthService struct {
	userRepo   UserStore
	tokenRepo  TokenStore
	jwtService TokenIssuer
	tx         database.Transactor
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo UserStore,
	tokenRepo TokenStore,
	jwtService TokenIssuer,
	tx database.Transactor,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		jwtService: jwtService,
		tx:         tx,
		logger:     logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateEmail validates email format
func (s *AuthService) validateEmail(email string) error {
	if email == "" {
		return apperrors.NewValidationError("email", "email cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperrors.NewCustomError(apperrors.ErrInvalidEmail, "invalid email format").
			WithDetails(map[string]interface{}{"field": "email"})
	}
	return nil
}

// validatePassword validates password strength
func (s *AuthService) validatePassword(password string) error {
	if !validation.ValidPassword(password) {
		return apperrors.ErrInvalidPassword
	}
	return nil
}

// Register creates a student account and its profile, then signs the student in
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if err := s.validateEmail(email); err != nil {
		return nil, err
	}
	if err := s.validatePassword(req.Password); err != nil {
		return nil, err
	}
	if !validation.ValidStudentNumber(req.StudentNumber) {
		return nil, apperrors.NewValidationError("studentNumber", "student number may only contain digits and dashes")
	}
	if !req.YearLevel.IsValid() {
		return nil, apperrors.NewValidationError("yearLevel", "unknown year level")
	}

	exists, err := s.userRepo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("error checking if email exists: %w", err)
	}
	if exists {
		return nil, apperrors.ErrEmailAlreadyExists
	}
	exists, err = s.userRepo.StudentNumberExists(ctx, req.StudentNumber)
	if err != nil {
		return nil, fmt.Errorf("error checking if student number exists: %w", err)
	}
	if exists {
		return nil, apperrors.ErrStudentNumberExists
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:     email,
		Password:  hashed,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		RoleType:  models.RoleStudent,
		IsActive:  true,
	}
	profile := &models.StudentProfile{
		StudentNumber: req.StudentNumber,
		Department:    req.Department,
		YearLevel:     req.YearLevel,
		Campus:        req.Campus,
		Phone:         req.Phone,
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		id, err := s.userRepo.CreateUser(ctx, user)
		if err != nil {
			return err
		}
		user.ID = id
		profile.UserID = id
		return s.userRepo.CreateStudentProfile(ctx, profile)
	})
	if err != nil {
		return nil, err
	}
	user.Profile = profile

	s.logger.Info().Int64("userID", user.ID).Str("email", email).Msg("Student registered")
	return s.authResponse(ctx, user)
}

// CreateStaff creates an OSAS or admin account
func (s *AuthService) CreateStaff(ctx context.Context, email, password, firstName, lastName string, role models.RoleType) (*models.User, error) {
	if !role.IsStaff() {
		return nil, apperrors.NewValidationError("role", "role must be OSAS or ADMIN")
	}
	email = normalizeEmail(email)
	if err := s.validateEmail(email); err != nil {
		return nil, err
	}
	if err := s.validatePassword(password); err != nil {
		return nil, err
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:     email,
		Password:  hashed,
		FirstName: firstName,
		LastName:  lastName,
		RoleType:  role,
		IsActive:  true,
	}
	id, err := s.userRepo.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID = id
	s.logger.Info().Int64("userID", id).Str("role", string(role)).Msg("Staff account created")
	return user, nil
}

// Login authenticates a user
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	if req.Password == "" {
		return nil, apperrors.NewValidationError("password", "password cannot be empty")
	}

	user, err := s.userRepo.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(user.Password, req.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Failed to update last login")
	}
	full, err := s.userRepo.GetUserByID(ctx, user.ID)
	if err == nil {
		user = full
	}
	return s.authResponse(ctx, user)
}

// RefreshToken rotates a refresh token: the old one is revoked and a new pair issued
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperrors.ErrTokenInvalid
	}

	userID, _, err := s.tokenRepo.GetTokenByValue(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	// Revoke first so a replayed token cannot mint a second pair
	if err := s.tokenRepo.RevokeToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to revoke old token: %w", err)
	}
	return s.issue(ctx, user)
}

// Logout revokes the refresh token, or every token of the user when all is set
func (s *AuthService) Logout(ctx context.Context, userID int64, refreshToken string, all bool) error {
	if all {
		return s.tokenRepo.RevokeAllUserTokens(ctx, userID)
	}
	if strings.TrimSpace(refreshToken) == "" {
		return apperrors.ErrTokenInvalid
	}
	return s.tokenRepo.RevokeToken(ctx, refreshToken)
}

// GetProfile retrieves user profile
func (s *AuthService) GetProfile(ctx context.Context, userID int64) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponse(user), nil
}

// UpdateProfile changes the user's name and, for students, the profile fields
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.YearLevel != "" && !req.YearLevel.IsValid() {
		return nil, apperrors.NewValidationError("yearLevel", "unknown year level")
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.userRepo.UpdateName(ctx, userID, strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName)); err != nil {
			return err
		}
		if user.RoleType != models.RoleStudent || user.Profile == nil {
			return nil
		}
		p := *user.Profile
		if req.Department != "" {
			p.Department = req.Department
		}
		if req.YearLevel != "" {
			p.YearLevel = req.YearLevel
		}
		if req.Campus != "" {
			p.Campus = req.Campus
		}
		if req.Phone != nil {
			p.Phone = req.Phone
		}
		return s.userRepo.UpdateStudentProfile(ctx, &p)
	})
	if err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

func (s *AuthService) authResponse(ctx context.Context, user *models.User) (*dto.AuthResponse, error) {
	token, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{Token: *token, User: dto.NewUserResponse(user)}, nil
}

// issue creates a token pair and stores the refresh token
func (s *AuthService) issue(ctx context.Context, user *models.User) (*dto.TokenResponse, error) {
	pair, err := s.jwtService.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("token generation error: %w", err)
	}
	if err := s.tokenRepo.CreateToken(ctx, pair.RefreshToken, user.ID, pair.RefreshExpiresAt); err != nil {
		return nil, fmt.Errorf("token saving error: %w", err)
	}
	return &dto.TokenResponse{
		AccessToken:           pair.AccessToken,
		TokenType:             "Bearer",
		ExpiresIn:             pair.ExpiresIn,
		RefreshToken:          pair.RefreshToken,
		RefreshTokenExpiresIn: pair.RefreshExpiresIn,
	}, nil
}
