package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/scholarsphere/internal/app/models"
	"github.com/yigit/scholarsphere/internal/app/models/dto"
	"github.com/yigit/scholarsphere/internal/pkg/apperrors"
	"github.com/yigit/scholarsphere/internal/pkg/auth"
)

type memUserStore struct {
	byID   map[int64]*models.User
	nextID int64
	logins int
}

func newMemUserStore() *memUserStore {
	return &memUserStore{byID: map[int64]*models.User{}}
}

func (m *memUserStore) CreateUser(_ context.Context, u *models.User) (int64, error) {
	for _, x := range m.byID {
		if x.Email == u.Email {
			return 0, apperrors.ErrEmailAlreadyExists
		}
	}
	m.nextID++
	cp := *u
	cp.ID = m.nextID
	m.byID[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (m *memUserStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return u, nil
}

func (m *memUserStore) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.GetUserByEmail(ctx, email)
	return err == nil, nil
}

func (m *memUserStore) UpdateLastLogin(_ context.Context, id int64) error {
	m.logins++
	now := time.Now()
	m.byID[id].LastLoginAt = &now
	return nil
}

func (m *memUserStore) UpdateName(_ context.Context, id int64, first, last string) error {
	m.byID[id].FirstName, m.byID[id].LastName = first, last
	return nil
}

func (m *memUserStore) CreateStudentProfile(_ context.Context, p *models.StudentProfile) error {
	cp := *p
	m.byID[p.UserID].Profile = &cp
	return nil
}

func (m *memUserStore) UpdateStudentProfile(_ context.Context, p *models.StudentProfile) error {
	cp := *p
	m.byID[p.UserID].Profile = &cp
	return nil
}

func (m *memUserStore) StudentNumberExists(_ context.Context, number string) (bool, error) {
	for _, u := range m.byID {
		if u.Profile != nil && u.Profile.StudentNumber == number {
			return true, nil
		}
	}
	return false, nil
}

type memTokenStore struct {
	tokens  map[string]int64
	revoked map[string]bool
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{tokens: map[string]int64{}, revoked: map[string]bool{}}
}

func (m *memTokenStore) CreateToken(_ context.Context, token string, userID int64, _ time.Time) error {
	m.tokens[token] = userID
	return nil
}

func (m *memTokenStore) GetTokenByValue(_ context.Context, token string) (int64, time.Time, error) {
	id, ok := m.tokens[token]
	if !ok {
		return 0, time.Time{}, apperrors.ErrTokenNotFound
	}
	if m.revoked[token] {
		return 0, time.Time{}, apperrors.ErrTokenRevoked
	}
	return id, time.Now().Add(time.Hour), nil
}

func (m *memTokenStore) RevokeToken(_ context.Context, token string) error {
	m.revoked[token] = true
	return nil
}

func (m *memTokenStore) RevokeAllUserTokens(_ context.Context, userID int64) error {
	for tok, id := range m.tokens {
		if id == userID {
			m.revoked[tok] = true
		}
	}
	return nil
}

type countingIssuer struct{ n int }

func (c *countingIssuer) GenerateTokenPair(u *models.User) (*auth.TokenPair, error) {
	c.n++
	return &auth.TokenPair{
		AccessToken:      fmt.Sprintf("access-%d-%d", u.ID, c.n),
		RefreshToken:     fmt.Sprintf("refresh-%d-%d", u.ID, c.n),
		RefreshExpiresAt: time.Now().Add(24 * time.Hour),
		ExpiresIn:        900,
		RefreshExpiresIn: 86400,
	}, nil
}

func newAuthFixture() (*AuthService, *memUserStore, *memTokenStore) {
	users := newMemUserStore()
	tokens := newMemTokenStore()
	return NewAuthService(users, tokens, &countingIssuer{}, &fakeTx{}, zerolog.Nop()), users, tokens
}

func registerRequest() *dto.RegisterRequest {
	return &dto.RegisterRequest{
		Email:         " Juan@School.edu ",
		Password:      "secret123",
		FirstName:     "Juan",
		LastName:      "Dela Cruz",
		StudentNumber: "2021-00123",
		Department:    "College of Engineering",
		YearLevel:     models.YearThird,
		Campus:        "Main",
	}
}

func TestRegisterCreatesStudentWithProfile(t *testing.T) {
	svc, users, tokens := newAuthFixture()

	resp, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)
	assert.Equal(t, "juan@school.edu", resp.User.Email)
	assert.Equal(t, models.RoleStudent, resp.User.Role)
	require.NotNil(t, resp.User.Profile)
	assert.Equal(t, "2021-00123", resp.User.Profile.StudentNumber)
	assert.Equal(t, "Bearer", resp.Token.TokenType)
	assert.Contains(t, tokens.tokens, resp.Token.RefreshToken)

	stored := users.byID[resp.User.ID]
	assert.NotEqual(t, "secret123", stored.Password)
	assert.True(t, auth.CheckPassword(stored.Password, "secret123"))
}

func TestRegisterRejections(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAuthFixture()
	_, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	dupEmail := registerRequest()
	dupEmail.StudentNumber = "2021-00999"
	_, err = svc.Register(ctx, dupEmail)
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)

	dupNumber := registerRequest()
	dupNumber.Email = "ana@school.edu"
	_, err = svc.Register(ctx, dupNumber)
	assert.ErrorIs(t, err, apperrors.ErrStudentNumberExists)

	weak := registerRequest()
	weak.Email = "weak@school.edu"
	weak.Password = "password"
	_, err = svc.Register(ctx, weak)
	assert.ErrorIs(t, err, apperrors.ErrInvalidPassword)

	badNumber := registerRequest()
	badNumber.Email = "bad@school.edu"
	badNumber.StudentNumber = "21/00123"
	_, err = svc.Register(ctx, badNumber)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, users, _ := newAuthFixture()
	_, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &dto.LoginRequest{Email: "JUAN@school.edu", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token.AccessToken)
	assert.Equal(t, 1, users.logins)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "juan@school.edu", Password: "wrong123"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "nobody@school.edu", Password: "secret123"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials, "unknown e-mail looks like a bad password")

	users.byID[resp.User.ID].IsActive = false
	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "juan@school.edu", Password: "secret123"})
	assert.ErrorIs(t, err, apperrors.ErrAccountDisabled)
}

func TestRefreshRotatesToken(t *testing.T) {
	ctx := context.Background()
	svc, _, tokens := newAuthFixture()
	reg, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)
	old := reg.Token.RefreshToken

	fresh, err := svc.RefreshToken(ctx, old)
	require.NoError(t, err)
	assert.NotEqual(t, old, fresh.RefreshToken)
	assert.True(t, tokens.revoked[old])

	_, err = svc.RefreshToken(ctx, old)
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked, "a rotated token cannot be replayed")

	_, err = svc.RefreshToken(ctx, " ")
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}

func TestLogoutAll(t *testing.T) {
	ctx := context.Background()
	svc, _, tokens := newAuthFixture()
	reg, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)
	login, err := svc.Login(ctx, &dto.LoginRequest{Email: "juan@school.edu", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, reg.User.ID, "", true))
	assert.True(t, tokens.revoked[reg.Token.RefreshToken])
	assert.True(t, tokens.revoked[login.Token.RefreshToken])

	assert.ErrorIs(t, svc.Logout(ctx, reg.User.ID, "", false), apperrors.ErrTokenInvalid)
}

func TestCreateStaff(t *testing.T) {
	svc, _, _ := newAuthFixture()

	u, err := svc.CreateStaff(context.Background(), "osas@school.edu", "reviewer1", "Maria", "Santos", models.RoleOSAS)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOSAS, u.RoleType)

	_, err = svc.CreateStaff(context.Background(), "x@school.edu", "reviewer1", "X", "Y", models.RoleStudent)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAuthFixture()
	reg, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	resp, err := svc.UpdateProfile(ctx, reg.User.ID, &dto.UpdateProfileRequest{
		FirstName: "Juan Miguel",
		LastName:  "Dela Cruz",
		YearLevel: models.YearFourth,
	})
	require.NoError(t, err)
	assert.Equal(t, "Juan Miguel", resp.FirstName)
	assert.Equal(t, models.YearFourth, resp.Profile.YearLevel)
	assert.Equal(t, "Main", resp.Profile.Campus)

	_, err = svc.UpdateProfile(ctx, reg.User.ID, &dto.UpdateProfileRequest{FirstName: "a", LastName: "b", YearLevel: "5th"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}
