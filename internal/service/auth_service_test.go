package service

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/feedreach-backend/internal/identity"
	"github.com/ignatzorin/feedreach-backend/internal/models"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
	"github.com/ignatzorin/feedreach-backend/internal/repository"
)

// mockAuthRepository реализует AuthRepository для тестов.
type mockAuthRepository struct {
	usersByEmail map[string]*models.User
	usersByID    map[uuid.UUID]*models.User
	sessions     map[string]*models.Session
	resets       map[string]*models.PasswordResetToken
}

func newMockAuthRepository() *mockAuthRepository {
	return &mockAuthRepository{
		usersByEmail: make(map[string]*models.User),
		usersByID:    make(map[uuid.UUID]*models.User),
		sessions:     make(map[string]*models.Session),
		resets:       make(map[string]*models.PasswordResetToken),
	}
}

func (m *mockAuthRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = uuid.New()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.VerificationStatus = models.VerificationNone
	user.AccountStatus = models.AccountActive
	m.usersByEmail[user.Email] = user
	m.usersByID[user.ID] = user
	return nil
}

func (m *mockAuthRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := m.usersByEmail[email]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockAuthRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := m.usersByID[id]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockAuthRepository) GetByFirebaseUID(ctx context.Context, uid string) (*models.User, error) {
	for _, user := range m.usersByID {
		if user.FirebaseUID != nil && *user.FirebaseUID == uid {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockAuthRepository) LinkFirebaseUID(ctx context.Context, userID uuid.UUID, uid string) error {
	user, ok := m.usersByID[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.FirebaseUID = &uid
	return nil
}

func (m *mockAuthRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	user, ok := m.usersByID[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (m *mockAuthRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	if user, ok := m.usersByID[userID]; ok {
		now := time.Now()
		user.LastLoginAt = &now
	}
	return nil
}

func (m *mockAuthRepository) SetAccountStatus(ctx context.Context, userID uuid.UUID, status string, until *time.Time) error {
	user, ok := m.usersByID[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.AccountStatus = status
	user.SuspendedUntil = until
	return nil
}

func (m *mockAuthRepository) CreateSession(ctx context.Context, session *models.Session) error {
	session.ID = uuid.New()
	session.CreatedAt = time.Now()
	m.sessions[session.RefreshToken] = session
	return nil
}

func (m *mockAuthRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	if _, ok := m.sessions[refreshToken]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(m.sessions, refreshToken)
	return nil
}

func (m *mockAuthRepository) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	var sessions []models.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			sessions = append(sessions, *s)
		}
	}
	return sessions, nil
}

func (m *mockAuthRepository) DeleteSessionByID(ctx context.Context, sessionID, userID uuid.UUID) error {
	for token, s := range m.sessions {
		if s.ID == sessionID && s.UserID == userID {
			delete(m.sessions, token)
			return nil
		}
	}
	return repository.ErrSessionNotFound
}

func (m *mockAuthRepository) DeleteAllSessions(ctx context.Context, userID uuid.UUID) error {
	for token, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, token)
		}
	}
	return nil
}

func (m *mockAuthRepository) CreatePasswordReset(ctx context.Context, token *models.PasswordResetToken) error {
	token.CreatedAt = time.Now()
	m.resets[token.TokenHash] = token
	return nil
}

func (m *mockAuthRepository) ConsumePasswordReset(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	token, ok := m.resets[tokenHash]
	if !ok {
		return nil, repository.ErrResetTokenNotFound
	}
	delete(m.resets, tokenHash)
	return token, nil
}

type captureMailer struct {
	to, link string
}

func (m *captureMailer) SendPasswordReset(ctx context.Context, to, name, link, ttl string) error {
	m.to, m.link = to, link
	return nil
}

type stubIdentity struct {
	identity *identity.ExternalIdentity
	err      error
}

func (s stubIdentity) Verify(ctx context.Context, idToken string) (*identity.ExternalIdentity, error) {
	return s.identity, s.err
}

func newTestAuthService(repo *mockAuthRepository, mailer ResetMailer, verifier IdentityVerifier) *AuthService {
	tm := NewTokenManager("access", "refresh", time.Minute, time.Hour)
	return NewAuthService(repo, tm, mailer, verifier, AuthSettings{
		IsAdminEmail:     func(email string) bool { return email == "admin@feedreach.org" },
		PasswordResetTTL: time.Hour,
		PasswordResetURL: "https://feedreach.org/reset",
	})
}

func registerDonor(t *testing.T, svc *AuthService, email string) *AuthResult {
	t.Helper()
	result, err := svc.Register(context.Background(), RegisterInput{
		Email:       email,
		Password:    "rice2024",
		DisplayName: "Анна",
		Role:        models.RoleDonor,
	}, SessionMeta{UserAgent: "test", IP: "127.0.0.1"})
	require.NoError(t, err)
	return result
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	repo := newMockAuthRepository()
	svc := newTestAuthService(repo, nil, nil)

	result := registerDonor(t, svc, "Anna@Example.com")
	assert.Equal(t, "anna@example.com", result.User.Email)
	assert.Equal(t, models.RoleDonor, result.User.Role)
	assert.False(t, result.User.IsAdmin)
	assert.NotEmpty(t, result.TokenPair.AccessToken)
	assert.Len(t, repo.sessions, 1)

	login, err := svc.Login(context.Background(), LoginInput{Email: "anna@example.com", Password: "rice2024"}, SessionMeta{})
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, login.User.ID)

	_, err = svc.Login(context.Background(), LoginInput{Email: "anna@example.com", Password: "wrong-pass1"}, SessionMeta{})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "rice2024"}, SessionMeta{})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc := newTestAuthService(newMockAuthRepository(), nil, nil)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "anna@example.com", Password: "rice2024", DisplayName: "Анна", Role: "admin",
	}, SessionMeta{})
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Register(context.Background(), RegisterInput{
		Email: "anna@example.com", Password: "short", DisplayName: "Анна", Role: models.RoleNGO,
	}, SessionMeta{})
	assert.True(t, apperror.IsValidation(err))

	registerDonor(t, svc, "anna@example.com")
	_, err = svc.Register(context.Background(), RegisterInput{
		Email: "anna@example.com", Password: "rice2024", DisplayName: "Анна", Role: models.RoleDonor,
	}, SessionMeta{})
	assert.True(t, apperror.IsConflict(err))
}

func TestAuthService_AdminEmail(t *testing.T) {
	svc := newTestAuthService(newMockAuthRepository(), nil, nil)
	result := registerDonor(t, svc, "admin@feedreach.org")
	assert.True(t, result.User.IsAdmin)

	principal, err := svc.tokenManager.ParseAccess(result.TokenPair.AccessToken)
	require.NoError(t, err)
	assert.True(t, principal.IsAdmin)
	assert.Equal(t, result.User.ID, principal.UserID)
}

func TestAuthService_AccountStatus(t *testing.T) {
	repo := newMockAuthRepository()
	svc := newTestAuthService(repo, nil, nil)
	user := registerDonor(t, svc, "anna@example.com").User

	user.AccountStatus = models.AccountBanned
	_, err := svc.Login(context.Background(), LoginInput{Email: "anna@example.com", Password: "rice2024"}, SessionMeta{})
	assert.True(t, apperror.IsForbidden(err))

	future := time.Now().Add(24 * time.Hour)
	user.AccountStatus = models.AccountSuspended
	user.SuspendedUntil = &future
	_, err = svc.Login(context.Background(), LoginInput{Email: "anna@example.com", Password: "rice2024"}, SessionMeta{})
	assert.True(t, apperror.IsForbidden(err))

	past := time.Now().Add(-time.Hour)
	user.SuspendedUntil = &past
	_, err = svc.Login(context.Background(), LoginInput{Email: "anna@example.com", Password: "rice2024"}, SessionMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.AccountActive, user.AccountStatus)
	assert.Nil(t, user.SuspendedUntil)
}

func TestAuthService_Refresh(t *testing.T) {
	repo := newMockAuthRepository()
	svc := newTestAuthService(repo, nil, nil)
	result := registerDonor(t, svc, "anna@example.com")

	pair, err := svc.Refresh(context.Background(), result.TokenPair.RefreshToken, SessionMeta{})
	require.NoError(t, err)
	assert.NotEqual(t, result.TokenPair.RefreshToken, pair.RefreshToken)

	_, err = svc.Refresh(context.Background(), result.TokenPair.RefreshToken, SessionMeta{})
	assert.Equal(t, apperror.ErrCodeUnauthorized, apperror.CodeOf(err))

	_, err = svc.Refresh(context.Background(), "garbage", SessionMeta{})
	assert.Equal(t, apperror.ErrCodeUnauthorized, apperror.CodeOf(err))
}

func TestAuthService_Logout(t *testing.T) {
	repo := newMockAuthRepository()
	svc := newTestAuthService(repo, nil, nil)
	result := registerDonor(t, svc, "anna@example.com")

	require.NoError(t, svc.Logout(context.Background(), result.TokenPair.RefreshToken))
	assert.Empty(t, repo.sessions)
	assert.NoError(t, svc.Logout(context.Background(), result.TokenPair.RefreshToken))
}

func TestAuthService_PasswordReset(t *testing.T) {
	repo := newMockAuthRepository()
	mailer := &captureMailer{}
	svc := newTestAuthService(repo, mailer, nil)
	registerDonor(t, svc, "anna@example.com")

	require.NoError(t, svc.ForgotPassword(context.Background(), "nobody@example.com"))
	assert.Empty(t, mailer.link)

	require.NoError(t, svc.ForgotPassword(context.Background(), "anna@example.com"))
	require.NotEmpty(t, mailer.link)
	assert.Equal(t, "anna@example.com", mailer.to)
	assert.True(t, strings.HasPrefix(mailer.link, "https://feedreach.org/reset?token="))

	parsed, err := url.Parse(mailer.link)
	require.NoError(t, err)
	token := parsed.Query().Get("token")

	for hash := range repo.resets {
		assert.NotEqual(t, token, hash)
	}

	require.NoError(t, svc.ResetPassword(context.Background(), token, "newrice2025"))
	assert.Empty(t, repo.sessions)

	err = svc.ResetPassword(context.Background(), token, "newrice2025")
	assert.Equal(t, apperror.ErrCodeBadRequest, apperror.CodeOf(err))

	_, err = svc.Login(context.Background(), LoginInput{Email: "anna@example.com", Password: "newrice2025"}, SessionMeta{})
	assert.NoError(t, err)
}

func TestAuthService_PasswordResetExpired(t *testing.T) {
	repo := newMockAuthRepository()
	mailer := &captureMailer{}
	svc := newTestAuthService(repo, mailer, nil)
	registerDonor(t, svc, "anna@example.com")
	require.NoError(t, svc.ForgotPassword(context.Background(), "anna@example.com"))

	parsed, _ := url.Parse(mailer.link)
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	err := svc.ResetPassword(context.Background(), parsed.Query().Get("token"), "newrice2025")
	assert.Equal(t, apperror.ErrCodeBadRequest, apperror.CodeOf(err))
}

func TestAuthService_LoginExternal(t *testing.T) {
	repo := newMockAuthRepository()
	verifier := stubIdentity{identity: &identity.ExternalIdentity{UID: "fb-1", Email: "ngo@example.org", DisplayName: "Фудбанк"}}
	svc := newTestAuthService(repo, nil, verifier)

	_, err := svc.LoginExternal(context.Background(), ExternalLoginInput{IDToken: "t"}, SessionMeta{})
	assert.True(t, apperror.IsValidation(err))

	result, err := svc.LoginExternal(context.Background(), ExternalLoginInput{IDToken: "t", Role: models.RoleNGO}, SessionMeta{})
	require.NoError(t, err)
	assert.Equal(t, "Фудбанк", result.User.DisplayName)
	assert.Equal(t, models.RoleNGO, result.User.Role)

	again, err := svc.LoginExternal(context.Background(), ExternalLoginInput{IDToken: "t"}, SessionMeta{})
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, again.User.ID)
}

func TestAuthService_LoginExternalLinksExistingEmail(t *testing.T) {
	repo := newMockAuthRepository()
	verifier := stubIdentity{identity: &identity.ExternalIdentity{UID: "fb-2", Email: "anna@example.com"}}
	svc := newTestAuthService(repo, nil, verifier)
	registered := registerDonor(t, svc, "anna@example.com")

	result, err := svc.LoginExternal(context.Background(), ExternalLoginInput{IDToken: "t"}, SessionMeta{})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, result.User.ID)
	require.NotNil(t, result.User.FirebaseUID)
	assert.Equal(t, "fb-2", *result.User.FirebaseUID)
}

func TestAuthService_LoginExternalNotConfigured(t *testing.T) {
	svc := newTestAuthService(newMockAuthRepository(), nil, nil)
	_, err := svc.LoginExternal(context.Background(), ExternalLoginInput{IDToken: "t"}, SessionMeta{})
	assert.Equal(t, apperror.ErrCodeUnavailable, apperror.CodeOf(err))
}
