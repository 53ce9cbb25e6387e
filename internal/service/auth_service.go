package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/feedreach-backend/internal/identity"
	"github.com/ignatzorin/feedreach-backend/internal/logger"
	"github.com/ignatzorin/feedreach-backend/internal/models"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
	"github.com/ignatzorin/feedreach-backend/internal/repository"
	"github.com/ignatzorin/feedreach-backend/internal/validation"
)

// AuthRepository описывает зависимости AuthService от слоя хранилища.
type AuthRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByFirebaseUID(ctx context.Context, uid string) (*models.User, error)
	LinkFirebaseUID(ctx context.Context, userID uuid.UUID, uid string) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error
	SetAccountStatus(ctx context.Context, userID uuid.UUID, status string, until *time.Time) error
	CreateSession(ctx context.Context, session *models.Session) error
	DeleteSession(ctx context.Context, refreshToken string) error
	ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error)
	DeleteSessionByID(ctx context.Context, sessionID, userID uuid.UUID) error
	DeleteAllSessions(ctx context.Context, userID uuid.UUID) error
	CreatePasswordReset(ctx context.Context, token *models.PasswordResetToken) error
	ConsumePasswordReset(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
}

// ResetMailer отправляет письмо со ссылкой сброса пароля.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, to, name, link, ttl string) error
}

// IdentityVerifier проверяет токен внешнего провайдера.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*identity.ExternalIdentity, error)
}

// AuthSettings параметры AuthService из конфигурации.
type AuthSettings struct {
	IsAdminEmail     func(email string) bool
	PasswordResetTTL time.Duration
	PasswordResetURL string
}

// AuthService инкапсулирует бизнес-логику регистрации и аутентификации.
type AuthService struct {
	repo         AuthRepository
	tokenManager *TokenManager
	mailer       ResetMailer
	verifier     IdentityVerifier
	settings     AuthSettings
	now          func() time.Time
}

// RegisterInput содержит данные пользователя при регистрации.
type RegisterInput struct {
	Email            string
	Password         string
	DisplayName      string
	Role             string
	Phone            *string
	OrganizationName *string
}

// LoginInput содержит данные для входа.
type LoginInput struct {
	Email    string
	Password string
}

// ExternalLoginInput вход по токену внешнего провайдера.
// Role и DisplayName нужны только при первом входе.
type ExternalLoginInput struct {
	IDToken     string
	Role        string
	DisplayName string
}

// SessionMeta сведения о клиенте для сохранения сессии.
type SessionMeta struct {
	UserAgent string
	IP        string
}

// AuthResult возвращает итог регистрации или авторизации.
type AuthResult struct {
	User      *models.User `json:"user"`
	TokenPair *TokenPair   `json:"tokens"`
}

// NewAuthService создаёт сервис аутентификации. mailer и verifier могут быть nil.
func NewAuthService(repo AuthRepository, tokenManager *TokenManager, mailer ResetMailer, verifier IdentityVerifier, settings AuthSettings) *AuthService {
	if settings.IsAdminEmail == nil {
		settings.IsAdminEmail = func(string) bool { return false }
	}
	if settings.PasswordResetTTL <= 0 {
		settings.PasswordResetTTL = time.Hour
	}
	return &AuthService{
		repo:         repo,
		tokenManager: tokenManager,
		mailer:       mailer,
		verifier:     verifier,
		settings:     settings,
		now:          time.Now,
	}
}

// Register создаёт нового донора или НКО.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, meta SessionMeta) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateDisplayName(in.DisplayName); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateRole(in.Role); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePhone(in.Phone); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось захешировать пароль")
	}

	user := &models.User{
		Email:            email,
		PasswordHash:     string(passHash),
		DisplayName:      strings.TrimSpace(in.DisplayName),
		Role:             in.Role,
		IsAdmin:          s.settings.IsAdminEmail(email),
		Phone:            trimmedOrNil(in.Phone),
		OrganizationName: trimmedOrNil(in.OrganizationName),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать пользователя")
	}

	return s.issue(ctx, user, meta)
}

// Login проверяет учётные данные и возвращает токены.
func (s *AuthService) Login(ctx context.Context, in LoginInput, meta SessionMeta) (*AuthResult, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить пользователя")
	}

	if user.PasswordHash == "" {
		return nil, apperror.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	if err := s.checkAccount(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(ctx, user, meta)
}

// LoginExternal обменивает Firebase ID токен на пару токенов платформы.
// Существующий пользователь с тем же email привязывается к внешнему UID.
func (s *AuthService) LoginExternal(ctx context.Context, in ExternalLoginInput, meta SessionMeta) (*AuthResult, error) {
	if s.verifier == nil {
		return nil, apperror.New(apperror.ErrCodeUnavailable, "вход через внешний провайдер не настроен")
	}

	ext, err := s.verifier.Verify(ctx, in.IDToken)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeUnauthorized, "токен провайдера недействителен")
	}

	user, err := s.repo.GetByFirebaseUID(ctx, ext.UID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrUserNotFound):
		user, err = s.linkOrCreateExternal(ctx, ext, in)
		if err != nil {
			return nil, err
		}
	default:
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить пользователя")
	}

	if err := s.checkAccount(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(ctx, user, meta)
}

func (s *AuthService) linkOrCreateExternal(ctx context.Context, ext *identity.ExternalIdentity, in ExternalLoginInput) (*models.User, error) {
	email := normalizeEmail(ext.Email)

	existing, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		if err := s.repo.LinkFirebaseUID(ctx, existing.ID, ext.UID); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось привязать аккаунт")
		}
		uid := ext.UID
		existing.FirebaseUID = &uid
		return existing, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить пользователя")
	}

	if err := validation.ValidateRole(in.Role); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, "для первого входа укажите роль: "+err.Error())
	}

	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		name = strings.TrimSpace(ext.DisplayName)
	}
	if name == "" {
		name = strings.Split(email, "@")[0]
	}

	uid := ext.UID
	user := &models.User{
		Email:       email,
		FirebaseUID: &uid,
		DisplayName: name,
		Role:        in.Role,
		IsAdmin:     s.settings.IsAdminEmail(email),
	}
	if ext.PhotoURL != "" {
		photo := ext.PhotoURL
		user.PhotoURL = &photo
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать пользователя")
	}
	return user, nil
}

// Refresh выпускает новую пару токенов. Старый refresh токен одноразовый.
func (s *AuthService) Refresh(ctx context.Context, oldToken string, meta SessionMeta) (*TokenPair, error) {
	claims, err := s.tokenManager.ParseRefresh(oldToken)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeUnauthorized, "refresh токен невалиден")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeUnauthorized, "refresh токен невалиден")
	}

	if err := s.repo.DeleteSession(ctx, oldToken); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperror.New(apperror.ErrCodeUnauthorized, "сессия завершена")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить сессию")
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUnauthorized
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить пользователя")
	}
	if !user.CanSignIn(s.now()) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "аккаунт заблокирован")
	}

	return s.issueSession(ctx, user, meta)
}

// Logout завершает сессию. Повторный logout не считается ошибкой.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.repo.DeleteSession(ctx, refreshToken); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось завершить сессию")
	}
	return nil
}

// Me возвращает текущего пользователя.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить пользователя")
	}
	return user, nil
}

// ListSessions возвращает список активных сессий пользователя.
func (s *AuthService) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	sessions, err := s.repo.ListSessions(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить сессии")
	}
	return sessions, nil
}

// DeleteSession удаляет сессию по идентификатору.
func (s *AuthService) DeleteSession(ctx context.Context, sessionID, userID uuid.UUID) error {
	if err := s.repo.DeleteSessionByID(ctx, sessionID, userID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "сессия не найдена")
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось удалить сессию")
	}
	return nil
}

// ForgotPassword отправляет ссылку сброса. Для неизвестного email молча ничего не делает.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить пользователя")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось создать токен")
	}
	token := hex.EncodeToString(raw)

	reset := &models.PasswordResetToken{
		TokenHash: hashResetToken(token),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.settings.PasswordResetTTL),
	}
	if err := s.repo.CreatePasswordReset(ctx, reset); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить токен")
	}

	if s.mailer == nil {
		return nil
	}
	link := s.settings.PasswordResetURL + "?token=" + url.QueryEscape(token)
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.DisplayName, link, s.settings.PasswordResetTTL.String()); err != nil {
		logger.Component("auth").WithFields(map[string]interface{}{
			"user_id": user.ID,
			"error":   err.Error(),
		}).Error("не удалось отправить письмо сброса пароля")
	}
	return nil
}

// ResetPassword меняет пароль по одноразовому токену и завершает все сессии.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	reset, err := s.repo.ConsumePasswordReset(ctx, hashResetToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrResetTokenNotFound) {
			return apperror.New(apperror.ErrCodeBadRequest, "ссылка сброса недействительна")
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить токен")
	}
	if s.now().After(reset.ExpiresAt) {
		return apperror.New(apperror.ErrCodeBadRequest, "срок действия ссылки истёк")
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось захешировать пароль")
	}
	if err := s.repo.UpdatePassword(ctx, reset.UserID, string(passHash)); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить пароль")
	}
	if err := s.repo.DeleteAllSessions(ctx, reset.UserID); err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось завершить сессии")
	}
	return nil
}

// checkAccount не пускает забаненных и приостановленных, снимает истёкшую приостановку.
func (s *AuthService) checkAccount(ctx context.Context, user *models.User) error {
	now := s.now()
	if !user.CanSignIn(now) {
		if user.AccountStatus == models.AccountBanned {
			return apperror.New(apperror.ErrCodeForbidden, "аккаунт заблокирован")
		}
		return apperror.New(apperror.ErrCodeForbidden, "аккаунт временно приостановлен")
	}

	if user.AccountStatus == models.AccountSuspended {
		if err := s.repo.SetAccountStatus(ctx, user.ID, models.AccountActive, nil); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось восстановить аккаунт")
		}
		user.AccountStatus = models.AccountActive
		user.SuspendedUntil = nil
	}
	return nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User, meta SessionMeta) (*AuthResult, error) {
	if err := s.repo.UpdateLastLoginAt(ctx, user.ID); err != nil {
		logger.Component("auth").WithFields(map[string]interface{}{
			"user_id": user.ID,
			"error":   err.Error(),
		}).Warn("не удалось обновить last_login_at")
	}

	pair, err := s.issueSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, TokenPair: pair}, nil
}

func (s *AuthService) issueSession(ctx context.Context, user *models.User, meta SessionMeta) (*TokenPair, error) {
	pair, refreshExp, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось выпустить токены")
	}

	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    refreshExp,
	}
	if meta.UserAgent != "" {
		ua := meta.UserAgent
		session.UserAgent = &ua
	}
	if meta.IP != "" {
		ip := meta.IP
		session.IPAddress = &ip
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить сессию")
	}
	return pair, nil
}

func (s *AuthService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return apperror.New(apperror.ErrCodeConflict, "email уже зарегистрирован")
	case errors.Is(err, repository.ErrUserNotFound):
		return nil
	default:
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить email")
	}
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
