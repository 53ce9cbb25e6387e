package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/feedreach-backend/internal/models"
	"github.com/ignatzorin/feedreach-backend/internal/repository/common"
)

var (
	// ErrUserNotFound возвращается, когда запись пользователя не найдена.
	ErrUserNotFound = fmt.Errorf("user: %w", common.ErrNotFound)
	// ErrSessionNotFound возвращается, когда сессия уже удалена или не существовала.
	ErrSessionNotFound = fmt.Errorf("session: %w", common.ErrNotFound)
	// ErrResetTokenNotFound токен сброса пароля не найден или истёк.
	ErrResetTokenNotFound = fmt.Errorf("password reset token: %w", common.ErrNotFound)
)

const userColumns = `id, email, password_hash, firebase_uid, display_name, role, is_admin,
	phone, address, organization_name, photo_url, bio,
	verification_status, verification_document_url, verification_note,
	account_status, suspended_until, warning_count,
	total_donations, people_fed, karma_points, rating_sum, review_count,
	last_login_at, created_at, updated_at`

// UserRepository отвечает за работу с таблицами users, user_sessions и password_reset_tokens.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create создаёт нового пользователя.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, firebase_uid, display_name, role, is_admin, phone, organization_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, verification_status, account_status, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		user.Email, user.PasswordHash, user.FirebaseUID, user.DisplayName, user.Role, user.IsAdmin,
		user.Phone, user.OrganizationName,
	).Scan(&user.ID, &user.VerificationStatus, &user.AccountStatus, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return fmt.Errorf("user repository: create %w", err)
	}

	return nil
}

func (r *UserRepository) getBy(ctx context.Context, field string, value interface{}) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + field + ` = $1`
	if err := r.db.GetContext(ctx, &user, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by %s %w", field, err)
	}
	return &user, nil
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "email", email)
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getBy(ctx, "id", id)
}

// GetByFirebaseUID возвращает пользователя, привязанного к Firebase аккаунту.
func (r *UserRepository) GetByFirebaseUID(ctx context.Context, uid string) (*models.User, error) {
	return r.getBy(ctx, "firebase_uid", uid)
}

// LinkFirebaseUID привязывает Firebase UID к существующему пользователю.
func (r *UserRepository) LinkFirebaseUID(ctx context.Context, userID uuid.UUID, uid string) error {
	return r.exec(ctx, "link firebase uid",
		`UPDATE users SET firebase_uid = $2, updated_at = NOW() WHERE id = $1`, userID, uid)
}

// UpdateProfile сохраняет редактируемые поля профиля.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET display_name = $2, phone = $3, address = $4, organization_name = $5, photo_url = $6, bio = $7,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		user.ID, user.DisplayName, user.Phone, user.Address, user.OrganizationName, user.PhotoURL, user.Bio,
	).Scan(&user.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("user repository: update profile %w", err)
	}
	return nil
}

// UpdatePassword меняет хеш пароля.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	return r.exec(ctx, "update password",
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, userID, passwordHash)
}

// UpdateLastLoginAt обновляет время последнего входа.
func (r *UserRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	return r.exec(ctx, "update last login",
		`UPDATE users SET last_login_at = NOW() WHERE id = $1`, userID)
}

// SetAccountStatus меняет статус аккаунта; until задаётся только для suspended.
func (r *UserRepository) SetAccountStatus(ctx context.Context, userID uuid.UUID, status string, until *time.Time) error {
	return r.exec(ctx, "set account status",
		`UPDATE users SET account_status = $2, suspended_until = $3, updated_at = NOW() WHERE id = $1`,
		userID, status, until)
}

// AddWarning увеличивает счётчик предупреждений и возвращает новое значение.
func (r *UserRepository) AddWarning(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`UPDATE users SET warning_count = warning_count + 1, updated_at = NOW() WHERE id = $1 RETURNING warning_count`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("user repository: add warning %w", err)
	}
	return count, nil
}

// SetAdminByEmail выдаёт или снимает права администратора.
func (r *UserRepository) SetAdminByEmail(ctx context.Context, email string, isAdmin bool) error {
	return r.exec(ctx, "set admin",
		`UPDATE users SET is_admin = $2, updated_at = NOW() WHERE email = $1`, email, isAdmin)
}

// SetVerification обновляет статус верификации, документ и комментарий модератора.
func (r *UserRepository) SetVerification(ctx context.Context, userID uuid.UUID, status string, documentURL, note *string) error {
	return r.exec(ctx, "set verification", `
		UPDATE users
		SET verification_status = $2,
		    verification_document_url = COALESCE($3, verification_document_url),
		    verification_note = $4,
		    updated_at = NOW()
		WHERE id = $1`, userID, status, documentURL, note)
}

// ListByVerificationStatus возвращает пользователей с указанным статусом верификации.
func (r *UserRepository) ListByVerificationStatus(ctx context.Context, status string, limit int) ([]models.User, error) {
	users := []models.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE verification_status = $1 ORDER BY updated_at ASC LIMIT $2`
	if err := r.db.SelectContext(ctx, &users, query, status, limit); err != nil {
		return nil, fmt.Errorf("user repository: list by verification %w", err)
	}
	return users, nil
}

// List возвращает пользователей, новые первыми.
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	users := []models.User{}
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &users, query, limit, offset); err != nil {
		return nil, fmt.Errorf("user repository: list %w", err)
	}
	return users, nil
}

// CountByRole возвращает количество пользователей по ролям.
func (r *UserRepository) CountByRole(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Role  string `db:"role"`
		Count int    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT role, COUNT(*) AS count FROM users GROUP BY role`); err != nil {
		return nil, fmt.Errorf("user repository: count by role %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Role] = row.Count
	}
	return out, nil
}

// AddDonationStats атомарно увеличивает счётчики пожертвований и накормленных.
func (r *UserRepository) AddDonationStats(ctx context.Context, userID uuid.UUID, donations, peopleFed int) error {
	return r.exec(ctx, "add donation stats", `
		UPDATE users
		SET total_donations = total_donations + $2, people_fed = people_fed + $3, updated_at = NOW()
		WHERE id = $1`, userID, donations, peopleFed)
}

// TopDonors пользователи с хотя бы одним завершённым пожертвованием, по убыванию.
func (r *UserRepository) TopDonors(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	return r.leaderboard(ctx, `WHERE total_donations > 0 ORDER BY total_donations DESC, people_fed DESC, id`, limit)
}

// TopByKarma пользователи с наибольшей кармой.
func (r *UserRepository) TopByKarma(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	return r.leaderboard(ctx, `WHERE karma_points > 0 ORDER BY karma_points DESC, id`, limit)
}

func (r *UserRepository) leaderboard(ctx context.Context, tail string, limit int) ([]models.LeaderboardEntry, error) {
	entries := []models.LeaderboardEntry{}
	query := `
		SELECT id, display_name, role, organization_name, photo_url, total_donations, people_fed, karma_points
		FROM users
		` + tail + ` LIMIT $1`
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("user repository: leaderboard %w", err)
	}
	return entries, nil
}

// CreateSession сохраняет refresh сессию.
func (r *UserRepository) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO user_sessions (user_id, refresh_token, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		session.UserID, session.RefreshToken, session.UserAgent, session.IPAddress, session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt); err != nil {
		return fmt.Errorf("user repository: create session %w", err)
	}
	return nil
}

// DeleteSession удаляет сессию по refresh токену. ErrSessionNotFound, если её нет.
func (r *UserRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE refresh_token = $1`, refreshToken)
	if err != nil {
		return fmt.Errorf("user repository: delete session %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListSessions возвращает активные сессии пользователя.
func (r *UserRepository) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	sessions := []models.Session{}
	query := `
		SELECT id, user_id, refresh_token, user_agent, ip_address, expires_at, created_at
		FROM user_sessions
		WHERE user_id = $1 AND expires_at > NOW()
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &sessions, query, userID); err != nil {
		return nil, fmt.Errorf("user repository: list sessions %w", err)
	}
	return sessions, nil
}

// DeleteSessionByID удаляет сессию пользователя по идентификатору.
func (r *UserRepository) DeleteSessionByID(ctx context.Context, sessionID, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("user repository: delete session by id %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteAllSessions удаляет все сессии пользователя.
func (r *UserRepository) DeleteAllSessions(ctx context.Context, userID uuid.UUID) error {
	return r.exec(ctx, "delete all sessions", `DELETE FROM user_sessions WHERE user_id = $1`, userID)
}

// CreatePasswordReset сохраняет хеш токена сброса пароля.
func (r *UserRepository) CreatePasswordReset(ctx context.Context, token *models.PasswordResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	if err := r.db.QueryRowxContext(ctx, query, token.TokenHash, token.UserID, token.ExpiresAt).Scan(&token.CreatedAt); err != nil {
		return fmt.Errorf("user repository: create password reset %w", err)
	}
	return nil
}

// ConsumePasswordReset удаляет токен и возвращает его владельца. Токен одноразовый.
func (r *UserRepository) ConsumePasswordReset(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	var token models.PasswordResetToken
	query := `
		DELETE FROM password_reset_tokens
		WHERE token_hash = $1
		RETURNING token_hash, user_id, expires_at, created_at
	`
	if err := r.db.GetContext(ctx, &token, query, tokenHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResetTokenNotFound
		}
		return nil, fmt.Errorf("user repository: consume password reset %w", err)
	}
	return &token, nil
}

func (r *UserRepository) exec(ctx context.Context, op, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("user repository: %s %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}
