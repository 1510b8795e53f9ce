package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"flowsmartly/contexts/identity-access/session-service/domain/entities"
	"flowsmartly/contexts/identity-access/session-service/ports"

	"gorm.io/gorm"
)

// Repository backs the session store and the account projection with the
// shared users table. Sessions are plain rows; revocation is an update, not
// a delete, so the audit trail keeps the full lifecycle.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (entities.Account, bool, error) {
	var row accountModel
	err := r.db.WithContext(ctx).
		Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Account{}, false, nil
		}
		return entities.Account{}, false, r.logError("session_repo_get_account_by_email_failed", err)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) GetAccount(ctx context.Context, accountID string) (entities.Account, bool, error) {
	var row accountModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(accountID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Account{}, false, nil
		}
		return entities.Account{}, false, r.logError("session_repo_get_account_failed", err,
			"account_id", strings.TrimSpace(accountID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) CreateSession(ctx context.Context, input ports.CreateSessionInput) (entities.Session, error) {
	row := sessionModel{
		ID:          strings.TrimSpace(input.SessionID),
		PrincipalID: strings.TrimSpace(input.PrincipalID),
		IssuedAt:    input.IssuedAt.UTC(),
		ExpiresAt:   input.ExpiresAt.UTC(),
		UserAgent:   input.UserAgent,
		IPAddress:   input.IPAddress,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return entities.Session{}, r.logError("session_repo_create_session_failed", err,
			"session_id", row.ID,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetSession(ctx context.Context, sessionID string) (entities.Session, bool, error) {
	var row sessionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(sessionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Session{}, false, nil
		}
		return entities.Session{}, false, r.logError("session_repo_get_session_failed", err,
			"session_id", strings.TrimSpace(sessionID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) RevokeSession(ctx context.Context, sessionID string, revokedAt time.Time) error {
	err := r.db.WithContext(ctx).Model(&sessionModel{}).
		Where("id = ?", strings.TrimSpace(sessionID)).
		Where("revoked_at IS NULL").
		Update("revoked_at", revokedAt.UTC()).
		Error
	if err != nil {
		return r.logError("session_repo_revoke_session_failed", err,
			"session_id", strings.TrimSpace(sessionID),
		)
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "identity-access/session-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("session repository operation failed", fields...)
	return err
}

type accountModel struct {
	ID           string     `gorm:"column:id;primaryKey"`
	Email        string     `gorm:"column:email"`
	PasswordHash string     `gorm:"column:password_hash"`
	PlanTier     string     `gorm:"column:plan_tier"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	DeletedAt    *time.Time `gorm:"column:deleted_at"`
}

func (accountModel) TableName() string {
	return "users"
}

func (m accountModel) toEntity() entities.Account {
	return entities.Account{
		AccountID:    m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		PlanTier:     m.PlanTier,
		CreatedAt:    m.CreatedAt.UTC(),
		DisabledAt:   normalizeOptionalTime(m.DeletedAt),
	}
}

type sessionModel struct {
	ID          string     `gorm:"column:id;primaryKey"`
	PrincipalID string     `gorm:"column:principal_id"`
	IssuedAt    time.Time  `gorm:"column:issued_at"`
	ExpiresAt   time.Time  `gorm:"column:expires_at"`
	RevokedAt   *time.Time `gorm:"column:revoked_at"`
	UserAgent   string     `gorm:"column:user_agent"`
	IPAddress   string     `gorm:"column:ip_address"`
}

func (sessionModel) TableName() string {
	return "login_sessions"
}

func (m sessionModel) toEntity() entities.Session {
	return entities.Session{
		SessionID:   m.ID,
		PrincipalID: m.PrincipalID,
		IssuedAt:    m.IssuedAt.UTC(),
		ExpiresAt:   m.ExpiresAt.UTC(),
		RevokedAt:   normalizeOptionalTime(m.RevokedAt),
		UserAgent:   m.UserAgent,
		IPAddress:   m.IPAddress,
	}
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

var _ ports.SessionRepository = (*Repository)(nil)
var _ ports.AccountDirectory = (*Repository)(nil)
