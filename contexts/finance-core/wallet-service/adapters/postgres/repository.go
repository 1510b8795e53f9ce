package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"flowsmartly/contexts/finance-core/wallet-service/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

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

type walletModel struct {
	OwnerID        string    `gorm:"column:owner_id;primaryKey"`
	BalanceCents   int64     `gorm:"column:balance_cents"`
	Currency       string    `gorm:"column:currency"`
	PayoutMethod   string    `gorm:"column:payout_method"`
	BillingProfile string    `gorm:"column:billing_profile"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (walletModel) TableName() string { return "wallets" }

func (m walletModel) toPort() ports.Wallet {
	return ports.Wallet{
		OwnerID:        m.OwnerID,
		BalanceCents:   m.BalanceCents,
		Currency:       m.Currency,
		PayoutMethod:   m.PayoutMethod,
		BillingProfile: m.BillingProfile,
		UpdatedAt:      m.UpdatedAt,
	}
}

type payoutRequestModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	OwnerID     string    `gorm:"column:owner_id"`
	AmountCents int64     `gorm:"column:amount_cents"`
	Status      string    `gorm:"column:status"`
	RequestedAt time.Time `gorm:"column:requested_at"`
}

func (payoutRequestModel) TableName() string { return "payout_requests" }

func (r *Repository) GetWallet(ctx context.Context, ownerID string) (ports.Wallet, bool, error) {
	var row walletModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", strings.TrimSpace(ownerID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Wallet{}, false, nil
		}
		return ports.Wallet{}, false, r.logError("wallet_repo_get_failed", err,
			"owner_id", strings.TrimSpace(ownerID),
		)
	}
	return row.toPort(), true, nil
}

func (r *Repository) SaveWallet(ctx context.Context, wallet ports.Wallet) error {
	row := walletModel{
		OwnerID:        wallet.OwnerID,
		BalanceCents:   wallet.BalanceCents,
		Currency:       wallet.Currency,
		PayoutMethod:   wallet.PayoutMethod,
		BillingProfile: wallet.BillingProfile,
		UpdatedAt:      wallet.UpdatedAt,
	}
	save := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}},
		UpdateAll: true,
	}).Create(&row)
	if save.Error != nil {
		return r.logError("wallet_repo_save_failed", save.Error,
			"owner_id", wallet.OwnerID,
		)
	}
	return nil
}

func (r *Repository) CreatePayoutRequest(ctx context.Context, payout ports.PayoutRequest) error {
	row := payoutRequestModel{
		ID:          payout.PayoutID,
		OwnerID:     payout.OwnerID,
		AmountCents: payout.AmountCents,
		Status:      payout.Status,
		RequestedAt: payout.RequestedAt,
	}
	create := r.db.WithContext(ctx).Create(&row)
	if create.Error != nil {
		return r.logError("wallet_repo_create_payout_failed", create.Error,
			"payout_id", payout.PayoutID,
			"owner_id", payout.OwnerID,
		)
	}
	return nil
}

func (r *Repository) ListPayoutRequests(ctx context.Context, ownerID string) ([]ports.PayoutRequest, error) {
	var rows []payoutRequestModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", strings.TrimSpace(ownerID)).
		Order("requested_at DESC").
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("wallet_repo_list_payouts_failed", err,
			"owner_id", strings.TrimSpace(ownerID),
		)
	}
	payouts := make([]ports.PayoutRequest, 0, len(rows))
	for _, row := range rows {
		payouts = append(payouts, ports.PayoutRequest{
			PayoutID:    row.ID,
			OwnerID:     row.OwnerID,
			AmountCents: row.AmountCents,
			Status:      row.Status,
			RequestedAt: row.RequestedAt,
		})
	}
	return payouts, nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "finance-core/wallet-service",
		"layer", "adapter_postgres",
		"error", err.Error(),
	}, args...)
	r.logger.Error("wallet repository operation failed", fields...)
	return err
}

var _ ports.Repository = (*Repository)(nil)
