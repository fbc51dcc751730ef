package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/funnelform/funnelform-backend/internal/apperrors"
	"github.com/funnelform/funnelform-backend/internal/logger"
	"github.com/funnelform/funnelform-backend/internal/types"
)

type EmailTokenRepo interface {
	Create(ctx context.Context, tx *gorm.DB, token *types.EmailToken) (*types.EmailToken, error)
	GetActiveByHash(ctx context.Context, tx *gorm.DB, tokenHash, purpose string) (*types.EmailToken, error)
	MarkUsed(ctx context.Context, tx *gorm.DB, tokenID uuid.UUID) error
}

type emailTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEmailTokenRepo(db *gorm.DB, baseLog *logger.Logger) EmailTokenRepo {
	repoLog := baseLog.With("repo", "EmailTokenRepo")
	return &emailTokenRepo{db: db, log: repoLog}
}

func (etr *emailTokenRepo) Create(ctx context.Context, tx *gorm.DB, token *types.EmailToken) (*types.EmailToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = etr.db
	}
	if err := transaction.WithContext(ctx).Create(token).Error; err != nil {
		return nil, err
	}
	return token, nil
}

// GetActiveByHash only matches tokens that are unexpired and unused; a
// consumed or stale token is indistinguishable from a missing one.
func (etr *emailTokenRepo) GetActiveByHash(ctx context.Context, tx *gorm.DB, tokenHash, purpose string) (*types.EmailToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = etr.db
	}
	var result types.EmailToken
	if err := transaction.WithContext(ctx).
		Where("token_hash = ? AND purpose = ? AND used_at IS NULL AND expires_at > ?", tokenHash, purpose, time.Now()).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

// MarkUsed consumes the token exactly once. A concurrent consumer that
// commits first leaves zero rows for the second update, which must fail so
// the losing transaction rolls back instead of acting on a spent token.
func (etr *emailTokenRepo) MarkUsed(ctx context.Context, tx *gorm.DB, tokenID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = etr.db
	}
	result := transaction.WithContext(ctx).
		Model(&types.EmailToken{}).
		Where("id = ? AND used_at IS NULL", tokenID).
		Update("used_at", time.Now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
