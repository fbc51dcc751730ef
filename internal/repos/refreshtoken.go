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

type RefreshTokenRepo interface {
	Create(ctx context.Context, tx *gorm.DB, token *types.RefreshToken) (*types.RefreshToken, error)
	GetByHash(ctx context.Context, tx *gorm.DB, tokenHash string) (*types.RefreshToken, error)
	Revoke(ctx context.Context, tx *gorm.DB, tokenID uuid.UUID) error
	RevokeAllForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type refreshTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRefreshTokenRepo(db *gorm.DB, baseLog *logger.Logger) RefreshTokenRepo {
	repoLog := baseLog.With("repo", "RefreshTokenRepo")
	return &refreshTokenRepo{db: db, log: repoLog}
}

func (rtr *refreshTokenRepo) Create(ctx context.Context, tx *gorm.DB, token *types.RefreshToken) (*types.RefreshToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = rtr.db
	}
	if err := transaction.WithContext(ctx).Create(token).Error; err != nil {
		return nil, err
	}
	return token, nil
}

func (rtr *refreshTokenRepo) GetByHash(ctx context.Context, tx *gorm.DB, tokenHash string) (*types.RefreshToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = rtr.db
	}
	var result types.RefreshToken
	if err := transaction.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (rtr *refreshTokenRepo) Revoke(ctx context.Context, tx *gorm.DB, tokenID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = rtr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", tokenID).
		Update("revoked_at", time.Now()).Error
}

func (rtr *refreshTokenRepo) RevokeAllForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = rtr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", time.Now()).Error
}
