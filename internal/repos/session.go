package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/funnelform/funnelform-backend/internal/apperrors"
	"github.com/funnelform/funnelform-backend/internal/logger"
	"github.com/funnelform/funnelform-backend/internal/types"
)

type SessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, session *types.UserSession) (*types.UserSession, error)
	GetByID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.UserSession, error)
	SetLastQuestion(ctx context.Context, tx *gorm.DB, sessionID, questionID uuid.UUID) error
	Complete(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, profileTag string) error
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	repoLog := baseLog.With("repo", "SessionRepo")
	return &sessionRepo{db: db, log: repoLog}
}

func (sr *sessionRepo) Create(ctx context.Context, tx *gorm.DB, session *types.UserSession) (*types.UserSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if err := transaction.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (sr *sessionRepo) GetByID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.UserSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var result types.UserSession
	if err := transaction.WithContext(ctx).
		Where("id = ?", sessionID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (sr *sessionRepo) SetLastQuestion(ctx context.Context, tx *gorm.DB, sessionID, questionID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.UserSession{}).
		Where("id = ?", sessionID).
		Update("last_question_id", questionID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (sr *sessionRepo) Complete(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, profileTag string) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.UserSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{
			"is_completed": true,
			"profile_tag":  profileTag,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
