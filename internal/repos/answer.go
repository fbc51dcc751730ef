package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/funnelform/funnelform-backend/internal/logger"
	"github.com/funnelform/funnelform-backend/internal/types"
)

type AnswerRepo interface {
	Create(ctx context.Context, tx *gorm.DB, answer *types.UserAnswer) (*types.UserAnswer, error)
	GetBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.UserAnswer, error)
}

type answerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnswerRepo(db *gorm.DB, baseLog *logger.Logger) AnswerRepo {
	repoLog := baseLog.With("repo", "AnswerRepo")
	return &answerRepo{db: db, log: repoLog}
}

func (ar *answerRepo) Create(ctx context.Context, tx *gorm.DB, answer *types.UserAnswer) (*types.UserAnswer, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	if err := transaction.WithContext(ctx).Create(answer).Error; err != nil {
		return nil, err
	}
	return answer, nil
}

func (ar *answerRepo) GetBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.UserAnswer, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var results []*types.UserAnswer
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
