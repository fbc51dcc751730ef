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

type QuizRepo interface {
	Create(ctx context.Context, tx *gorm.DB, quiz *types.Quiz) (*types.Quiz, error)
	GetByID(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) (*types.Quiz, error)
	GetOwnerID(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) (*uuid.UUID, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Quiz, error)
	UpdateMeta(ctx context.Context, tx *gorm.DB, quiz *types.Quiz) error
	SetShopifyPage(ctx context.Context, tx *gorm.DB, quizID uuid.UUID, pageID, pageHandle string) error
	Delete(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) error
}

type quizRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizRepo(db *gorm.DB, baseLog *logger.Logger) QuizRepo {
	repoLog := baseLog.With("repo", "QuizRepo")
	return &quizRepo{db: db, log: repoLog}
}

func (qr *quizRepo) Create(ctx context.Context, tx *gorm.DB, quiz *types.Quiz) (*types.Quiz, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	if err := transaction.WithContext(ctx).Create(quiz).Error; err != nil {
		return nil, err
	}
	return quiz, nil
}

func (qr *quizRepo) GetByID(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) (*types.Quiz, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	var result types.Quiz
	if err := transaction.WithContext(ctx).
		Where("id = ?", quizID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (qr *quizRepo) GetOwnerID(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) (*uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	var row struct {
		UserID *uuid.UUID
	}
	res := transaction.WithContext(ctx).
		Model(&types.Quiz{}).
		Select("user_id").
		Where("id = ?", quizID).
		Limit(1).
		Find(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.ErrNotFound
	}
	return row.UserID, nil
}

func (qr *quizRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Quiz, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	var results []*types.Quiz
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (qr *quizRepo) UpdateMeta(ctx context.Context, tx *gorm.DB, quiz *types.Quiz) error {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Quiz{}).
		Where("id = ?", quiz.ID).
		Updates(map[string]interface{}{
			"name":             quiz.Name,
			"product_url":      quiz.ProductURL,
			"is_active":        quiz.IsActive,
			"logo_url":         quiz.LogoURL,
			"background_color": quiz.BackgroundColor,
			"text_color":       quiz.TextColor,
			"button_color":     quiz.ButtonColor,
			"accent_color":     quiz.AccentColor,
			"start_url":        quiz.StartURL,
			"custom_domain":    quiz.CustomDomain,
		}).Error
}

func (qr *quizRepo) SetShopifyPage(ctx context.Context, tx *gorm.DB, quizID uuid.UUID, pageID, pageHandle string) error {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Quiz{}).
		Where("id = ?", quizID).
		Updates(map[string]interface{}{
			"shopify_page_id":     pageID,
			"shopify_page_handle": pageHandle,
		}).Error
}

// Delete is a hard delete; questions, options, sessions and answers go with
// the quiz via the FK cascades.
func (qr *quizRepo) Delete(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	res := transaction.WithContext(ctx).
		Where("id = ?", quizID).
		Delete(&types.Quiz{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
