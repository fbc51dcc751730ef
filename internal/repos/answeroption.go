package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/funnelform/funnelform-backend/internal/logger"
	"github.com/funnelform/funnelform-backend/internal/types"
)

type AnswerOptionRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, options []*types.AnswerOption) ([]*types.AnswerOption, error)
	GetActiveByQuestionIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) ([]*types.AnswerOption, error)
	Update(ctx context.Context, tx *gorm.DB, option *types.AnswerOption, setValue bool) error
	ArchiveByIDs(ctx context.Context, tx *gorm.DB, optionIDs []uuid.UUID) error
	HardDeleteByIDs(ctx context.Context, tx *gorm.DB, optionIDs []uuid.UUID) error
	CountAnswers(ctx context.Context, tx *gorm.DB, optionID uuid.UUID) (int64, error)
}

type answerOptionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnswerOptionRepo(db *gorm.DB, baseLog *logger.Logger) AnswerOptionRepo {
	repoLog := baseLog.With("repo", "AnswerOptionRepo")
	return &answerOptionRepo{db: db, log: repoLog}
}

func (aor *answerOptionRepo) CreateBatch(ctx context.Context, tx *gorm.DB, options []*types.AnswerOption) ([]*types.AnswerOption, error) {
	transaction := tx
	if transaction == nil {
		transaction = aor.db
	}
	if len(options) == 0 {
		return []*types.AnswerOption{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&options).Error; err != nil {
		return nil, err
	}
	return options, nil
}

func (aor *answerOptionRepo) GetActiveByQuestionIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) ([]*types.AnswerOption, error) {
	transaction := tx
	if transaction == nil {
		transaction = aor.db
	}
	var results []*types.AnswerOption
	if len(questionIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("question_id IN ? AND is_archived = false", questionIDs).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Update rewrites text/image always; the scoring value only when setValue is
// true, so the tag of an option with recorded answers survives edits that
// omit it.
func (aor *answerOptionRepo) Update(ctx context.Context, tx *gorm.DB, option *types.AnswerOption, setValue bool) error {
	transaction := tx
	if transaction == nil {
		transaction = aor.db
	}
	updates := map[string]interface{}{
		"text":      option.Text,
		"image_url": option.ImageURL,
	}
	if setValue {
		updates["value"] = option.Value
	}
	return transaction.WithContext(ctx).
		Model(&types.AnswerOption{}).
		Where("id = ?", option.ID).
		Updates(updates).Error
}

func (aor *answerOptionRepo) ArchiveByIDs(ctx context.Context, tx *gorm.DB, optionIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = aor.db
	}
	if len(optionIDs) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.AnswerOption{}).
		Where("id IN ?", optionIDs).
		Update("is_archived", true).Error
}

func (aor *answerOptionRepo) HardDeleteByIDs(ctx context.Context, tx *gorm.DB, optionIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = aor.db
	}
	if len(optionIDs) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id IN ?", optionIDs).
		Delete(&types.AnswerOption{}).Error
}

func (aor *answerOptionRepo) CountAnswers(ctx context.Context, tx *gorm.DB, optionID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = aor.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.UserAnswer{}).
		Where("option_id = ?", optionID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
