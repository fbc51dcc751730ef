package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/funnelform/funnelform-backend/internal/logger"
	"github.com/funnelform/funnelform-backend/internal/types"
)

type QuestionRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []*types.Question) ([]*types.Question, error)
	GetActiveByQuiz(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) ([]*types.Question, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) ([]*types.Question, error)
	Update(ctx context.Context, tx *gorm.DB, question *types.Question) error
	ArchiveByIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) error
	SetTempSequences(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) error
	SetSequence(ctx context.Context, tx *gorm.DB, questionID uuid.UUID, sequenceOrder int) error
	CountActiveWithActiveOption(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) (int64, error)
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	repoLog := baseLog.With("repo", "QuestionRepo")
	return &questionRepo{db: db, log: repoLog}
}

func (qr *questionRepo) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*types.Question) ([]*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	if len(questions) == 0 {
		return []*types.Question{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (qr *questionRepo) GetActiveByQuiz(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) ([]*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	var results []*types.Question
	if err := transaction.WithContext(ctx).
		Where("quiz_id = ? AND is_archived = false", quizID).
		Order("sequence_order ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (qr *questionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) ([]*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	var results []*types.Question
	if len(questionIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", questionIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (qr *questionRepo) Update(ctx context.Context, tx *gorm.DB, question *types.Question) error {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Question{}).
		Where("id = ?", question.ID).
		Updates(map[string]interface{}{
			"text":          question.Text,
			"question_type": question.QuestionType,
			"image_url":     question.ImageURL,
			"subtext":       question.Subtext,
			"loader_text":   question.LoaderText,
			"popup_text":    question.PopupText,
		}).Error
}

// ArchiveByIDs flags questions and cascade-archives their options so
// historical answers keep resolving.
func (qr *questionRepo) ArchiveByIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	if len(questionIDs) == 0 {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Model(&types.Question{}).
		Where("id IN ?", questionIDs).
		Update("is_archived", true).Error; err != nil {
		return err
	}
	return transaction.WithContext(ctx).
		Model(&types.AnswerOption{}).
		Where("question_id IN ?", questionIDs).
		Update("is_archived", true).Error
}

// SetTempSequences parks each question on a distinct negative sequence slot.
// sequence_order is unique per quiz among non-archived rows, so reordering
// straight to the final values can collide mid-flight when two questions swap
// numbers; negatives never clash with live values.
func (qr *questionRepo) SetTempSequences(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	for i, id := range questionIDs {
		if err := transaction.WithContext(ctx).
			Model(&types.Question{}).
			Where("id = ?", id).
			Update("sequence_order", -(i + 1)).Error; err != nil {
			return err
		}
	}
	return nil
}

func (qr *questionRepo) SetSequence(ctx context.Context, tx *gorm.DB, questionID uuid.UUID, sequenceOrder int) error {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Question{}).
		Where("id = ?", questionID).
		Update("sequence_order", sequenceOrder).Error
}

// CountActiveWithActiveOption counts non-archived questions that still carry
// at least one non-archived option. The edit transaction aborts when this
// reaches zero.
func (qr *questionRepo) CountActiveWithActiveOption(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.Question{}).
		Where("quiz_id = ? AND is_archived = false", quizID).
		Where("EXISTS (SELECT 1 FROM answer_option o WHERE o.question_id = question.id AND o.is_archived = false)").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
