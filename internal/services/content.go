package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/funnelform/funnelform-backend/internal/apperrors"
	"github.com/funnelform/funnelform-backend/internal/logger"
	"github.com/funnelform/funnelform-backend/internal/repos"
)

type QuizContent struct {
	ID              uuid.UUID         `json:"id"`
	Name            string            `json:"name"`
	ProductURL      string            `json:"product_url"`
	LogoURL         string            `json:"logo_url"`
	BackgroundColor string            `json:"background_color"`
	TextColor       string            `json:"text_color"`
	ButtonColor     string            `json:"button_color"`
	AccentColor     string            `json:"accent_color"`
	StartURL        string            `json:"start_url"`
	Questions       []ContentQuestion `json:"questions"`
}

type ContentQuestion struct {
	ID            uuid.UUID       `json:"id"`
	SequenceOrder int             `json:"sequence_order"`
	Text          string          `json:"text"`
	QuestionType  string          `json:"question_type"`
	ImageURL      string          `json:"image_url,omitempty"`
	Subtext       string          `json:"subtext,omitempty"`
	LoaderText    string          `json:"loader_text,omitempty"`
	PopupText     string          `json:"popup_text,omitempty"`
	Options       []ContentOption `json:"options"`
}

type ContentOption struct {
	ID       uuid.UUID `json:"id"`
	Text     string    `json:"text"`
	Value    string    `json:"value"`
	ImageURL string    `json:"image_url,omitempty"`
}

// ContentService is the read path for the quiz-taking client. It never
// mutates anything and is safe to call any number of times.
type ContentService interface {
	GetQuizContent(ctx context.Context, quizID uuid.UUID) (*QuizContent, error)
}

type contentService struct {
	db  *gorm.DB
	log *logger.Logger

	quizRepo repos.QuizRepo
}

func NewContentService(db *gorm.DB, log *logger.Logger, quizRepo repos.QuizRepo) ContentService {
	serviceLog := log.With("service", "ContentService")
	return &contentService{db: db, log: serviceLog, quizRepo: quizRepo}
}

type contentRow struct {
	QuestionID    uuid.UUID
	SequenceOrder int
	Text          string
	QuestionType  string
	ImageURL      string
	Subtext       string
	LoaderText    string
	PopupText     string

	OptionID       *uuid.UUID
	OptionText     *string
	OptionValue    *string
	OptionImageURL *string
}

func (cs *contentService) GetQuizContent(ctx context.Context, quizID uuid.UUID) (*QuizContent, error) {
	quiz, err := cs.quizRepo.GetByID(ctx, nil, quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.IsActive {
		return nil, fmt.Errorf("%w: Quiz %s", apperrors.ErrQuizInactive, quizID)
	}

	// One pass over a left join; a question with zero live options still
	// shows up (with option columns NULL) and keeps an empty option list.
	var rows []contentRow
	err = cs.db.WithContext(ctx).Raw(`
		SELECT
			q.id            AS question_id,
			q.sequence_order,
			q.text,
			q.question_type,
			q.image_url,
			q.subtext,
			q.loader_text,
			q.popup_text,
			o.id            AS option_id,
			o.text          AS option_text,
			o.value         AS option_value,
			o.image_url     AS option_image_url
		FROM question q
		LEFT JOIN answer_option o
			ON o.question_id = q.id AND o.is_archived = false
		WHERE q.quiz_id = ? AND q.is_archived = false
		ORDER BY q.sequence_order ASC, o.id ASC
	`, quizID).Scan(&rows).Error
	if err != nil {
		cs.log.Error("Quiz content query failed", "quiz_id", quizID, "error", err)
		return nil, fmt.Errorf("Failed to load quiz content: %w", err)
	}

	content := &QuizContent{
		ID:              quiz.ID,
		Name:            quiz.Name,
		ProductURL:      quiz.ProductURL,
		LogoURL:         quiz.LogoURL,
		BackgroundColor: quiz.BackgroundColor,
		TextColor:       quiz.TextColor,
		ButtonColor:     quiz.ButtonColor,
		AccentColor:     quiz.AccentColor,
		StartURL:        quiz.StartURL,
		Questions:       []ContentQuestion{},
	}
	index := make(map[uuid.UUID]int)
	for _, row := range rows {
		i, ok := index[row.QuestionID]
		if !ok {
			content.Questions = append(content.Questions, ContentQuestion{
				ID:            row.QuestionID,
				SequenceOrder: row.SequenceOrder,
				Text:          row.Text,
				QuestionType:  row.QuestionType,
				ImageURL:      row.ImageURL,
				Subtext:       row.Subtext,
				LoaderText:    row.LoaderText,
				PopupText:     row.PopupText,
				Options:       []ContentOption{},
			})
			i = len(content.Questions) - 1
			index[row.QuestionID] = i
		}
		if row.OptionID == nil {
			continue
		}
		option := ContentOption{ID: *row.OptionID}
		if row.OptionText != nil {
			option.Text = *row.OptionText
		}
		if row.OptionValue != nil {
			option.Value = *row.OptionValue
		}
		if row.OptionImageURL != nil {
			option.ImageURL = *row.OptionImageURL
		}
		content.Questions[i].Options = append(content.Questions[i].Options, option)
	}
	return content, nil
}
