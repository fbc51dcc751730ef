package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/funnelform/funnelform-backend/internal/apperrors"
	"github.com/funnelform/funnelform-backend/internal/logger"
	"github.com/funnelform/funnelform-backend/internal/platform/shopify"
	"github.com/funnelform/funnelform-backend/internal/repos"
	"github.com/funnelform/funnelform-backend/internal/types"
)

type OptionInput struct {
	ID       *uuid.UUID `json:"id,omitempty"`
	Text     string     `json:"text"`
	Value    *string    `json:"value,omitempty"`
	ImageURL string     `json:"image_url"`
}

type QuestionInput struct {
	ID           *uuid.UUID    `json:"id,omitempty"`
	Text         string        `json:"text"`
	QuestionType string        `json:"question_type"`
	ImageURL     string        `json:"image_url"`
	Subtext      string        `json:"subtext"`
	LoaderText   string        `json:"loader_text"`
	PopupText    string        `json:"popup_text"`
	Options      []OptionInput `json:"options"`
}

type QuizInput struct {
	Name            string          `json:"name"`
	ProductURL      string          `json:"product_url"`
	IsActive        bool            `json:"is_active"`
	LogoURL         string          `json:"logo_url"`
	BackgroundColor string          `json:"background_color"`
	TextColor       string          `json:"text_color"`
	ButtonColor     string          `json:"button_color"`
	AccentColor     string          `json:"accent_color"`
	CustomDomain    string          `json:"custom_domain"`
	Questions       []QuestionInput `json:"questions"`
}

type QuizService interface {
	CreateQuiz(ctx context.Context, ownerID uuid.UUID, input QuizInput) (*types.Quiz, error)
	UpdateQuiz(ctx context.Context, callerID uuid.UUID, role string, quizID uuid.UUID, input QuizInput) (*types.Quiz, error)
	DeleteQuiz(ctx context.Context, callerID uuid.UUID, role string, quizID uuid.UUID) error
	GetQuiz(ctx context.Context, callerID uuid.UUID, role string, quizID uuid.UUID) (*types.Quiz, error)
	ListQuizzes(ctx context.Context, userID uuid.UUID) ([]*types.Quiz, error)
	PublishToShopify(ctx context.Context, callerID uuid.UUID, role string, quizID uuid.UUID) (*types.Quiz, error)
}

type quizService struct {
	db            *gorm.DB
	log           *logger.Logger
	quizRepo      repos.QuizRepo
	questionRepo  repos.QuestionRepo
	optionRepo    repos.AnswerOptionRepo
	shopifyClient shopify.Client
	publicBaseURL string
}

func NewQuizService(
	db *gorm.DB,
	log *logger.Logger,
	quizRepo repos.QuizRepo,
	questionRepo repos.QuestionRepo,
	optionRepo repos.AnswerOptionRepo,
	shopifyClient shopify.Client,
	publicBaseURL string,
) QuizService {
	serviceLog := log.With("service", "QuizService")
	return &quizService{
		db:            db,
		log:           serviceLog,
		quizRepo:      quizRepo,
		questionRepo:  questionRepo,
		optionRepo:    optionRepo,
		shopifyClient: shopifyClient,
		publicBaseURL: publicBaseURL,
	}
}

// CreateQuiz inserts the quiz and its full question/option tree in one
// transaction; a failure anywhere leaves no partial quiz behind.
func (qs *quizService) CreateQuiz(ctx context.Context, ownerID uuid.UUID, input QuizInput) (*types.Quiz, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: A quiz name is required", apperrors.ErrInvalidArgument)
	}
	quiz := &types.Quiz{
		ID:              uuid.New(),
		UserID:          &ownerID,
		Name:            input.Name,
		ProductURL:      input.ProductURL,
		IsActive:        input.IsActive,
		LogoURL:         input.LogoURL,
		BackgroundColor: input.BackgroundColor,
		TextColor:       input.TextColor,
		ButtonColor:     input.ButtonColor,
		AccentColor:     input.AccentColor,
		CustomDomain:    input.CustomDomain,
	}
	quiz.StartURL = fmt.Sprintf("%s/q/%s", qs.publicBaseURL, quiz.ID)

	err := qs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := qs.quizRepo.Create(ctx, tx, quiz); err != nil {
			return fmt.Errorf("Failed to create quiz: %w", err)
		}
		for i, qi := range input.Questions {
			question := questionFromInput(quiz.ID, i+1, qi)
			if _, err := qs.questionRepo.CreateBatch(ctx, tx, []*types.Question{question}); err != nil {
				return fmt.Errorf("Failed to create question %d: %w", i+1, err)
			}
			options := make([]*types.AnswerOption, 0, len(qi.Options))
			for _, oi := range qi.Options {
				options = append(options, optionFromInput(question.ID, oi))
			}
			if _, err := qs.optionRepo.CreateBatch(ctx, tx, options); err != nil {
				return fmt.Errorf("Failed to create options for question %d: %w", i+1, err)
			}
			question.Options = options
			quiz.Questions = append(quiz.Questions, question)
		}

		// Same bar the edit path holds: a funnel nobody can answer is
		// never persisted.
		active, err := qs.questionRepo.CountActiveWithActiveOption(ctx, tx, quiz.ID)
		if err != nil {
			return fmt.Errorf("Failed to verify quiz content: %w", err)
		}
		if active == 0 {
			return apperrors.ErrNoActiveContent
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return quiz, nil
}

// UpdateQuiz reconciles the incoming question/option tree against the
// persisted rows: removed entries are archived (never deleted while answers
// reference them), sequence numbers are reassigned through a temporary
// negative range so permutations cannot trip the per-quiz unique index, and
// scoring values of answered options survive unless explicitly replaced.
func (qs *quizService) UpdateQuiz(ctx context.Context, callerID uuid.UUID, role string, quizID uuid.UUID, input QuizInput) (*types.Quiz, error) {
	if err := qs.checkOwnership(ctx, quizID, callerID, role); err != nil {
		return nil, err
	}
	if input.Name == "" {
		return nil, fmt.Errorf("%w: A quiz name is required", apperrors.ErrInvalidArgument)
	}

	err := qs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quiz, err := qs.quizRepo.GetByID(ctx, tx, quizID)
		if err != nil {
			return err
		}
		quiz.Name = input.Name
		quiz.ProductURL = input.ProductURL
		quiz.IsActive = input.IsActive
		quiz.LogoURL = input.LogoURL
		quiz.BackgroundColor = input.BackgroundColor
		quiz.TextColor = input.TextColor
		quiz.ButtonColor = input.ButtonColor
		quiz.AccentColor = input.AccentColor
		quiz.CustomDomain = input.CustomDomain
		if err := qs.quizRepo.UpdateMeta(ctx, tx, quiz); err != nil {
			return fmt.Errorf("Failed to update quiz metadata: %w", err)
		}

		existing, err := qs.questionRepo.GetActiveByQuiz(ctx, tx, quizID)
		if err != nil {
			return fmt.Errorf("Failed to load existing questions: %w", err)
		}
		existingByID := make(map[uuid.UUID]*types.Question, len(existing))
		for _, q := range existing {
			existingByID[q.ID] = q
		}

		incomingIDs := make(map[uuid.UUID]bool)
		surviving := []uuid.UUID{}
		for _, qi := range input.Questions {
			if qi.ID == nil {
				continue
			}
			if _, ok := existingByID[*qi.ID]; !ok {
				return fmt.Errorf("%w: Unknown question id %s", apperrors.ErrInvalidArgument, *qi.ID)
			}
			incomingIDs[*qi.ID] = true
			surviving = append(surviving, *qi.ID)
		}

		var removed []uuid.UUID
		for _, q := range existing {
			if !incomingIDs[q.ID] {
				removed = append(removed, q.ID)
			}
		}
		if err := qs.questionRepo.ArchiveByIDs(ctx, tx, removed); err != nil {
			return fmt.Errorf("Failed to archive removed questions: %w", err)
		}

		// Pass one: park survivors on negative sequence slots.
		if err := qs.questionRepo.SetTempSequences(ctx, tx, surviving); err != nil {
			return fmt.Errorf("Failed to stage sequence renumbering: %w", err)
		}

		// Pass two: apply final ordering and reconcile per-question options.
		for i, qi := range input.Questions {
			seq := i + 1
			if qi.ID != nil {
				question := questionFromInput(quizID, seq, qi)
				question.ID = *qi.ID
				if err := qs.questionRepo.Update(ctx, tx, question); err != nil {
					return fmt.Errorf("Failed to update question %s: %w", question.ID, err)
				}
				if err := qs.questionRepo.SetSequence(ctx, tx, question.ID, seq); err != nil {
					return fmt.Errorf("Failed to renumber question %s: %w", question.ID, err)
				}
				if err := qs.reconcileOptions(ctx, tx, question.ID, qi.Options); err != nil {
					return err
				}
				continue
			}
			question := questionFromInput(quizID, seq, qi)
			if _, err := qs.questionRepo.CreateBatch(ctx, tx, []*types.Question{question}); err != nil {
				return fmt.Errorf("Failed to insert new question at position %d: %w", seq, err)
			}
			options := make([]*types.AnswerOption, 0, len(qi.Options))
			for _, oi := range qi.Options {
				options = append(options, optionFromInput(question.ID, oi))
			}
			if _, err := qs.optionRepo.CreateBatch(ctx, tx, options); err != nil {
				return fmt.Errorf("Failed to insert options for new question at position %d: %w", seq, err)
			}
		}

		active, err := qs.questionRepo.CountActiveWithActiveOption(ctx, tx, quizID)
		if err != nil {
			return fmt.Errorf("Failed to verify remaining active content: %w", err)
		}
		if active == 0 {
			return apperrors.ErrNoActiveContent
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return qs.hydrate(ctx, quizID)
}

func (qs *quizService) reconcileOptions(ctx context.Context, tx *gorm.DB, questionID uuid.UUID, inputs []OptionInput) error {
	existing, err := qs.optionRepo.GetActiveByQuestionIDs(ctx, tx, []uuid.UUID{questionID})
	if err != nil {
		return fmt.Errorf("Failed to load existing options: %w", err)
	}
	existingByID := make(map[uuid.UUID]*types.AnswerOption, len(existing))
	for _, o := range existing {
		existingByID[o.ID] = o
	}

	incomingIDs := make(map[uuid.UUID]bool)
	var inserts []*types.AnswerOption
	for _, oi := range inputs {
		if oi.ID == nil {
			inserts = append(inserts, optionFromInput(questionID, oi))
			continue
		}
		current, ok := existingByID[*oi.ID]
		if !ok {
			return fmt.Errorf("%w: Unknown option id %s", apperrors.ErrInvalidArgument, *oi.ID)
		}
		incomingIDs[*oi.ID] = true
		updated := &types.AnswerOption{
			ID:       current.ID,
			Text:     oi.Text,
			ImageURL: oi.ImageURL,
		}
		setValue := oi.Value != nil
		if setValue {
			updated.Value = *oi.Value
		}
		if err := qs.optionRepo.Update(ctx, tx, updated, setValue); err != nil {
			return fmt.Errorf("Failed to update option %s: %w", current.ID, err)
		}
	}

	// Removed options: archive when answers exist, hard-delete otherwise.
	var toArchive, toDelete []uuid.UUID
	for _, o := range existing {
		if incomingIDs[o.ID] {
			continue
		}
		answers, err := qs.optionRepo.CountAnswers(ctx, tx, o.ID)
		if err != nil {
			return fmt.Errorf("Failed to count answers for option %s: %w", o.ID, err)
		}
		if answers > 0 {
			toArchive = append(toArchive, o.ID)
		} else {
			toDelete = append(toDelete, o.ID)
		}
	}
	if err := qs.optionRepo.ArchiveByIDs(ctx, tx, toArchive); err != nil {
		return fmt.Errorf("Failed to archive removed options: %w", err)
	}
	if err := qs.optionRepo.HardDeleteByIDs(ctx, tx, toDelete); err != nil {
		return fmt.Errorf("Failed to delete unanswered removed options: %w", err)
	}
	if _, err := qs.optionRepo.CreateBatch(ctx, tx, inserts); err != nil {
		return fmt.Errorf("Failed to insert new options: %w", err)
	}
	return nil
}

// DeleteQuiz hard-deletes the quiz row; the FK cascades remove questions,
// options, sessions and answers. The linked Shopify page is cleaned up
// best-effort after the commit.
func (qs *quizService) DeleteQuiz(ctx context.Context, callerID uuid.UUID, role string, quizID uuid.UUID) error {
	if err := qs.checkOwnership(ctx, quizID, callerID, role); err != nil {
		return err
	}
	quiz, err := qs.quizRepo.GetByID(ctx, nil, quizID)
	if err != nil {
		return err
	}
	if err := qs.quizRepo.Delete(ctx, nil, quizID); err != nil {
		return fmt.Errorf("Failed to delete quiz: %w", err)
	}
	if quiz.ShopifyPageID != "" && qs.shopifyClient != nil {
		if err := qs.shopifyClient.DeletePage(ctx, quiz.ShopifyPageID); err != nil {
			qs.log.Warn("Shopify page cleanup failed after quiz delete", "quiz_id", quizID, "page_id", quiz.ShopifyPageID, "error", err)
		}
	}
	return nil
}

func (qs *quizService) GetQuiz(ctx context.Context, callerID uuid.UUID, role string, quizID uuid.UUID) (*types.Quiz, error) {
	if err := qs.checkOwnership(ctx, quizID, callerID, role); err != nil {
		return nil, err
	}
	return qs.hydrate(ctx, quizID)
}

func (qs *quizService) ListQuizzes(ctx context.Context, userID uuid.UUID) ([]*types.Quiz, error) {
	return qs.quizRepo.ListByUser(ctx, nil, userID)
}

func (qs *quizService) PublishToShopify(ctx context.Context, callerID uuid.UUID, role string, quizID uuid.UUID) (*types.Quiz, error) {
	if qs.shopifyClient == nil {
		return nil, fmt.Errorf("%w: Shopify integration not configured", apperrors.ErrInvalidArgument)
	}
	if err := qs.checkOwnership(ctx, quizID, callerID, role); err != nil {
		return nil, err
	}
	quiz, err := qs.quizRepo.GetByID(ctx, nil, quizID)
	if err != nil {
		return nil, err
	}
	body := fmt.Sprintf(`<div class="funnelform-quiz" data-quiz-id="%s" data-start-url="%s"></div>`, quiz.ID, quiz.StartURL)

	var page *shopify.Page
	if quiz.ShopifyPageID != "" {
		page, err = qs.shopifyClient.UpdatePage(ctx, quiz.ShopifyPageID, quiz.Name, body)
	} else {
		page, err = qs.shopifyClient.CreatePage(ctx, quiz.Name, body)
	}
	if err != nil {
		return nil, fmt.Errorf("Failed to publish quiz page: %w", err)
	}
	if err := qs.quizRepo.SetShopifyPage(ctx, nil, quizID, page.ID, page.Handle); err != nil {
		return nil, fmt.Errorf("Failed to store Shopify page linkage: %w", err)
	}
	quiz.ShopifyPageID = page.ID
	quiz.ShopifyPageHandle = page.Handle
	return quiz, nil
}

func (qs *quizService) checkOwnership(ctx context.Context, quizID, callerID uuid.UUID, role string) error {
	ownerID, err := qs.quizRepo.GetOwnerID(ctx, nil, quizID)
	if err != nil {
		return err
	}
	if role == types.RoleAdmin {
		return nil
	}
	if ownerID == nil || *ownerID != callerID {
		return fmt.Errorf("%w: Quiz belongs to another account", apperrors.ErrUnauthorized)
	}
	return nil
}

func (qs *quizService) hydrate(ctx context.Context, quizID uuid.UUID) (*types.Quiz, error) {
	quiz, err := qs.quizRepo.GetByID(ctx, nil, quizID)
	if err != nil {
		return nil, err
	}
	questions, err := qs.questionRepo.GetActiveByQuiz(ctx, nil, quizID)
	if err != nil {
		return nil, fmt.Errorf("Failed to load questions: %w", err)
	}
	questionIDs := make([]uuid.UUID, 0, len(questions))
	for _, q := range questions {
		q.Options = []*types.AnswerOption{}
		questionIDs = append(questionIDs, q.ID)
	}
	options, err := qs.optionRepo.GetActiveByQuestionIDs(ctx, nil, questionIDs)
	if err != nil {
		return nil, fmt.Errorf("Failed to load options: %w", err)
	}
	byQuestion := make(map[uuid.UUID]*types.Question, len(questions))
	for _, q := range questions {
		byQuestion[q.ID] = q
	}
	for _, o := range options {
		if q, ok := byQuestion[o.QuestionID]; ok {
			q.Options = append(q.Options, o)
		}
	}
	quiz.Questions = questions
	return quiz, nil
}

func questionFromInput(quizID uuid.UUID, seq int, qi QuestionInput) *types.Question {
	questionType := qi.QuestionType
	if questionType == "" {
		questionType = types.QuestionMultipleChoice
	}
	return &types.Question{
		ID:            uuid.New(),
		QuizID:        quizID,
		SequenceOrder: seq,
		Text:          qi.Text,
		QuestionType:  questionType,
		ImageURL:      qi.ImageURL,
		Subtext:       qi.Subtext,
		LoaderText:    qi.LoaderText,
		PopupText:     qi.PopupText,
	}
}

func optionFromInput(questionID uuid.UUID, oi OptionInput) *types.AnswerOption {
	option := &types.AnswerOption{
		ID:         uuid.New(),
		QuestionID: questionID,
		Text:       oi.Text,
		ImageURL:   oi.ImageURL,
	}
	if oi.Value != nil {
		option.Value = *oi.Value
	}
	return option
}
