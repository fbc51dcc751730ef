package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/funnelform/funnelform-backend/internal/apperrors"
	"github.com/funnelform/funnelform-backend/internal/repos"
	"github.com/funnelform/funnelform-backend/internal/repos/testutil"
	"github.com/funnelform/funnelform-backend/internal/types"
)

type quizTestEnv struct {
	tx           *gorm.DB
	svc          QuizService
	sessions     SessionService
	userRepo     repos.UserRepo
	optionRepo   repos.AnswerOptionRepo
	questionRepo repos.QuestionRepo
	owner        *types.User
}

func newQuizTestEnv(t *testing.T) *quizTestEnv {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	quizRepo := repos.NewQuizRepo(tx, log)
	questionRepo := repos.NewQuestionRepo(tx, log)
	optionRepo := repos.NewAnswerOptionRepo(tx, log)
	sessionRepo := repos.NewSessionRepo(tx, log)
	answerRepo := repos.NewAnswerRepo(tx, log)
	userRepo := repos.NewUserRepo(tx, log)

	owner, err := userRepo.Create(context.Background(), tx, &types.User{
		Email:    "quizsvc-" + uuid.NewString() + "@example.com",
		Password: "hash",
		FullName: "Quiz Builder",
		Role:     types.RoleUser,
	})
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}

	return &quizTestEnv{
		tx:           tx,
		svc:          NewQuizService(tx, log, quizRepo, questionRepo, optionRepo, nil, "https://funnels.example.com"),
		sessions:     NewSessionService(tx, log, quizRepo, sessionRepo, answerRepo),
		userRepo:     userRepo,
		optionRepo:   optionRepo,
		questionRepo: questionRepo,
		owner:        owner,
	}
}

func strptr(s string) *string { return &s }

func baseQuizInput() QuizInput {
	return QuizInput{
		Name:     "Skin quiz",
		IsActive: true,
		Questions: []QuestionInput{
			{
				Text: "What is your skin type?",
				Options: []OptionInput{
					{Text: "Dry", Value: strptr("dry")},
					{Text: "Oily", Value: strptr("oily")},
				},
			},
			{
				Text: "How often do you exfoliate?",
				Options: []OptionInput{
					{Text: "Daily", Value: strptr("daily")},
					{Text: "Never", Value: strptr("never")},
				},
			},
		},
	}
}

func TestCreateQuiz(t *testing.T) {
	env := newQuizTestEnv(t)
	ctx := context.Background()

	quiz, err := env.svc.CreateQuiz(ctx, env.owner.ID, baseQuizInput())
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("CreateQuiz: expected 2 questions, got %d", len(quiz.Questions))
	}
	if quiz.Questions[0].SequenceOrder != 1 || quiz.Questions[1].SequenceOrder != 2 {
		t.Fatalf("CreateQuiz: bad sequencing: %+v", quiz.Questions)
	}
	if !strings.HasPrefix(quiz.StartURL, "https://funnels.example.com/q/") {
		t.Fatalf("CreateQuiz: unexpected start url %q", quiz.StartURL)
	}

	if _, err := env.svc.CreateQuiz(ctx, env.owner.ID, QuizInput{}); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("CreateQuiz (no name): expected ErrInvalidArgument, got %v", err)
	}
}

func TestCreateQuizRefusesEmptyFunnel(t *testing.T) {
	env := newQuizTestEnv(t)
	ctx := context.Background()

	input := baseQuizInput()
	input.Questions = nil
	if _, err := env.svc.CreateQuiz(ctx, env.owner.ID, input); !errors.Is(err, apperrors.ErrNoActiveContent) {
		t.Fatalf("CreateQuiz (no questions): expected ErrNoActiveContent, got %v", err)
	}

	// A loader screen alone is viewable but never answerable.
	input = baseQuizInput()
	input.Questions = []QuestionInput{{Text: "Working...", QuestionType: types.QuestionLoader}}
	if _, err := env.svc.CreateQuiz(ctx, env.owner.ID, input); !errors.Is(err, apperrors.ErrNoActiveContent) {
		t.Fatalf("CreateQuiz (loader only): expected ErrNoActiveContent, got %v", err)
	}
}

func TestUpdateQuizReordersThroughTempRange(t *testing.T) {
	env := newQuizTestEnv(t)
	ctx := context.Background()

	quiz, err := env.svc.CreateQuiz(ctx, env.owner.ID, baseQuizInput())
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}
	q1, q2 := quiz.Questions[0], quiz.Questions[1]

	// Swap the two questions. A direct seq update would collide with the
	// partial unique index, so this exercises the two-pass renumbering.
	input := baseQuizInput()
	input.Questions[0].ID = &q2.ID
	input.Questions[0].Text = q2.Text
	input.Questions[0].Options = optionInputsFor(t, env, q2.ID)
	input.Questions[1].ID = &q1.ID
	input.Questions[1].Text = q1.Text
	input.Questions[1].Options = optionInputsFor(t, env, q1.ID)

	updated, err := env.svc.UpdateQuiz(ctx, env.owner.ID, types.RoleUser, quiz.ID, input)
	if err != nil {
		t.Fatalf("UpdateQuiz: %v", err)
	}
	if updated.Questions[0].ID != q2.ID || updated.Questions[1].ID != q1.ID {
		t.Fatalf("UpdateQuiz: swap not applied: %+v", updated.Questions)
	}
	if updated.Questions[0].SequenceOrder != 1 || updated.Questions[1].SequenceOrder != 2 {
		t.Fatalf("UpdateQuiz: bad sequence after swap: %+v", updated.Questions)
	}
}

// optionInputsFor echoes a question's current active options back as inputs,
// the way the dashboard round-trips unchanged rows.
func optionInputsFor(t *testing.T, env *quizTestEnv, questionID uuid.UUID) []OptionInput {
	t.Helper()
	options, err := env.optionRepo.GetActiveByQuestionIDs(context.Background(), env.tx, []uuid.UUID{questionID})
	if err != nil {
		t.Fatalf("load options: %v", err)
	}
	inputs := make([]OptionInput, 0, len(options))
	for _, o := range options {
		id := o.ID
		inputs = append(inputs, OptionInput{ID: &id, Text: o.Text})
	}
	return inputs
}

func TestUpdateQuizArchivesRemovedAndPreservesValues(t *testing.T) {
	env := newQuizTestEnv(t)
	ctx := context.Background()

	quiz, err := env.svc.CreateQuiz(ctx, env.owner.ID, baseQuizInput())
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}
	q1, q2 := quiz.Questions[0], quiz.Questions[1]

	// Answer q2's first option so removing it archives instead of deleting.
	session, err := env.sessions.StartSession(ctx, quiz.ID, nil)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if _, err := env.sessions.SubmitAnswer(ctx, session.ID, q2.ID, q2.Options[0].ID); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	// Keep q1 (text-only edits, no Value sent), drop q2, add a new question.
	input := QuizInput{
		Name:     "Skin quiz v2",
		IsActive: true,
		Questions: []QuestionInput{
			{
				ID:   &q1.ID,
				Text: "What is your skin type today?",
				Options: []OptionInput{
					{ID: &q1.Options[0].ID, Text: "Very dry"},
					{ID: &q1.Options[1].ID, Text: "Very oily"},
				},
			},
			{
				Text: "What is your main concern?",
				Options: []OptionInput{
					{Text: "Acne", Value: strptr("acne")},
					{Text: "Wrinkles", Value: strptr("wrinkles")},
				},
			},
		},
	}
	updated, err := env.svc.UpdateQuiz(ctx, env.owner.ID, types.RoleUser, quiz.ID, input)
	if err != nil {
		t.Fatalf("UpdateQuiz: %v", err)
	}
	if len(updated.Questions) != 2 {
		t.Fatalf("UpdateQuiz: expected 2 active questions, got %d", len(updated.Questions))
	}
	if updated.Questions[0].Text != "What is your skin type today?" {
		t.Fatalf("UpdateQuiz: question edit lost: %+v", updated.Questions[0])
	}
	// Omitting Value keeps the stored scoring tag.
	var edited *types.AnswerOption
	for _, o := range updated.Questions[0].Options {
		if o.ID == q1.Options[0].ID {
			edited = o
		}
	}
	if edited == nil || edited.Text != "Very dry" || edited.Value != "dry" {
		t.Fatalf("UpdateQuiz: option value not preserved: %+v", edited)
	}

	// q2 survives as an archived row because an answer references it.
	archived, err := env.questionRepo.GetByIDs(ctx, env.tx, []uuid.UUID{q2.ID})
	if err != nil || len(archived) != 1 {
		t.Fatalf("load archived question: %v (%d rows)", err, len(archived))
	}
	if !archived[0].IsArchived {
		t.Fatalf("UpdateQuiz: removed question not archived: %+v", archived[0])
	}
}

func TestUpdateQuizRejectsUnknownIDs(t *testing.T) {
	env := newQuizTestEnv(t)
	ctx := context.Background()

	quiz, err := env.svc.CreateQuiz(ctx, env.owner.ID, baseQuizInput())
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}

	input := baseQuizInput()
	rogue := uuid.New()
	input.Questions[0].ID = &rogue
	if _, err := env.svc.UpdateQuiz(ctx, env.owner.ID, types.RoleUser, quiz.ID, input); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("UpdateQuiz (rogue question id): expected ErrInvalidArgument, got %v", err)
	}
}

func TestUpdateQuizRefusesToEmptyFunnel(t *testing.T) {
	env := newQuizTestEnv(t)
	ctx := context.Background()

	quiz, err := env.svc.CreateQuiz(ctx, env.owner.ID, baseQuizInput())
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}

	input := QuizInput{Name: "Emptied", IsActive: true}
	if _, err := env.svc.UpdateQuiz(ctx, env.owner.ID, types.RoleUser, quiz.ID, input); !errors.Is(err, apperrors.ErrNoActiveContent) {
		t.Fatalf("UpdateQuiz (all removed): expected ErrNoActiveContent, got %v", err)
	}

	// The refused update rolled back: the quiz still serves its questions.
	got, err := env.svc.GetQuiz(ctx, env.owner.ID, types.RoleUser, quiz.ID)
	if err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	if len(got.Questions) != 2 {
		t.Fatalf("expected rollback to keep 2 questions, got %d", len(got.Questions))
	}
}

func TestQuizOwnership(t *testing.T) {
	env := newQuizTestEnv(t)
	ctx := context.Background()

	quiz, err := env.svc.CreateQuiz(ctx, env.owner.ID, baseQuizInput())
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}

	stranger, err := env.userRepo.Create(ctx, env.tx, &types.User{
		Email:    "stranger-" + uuid.NewString() + "@example.com",
		Password: "hash",
		FullName: "Stranger",
		Role:     types.RoleUser,
	})
	if err != nil {
		t.Fatalf("create stranger: %v", err)
	}

	if _, err := env.svc.GetQuiz(ctx, stranger.ID, types.RoleUser, quiz.ID); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Fatalf("GetQuiz (stranger): expected ErrUnauthorized, got %v", err)
	}
	if err := env.svc.DeleteQuiz(ctx, stranger.ID, types.RoleUser, quiz.ID); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Fatalf("DeleteQuiz (stranger): expected ErrUnauthorized, got %v", err)
	}
	// Admins bypass the owner check.
	if _, err := env.svc.GetQuiz(ctx, stranger.ID, types.RoleAdmin, quiz.ID); err != nil {
		t.Fatalf("GetQuiz (admin): %v", err)
	}

	if err := env.svc.DeleteQuiz(ctx, env.owner.ID, types.RoleUser, quiz.ID); err != nil {
		t.Fatalf("DeleteQuiz: %v", err)
	}
	if _, err := env.svc.GetQuiz(ctx, env.owner.ID, types.RoleUser, quiz.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("GetQuiz after delete: expected ErrNotFound, got %v", err)
	}
}
