package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/funnelform/funnelform-backend/internal/apperrors"
	"github.com/funnelform/funnelform-backend/internal/repos"
	"github.com/funnelform/funnelform-backend/internal/repos/testutil"
	"github.com/funnelform/funnelform-backend/internal/types"
)

func TestGetQuizContent(t *testing.T) {
	env := newQuizTestEnv(t)
	ctx := context.Background()
	log := testutil.Logger(t)
	content := NewContentService(env.tx, log, repos.NewQuizRepo(env.tx, log))

	input := baseQuizInput()
	input.Questions = append(input.Questions, QuestionInput{
		Text:         "Building your routine...",
		QuestionType: types.QuestionLoader,
		LoaderText:   "Hold tight",
	})
	quiz, err := env.svc.CreateQuiz(ctx, env.owner.ID, input)
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}

	got, err := content.GetQuizContent(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("GetQuizContent: %v", err)
	}
	if got.Name != "Skin quiz" || got.StartURL != quiz.StartURL {
		t.Fatalf("unexpected quiz header: %+v", got)
	}
	if len(got.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(got.Questions))
	}
	for i, q := range got.Questions {
		if q.SequenceOrder != i+1 {
			t.Fatalf("question %d out of order: %+v", i, q)
		}
	}
	if len(got.Questions[0].Options) != 2 {
		t.Fatalf("expected 2 options on question 1, got %d", len(got.Questions[0].Options))
	}
	// The loader screen has no options but still appears, with an empty
	// (not nil) option list.
	loader := got.Questions[2]
	if loader.QuestionType != types.QuestionLoader || loader.LoaderText != "Hold tight" {
		t.Fatalf("loader question wrong: %+v", loader)
	}
	if loader.Options == nil || len(loader.Options) != 0 {
		t.Fatalf("loader options should be empty slice: %+v", loader.Options)
	}

	if _, err := content.GetQuizContent(ctx, uuid.New()); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("GetQuizContent (missing): expected ErrNotFound, got %v", err)
	}
}

func TestGetQuizContentInactive(t *testing.T) {
	env := newQuizTestEnv(t)
	ctx := context.Background()
	log := testutil.Logger(t)
	content := NewContentService(env.tx, log, repos.NewQuizRepo(env.tx, log))

	input := baseQuizInput()
	input.IsActive = false
	quiz, err := env.svc.CreateQuiz(ctx, env.owner.ID, input)
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}
	if _, err := content.GetQuizContent(ctx, quiz.ID); !errors.Is(err, apperrors.ErrQuizInactive) {
		t.Fatalf("expected ErrQuizInactive, got %v", err)
	}
}
