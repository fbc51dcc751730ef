package repos

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/funnelform/funnelform-backend/internal/apperrors"
	"github.com/funnelform/funnelform-backend/internal/repos/testutil"
	"github.com/funnelform/funnelform-backend/internal/types"
)

func TestSessionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	quiz := seedQuiz(t, tx)
	questionRepo := NewQuestionRepo(db, log)
	repo := NewSessionRepo(db, log)
	ctx := context.Background()

	questions, err := questionRepo.CreateBatch(ctx, tx, []*types.Question{
		{QuizID: quiz.ID, SequenceOrder: 1, Text: "Q1"},
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}

	created, err := repo.Create(ctx, tx, &types.UserSession{
		QuizID:    quiz.ID,
		UTMParams: datatypes.JSON([]byte(`{"utm_source":"instagram"}`)),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatalf("Create: expected generated id")
	}

	got, err := repo.GetByID(ctx, tx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.LastQuestionID != nil || got.IsCompleted {
		t.Fatalf("GetByID: fresh session has unexpected state: %+v", got)
	}

	if err := repo.SetLastQuestion(ctx, tx, created.ID, questions[0].ID); err != nil {
		t.Fatalf("SetLastQuestion: %v", err)
	}
	got, _ = repo.GetByID(ctx, tx, created.ID)
	if got.LastQuestionID == nil || *got.LastQuestionID != questions[0].ID {
		t.Fatalf("SetLastQuestion: not persisted: %+v", got)
	}

	if err := repo.Complete(ctx, tx, created.ID, "dry-skin"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got, _ = repo.GetByID(ctx, tx, created.ID)
	if !got.IsCompleted || got.ProfileTag != "dry-skin" {
		t.Fatalf("Complete: not persisted: %+v", got)
	}

	if err := repo.SetLastQuestion(ctx, tx, uuid.New(), questions[0].ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("SetLastQuestion (missing): expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByID(ctx, tx, uuid.New()); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("GetByID (missing): expected ErrNotFound, got %v", err)
	}
}

func TestAnswerRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	quiz := seedQuiz(t, tx)
	questionRepo := NewQuestionRepo(db, log)
	optionRepo := NewAnswerOptionRepo(db, log)
	sessionRepo := NewSessionRepo(db, log)
	repo := NewAnswerRepo(db, log)
	ctx := context.Background()

	questions, _ := questionRepo.CreateBatch(ctx, tx, []*types.Question{
		{QuizID: quiz.ID, SequenceOrder: 1, Text: "Q1"},
	})
	options, _ := optionRepo.CreateBatch(ctx, tx, []*types.AnswerOption{
		{QuestionID: questions[0].ID, Text: "A"},
		{QuestionID: questions[0].ID, Text: "B"},
	})
	session, _ := sessionRepo.Create(ctx, tx, &types.UserSession{QuizID: quiz.ID})

	// Answers append: changing an answer adds a row instead of replacing.
	for _, opt := range []uuid.UUID{options[0].ID, options[1].ID} {
		if _, err := repo.Create(ctx, tx, &types.UserAnswer{
			SessionID:  session.ID,
			QuestionID: questions[0].ID,
			OptionID:   opt,
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	answers, err := repo.GetBySession(ctx, tx, session.ID)
	if err != nil {
		t.Fatalf("GetBySession: %v", err)
	}
	if len(answers) != 2 {
		t.Fatalf("GetBySession: expected 2 answers, got %d", len(answers))
	}
	if answers[0].OptionID != options[0].ID || answers[1].OptionID != options[1].ID {
		t.Fatalf("GetBySession: expected created_at ordering: %+v", answers)
	}
}
