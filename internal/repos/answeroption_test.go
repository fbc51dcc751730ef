package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/funnelform/funnelform-backend/internal/repos/testutil"
	"github.com/funnelform/funnelform-backend/internal/types"
)

func TestAnswerOptionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	quiz := seedQuiz(t, tx)
	questionRepo := NewQuestionRepo(db, log)
	repo := NewAnswerOptionRepo(db, log)
	sessionRepo := NewSessionRepo(db, log)
	answerRepo := NewAnswerRepo(db, log)
	ctx := context.Background()

	questions, err := questionRepo.CreateBatch(ctx, tx, []*types.Question{
		{QuizID: quiz.ID, SequenceOrder: 1, Text: "Pick one"},
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	question := questions[0]

	options, err := repo.CreateBatch(ctx, tx, []*types.AnswerOption{
		{QuestionID: question.ID, Text: "A", Value: "a"},
		{QuestionID: question.ID, Text: "B", Value: "b"},
	})
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	active, err := repo.GetActiveByQuestionIDs(ctx, tx, []uuid.UUID{question.ID})
	if err != nil {
		t.Fatalf("GetActiveByQuestionIDs: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("GetActiveByQuestionIDs: expected 2, got %d", len(active))
	}

	// Text-only update keeps the existing value; setValue overwrites it.
	options[0].Text = "A updated"
	options[0].Value = "ignored"
	if err := repo.Update(ctx, tx, options[0], false); err != nil {
		t.Fatalf("Update: %v", err)
	}
	active, _ = repo.GetActiveByQuestionIDs(ctx, tx, []uuid.UUID{question.ID})
	var updated *types.AnswerOption
	for _, o := range active {
		if o.ID == options[0].ID {
			updated = o
		}
	}
	if updated == nil || updated.Text != "A updated" || updated.Value != "a" {
		t.Fatalf("Update without setValue: unexpected row: %+v", updated)
	}

	options[0].Value = "a2"
	if err := repo.Update(ctx, tx, options[0], true); err != nil {
		t.Fatalf("Update with setValue: %v", err)
	}
	active, _ = repo.GetActiveByQuestionIDs(ctx, tx, []uuid.UUID{question.ID})
	for _, o := range active {
		if o.ID == options[0].ID && o.Value != "a2" {
			t.Fatalf("Update with setValue: value not overwritten: %+v", o)
		}
	}

	session, err := sessionRepo.Create(ctx, tx, &types.UserSession{QuizID: quiz.ID})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := answerRepo.Create(ctx, tx, &types.UserAnswer{
		SessionID:  session.ID,
		QuestionID: question.ID,
		OptionID:   options[0].ID,
	}); err != nil {
		t.Fatalf("create answer: %v", err)
	}

	count, err := repo.CountAnswers(ctx, tx, options[0].ID)
	if err != nil {
		t.Fatalf("CountAnswers: %v", err)
	}
	if count != 1 {
		t.Fatalf("CountAnswers: expected 1, got %d", count)
	}
	count, _ = repo.CountAnswers(ctx, tx, options[1].ID)
	if count != 0 {
		t.Fatalf("CountAnswers (unanswered): expected 0, got %d", count)
	}

	if err := repo.ArchiveByIDs(ctx, tx, []uuid.UUID{options[0].ID}); err != nil {
		t.Fatalf("ArchiveByIDs: %v", err)
	}
	if err := repo.HardDeleteByIDs(ctx, tx, []uuid.UUID{options[1].ID}); err != nil {
		t.Fatalf("HardDeleteByIDs: %v", err)
	}
	active, _ = repo.GetActiveByQuestionIDs(ctx, tx, []uuid.UUID{question.ID})
	if len(active) != 0 {
		t.Fatalf("expected no active options left, got %d", len(active))
	}
	// The archived row still exists for analytics; the deleted one is gone.
	var remaining int64
	if err := tx.Model(&types.AnswerOption{}).Where("question_id = ?", question.ID).Count(&remaining).Error; err != nil {
		t.Fatalf("count remaining: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("expected 1 remaining row, got %d", remaining)
	}
}
