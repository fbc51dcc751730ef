package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/funnelform/funnelform-backend/internal/logger"
	"github.com/funnelform/funnelform-backend/internal/repos"
	"github.com/funnelform/funnelform-backend/internal/types"
)

// SessionService records quiz-taking runs: session start, per-question
// progress, answers and completion. Every operation is a single statement;
// failures map to not-found or bubble up as internal errors.
type SessionService interface {
	StartSession(ctx context.Context, quizID uuid.UUID, utmParams map[string]string) (*types.UserSession, error)
	UpdateSession(ctx context.Context, sessionID, lastQuestionID uuid.UUID) error
	SubmitAnswer(ctx context.Context, sessionID, questionID, optionID uuid.UUID) (*types.UserAnswer, error)
	CompleteSession(ctx context.Context, sessionID uuid.UUID, profileTag string) error
	GetSessionUTMParams(ctx context.Context, sessionID uuid.UUID) (map[string]string, error)
}

type sessionService struct {
	db          *gorm.DB
	log         *logger.Logger
	quizRepo    repos.QuizRepo
	sessionRepo repos.SessionRepo
	answerRepo  repos.AnswerRepo
}

func NewSessionService(
	db *gorm.DB,
	log *logger.Logger,
	quizRepo repos.QuizRepo,
	sessionRepo repos.SessionRepo,
	answerRepo repos.AnswerRepo,
) SessionService {
	serviceLog := log.With("service", "SessionService")
	return &sessionService{
		db:          db,
		log:         serviceLog,
		quizRepo:    quizRepo,
		sessionRepo: sessionRepo,
		answerRepo:  answerRepo,
	}
}

func (ss *sessionService) StartSession(ctx context.Context, quizID uuid.UUID, utmParams map[string]string) (*types.UserSession, error) {
	if _, err := ss.quizRepo.GetByID(ctx, nil, quizID); err != nil {
		return nil, err
	}
	session := &types.UserSession{
		ID:     uuid.New(),
		QuizID: quizID,
	}
	// Absent attribution stays NULL so UTM grouping's Direct/N.A defaults
	// only ever apply to sessions that truly arrived without parameters.
	if len(utmParams) > 0 {
		raw, err := json.Marshal(utmParams)
		if err != nil {
			return nil, fmt.Errorf("Failed to encode utm params: %w", err)
		}
		session.UTMParams = datatypes.JSON(raw)
	}
	if _, err := ss.sessionRepo.Create(ctx, nil, session); err != nil {
		return nil, fmt.Errorf("Failed to create session: %w", err)
	}
	return session, nil
}

func (ss *sessionService) UpdateSession(ctx context.Context, sessionID, lastQuestionID uuid.UUID) error {
	return ss.sessionRepo.SetLastQuestion(ctx, nil, sessionID, lastQuestionID)
}

func (ss *sessionService) SubmitAnswer(ctx context.Context, sessionID, questionID, optionID uuid.UUID) (*types.UserAnswer, error) {
	if _, err := ss.sessionRepo.GetByID(ctx, nil, sessionID); err != nil {
		return nil, err
	}
	answer := &types.UserAnswer{
		ID:         uuid.New(),
		SessionID:  sessionID,
		QuestionID: questionID,
		OptionID:   optionID,
	}
	if _, err := ss.answerRepo.Create(ctx, nil, answer); err != nil {
		return nil, fmt.Errorf("Failed to record answer: %w", err)
	}
	return answer, nil
}

func (ss *sessionService) CompleteSession(ctx context.Context, sessionID uuid.UUID, profileTag string) error {
	return ss.sessionRepo.Complete(ctx, nil, sessionID, profileTag)
}

func (ss *sessionService) GetSessionUTMParams(ctx context.Context, sessionID uuid.UUID) (map[string]string, error) {
	session, err := ss.sessionRepo.GetByID(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	if len(session.UTMParams) == 0 {
		return nil, nil
	}
	var params map[string]string
	if err := json.Unmarshal(session.UTMParams, &params); err != nil {
		return nil, fmt.Errorf("Failed to decode utm params: %w", err)
	}
	return params, nil
}
