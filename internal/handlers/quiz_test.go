package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/funnelform/funnelform-backend/internal/logger"
	"github.com/funnelform/funnelform-backend/internal/platform/cloudinary"
	"github.com/funnelform/funnelform-backend/internal/requestdata"
	"github.com/funnelform/funnelform-backend/internal/services"
	"github.com/funnelform/funnelform-backend/internal/types"
)

// stubQuizService records whether the handler let a payload through.
type stubQuizService struct {
	created *services.QuizInput
	updated *services.QuizInput
}

func (s *stubQuizService) CreateQuiz(ctx context.Context, ownerID uuid.UUID, input services.QuizInput) (*types.Quiz, error) {
	s.created = &input
	return &types.Quiz{ID: uuid.New(), Name: input.Name}, nil
}

func (s *stubQuizService) UpdateQuiz(ctx context.Context, callerID uuid.UUID, role string, quizID uuid.UUID, input services.QuizInput) (*types.Quiz, error) {
	s.updated = &input
	return &types.Quiz{ID: quizID, Name: input.Name}, nil
}

func (s *stubQuizService) DeleteQuiz(ctx context.Context, callerID uuid.UUID, role string, quizID uuid.UUID) error {
	return nil
}

func (s *stubQuizService) GetQuiz(ctx context.Context, callerID uuid.UUID, role string, quizID uuid.UUID) (*types.Quiz, error) {
	return &types.Quiz{ID: quizID}, nil
}

func (s *stubQuizService) ListQuizzes(ctx context.Context, userID uuid.UUID) ([]*types.Quiz, error) {
	return nil, nil
}

func (s *stubQuizService) PublishToShopify(ctx context.Context, callerID uuid.UUID, role string, quizID uuid.UUID) (*types.Quiz, error) {
	return &types.Quiz{ID: quizID}, nil
}

func newQuizHandlerRouter(t *testing.T) (*gin.Engine, *stubQuizService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	cld, err := cloudinary.New(log, cloudinary.Config{
		CloudName: "demo",
		APIKey:    "key",
		APISecret: "secret",
	})
	if err != nil {
		t.Fatalf("cloudinary client: %v", err)
	}

	stub := &stubQuizService{}
	handler := NewQuizHandler(stub, nil, cld)

	caller := &requestdata.RequestData{UserID: uuid.New(), Role: types.RoleUser}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(requestdata.WithRequestData(c.Request.Context(), caller))
		c.Next()
	})
	router.POST("/api/quizzes", handler.Create)
	router.PUT("/api/quizzes/:quizId", handler.Update)
	return router, stub
}

func postQuiz(t *testing.T, router *gin.Engine, method, path string, input services.QuizInput) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(input)
	if err != nil {
		t.Fatalf("marshal input: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func validQuizInput() services.QuizInput {
	return services.QuizInput{
		Name:     "Skin Type Finder",
		IsActive: true,
		LogoURL:  "https://res.cloudinary.com/demo/image/upload/v1/logo.png",
		Questions: []services.QuestionInput{
			{
				Text:         "How does your skin feel?",
				QuestionType: types.QuestionMultipleChoice,
				Options: []services.OptionInput{
					{Text: "Tight and dry"},
					{Text: "Shiny by noon"},
				},
			},
		},
	}
}

func TestCreateQuizRejectsEmptyFunnel(t *testing.T) {
	router, stub := newQuizHandlerRouter(t)

	input := validQuizInput()
	input.Questions = nil
	w := postQuiz(t, router, http.MethodPost, "/api/quizzes", input)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if stub.created != nil {
		t.Fatal("empty funnel reached the service")
	}
}

func TestCreateQuizRejectsInteractiveQuestionWithoutOptions(t *testing.T) {
	router, stub := newQuizHandlerRouter(t)

	input := validQuizInput()
	input.Questions[0].Options = nil
	w := postQuiz(t, router, http.MethodPost, "/api/quizzes", input)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if stub.created != nil {
		t.Fatal("optionless question reached the service")
	}
}

func TestCreateQuizAllowsOptionlessLoader(t *testing.T) {
	router, stub := newQuizHandlerRouter(t)

	input := validQuizInput()
	input.Questions = append(input.Questions, services.QuestionInput{
		Text:         "Crunching your answers...",
		QuestionType: types.QuestionLoader,
	})
	w := postQuiz(t, router, http.MethodPost, "/api/quizzes", input)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if stub.created == nil {
		t.Fatal("valid payload never reached the service")
	}
}

func TestUpdateQuizRejectsForeignImageURL(t *testing.T) {
	router, stub := newQuizHandlerRouter(t)

	input := validQuizInput()
	input.Questions[0].ImageURL = "https://evil.example.com/pixel.png"
	w := postQuiz(t, router, http.MethodPut, "/api/quizzes/"+uuid.NewString(), input)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	var envelope ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if envelope.Error.Code != "invalid_input" {
		t.Fatalf("expected code invalid_input, got %q", envelope.Error.Code)
	}
	if stub.updated != nil {
		t.Fatal("foreign image URL reached the service")
	}
}

func TestUpdateQuizAcceptsDeliveryURLs(t *testing.T) {
	router, stub := newQuizHandlerRouter(t)

	input := validQuizInput()
	input.Questions[0].ImageURL = "https://res.cloudinary.com/demo/image/upload/v2/q1.jpg"
	input.Questions[0].Options[0].ImageURL = "https://res.cloudinary.com/demo/image/upload/v2/o1.jpg"
	w := postQuiz(t, router, http.MethodPut, "/api/quizzes/"+uuid.NewString(), input)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if stub.updated == nil {
		t.Fatal("valid payload never reached the service")
	}
}
