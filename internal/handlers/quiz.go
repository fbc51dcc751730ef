package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/funnelform/funnelform-backend/internal/platform/cloudinary"
	"github.com/funnelform/funnelform-backend/internal/requestdata"
	"github.com/funnelform/funnelform-backend/internal/services"
	"github.com/funnelform/funnelform-backend/internal/types"
)

type QuizHandler struct {
	quizService      services.QuizService
	contentService   services.ContentService
	cloudinaryClient cloudinary.Client
}

func NewQuizHandler(quizService services.QuizService, contentService services.ContentService, cloudinaryClient cloudinary.Client) *QuizHandler {
	return &QuizHandler{quizService: quizService, contentService: contentService, cloudinaryClient: cloudinaryClient}
}

// validateQuizInput rejects malformed authoring payloads before they reach
// the service: an empty funnel, an interactive question without answer
// options, or an image URL that is not a Cloudinary delivery URL.
func (qh *QuizHandler) validateQuizInput(input *services.QuizInput) error {
	if len(input.Questions) == 0 {
		return errors.New("a quiz needs at least one question")
	}
	if err := qh.validImageURL("logo_url", input.LogoURL); err != nil {
		return err
	}
	for i, qi := range input.Questions {
		if types.InteractiveQuestionType(qi.QuestionType) && len(qi.Options) == 0 {
			return fmt.Errorf("question %d needs at least one answer option", i+1)
		}
		if err := qh.validImageURL(fmt.Sprintf("question %d image_url", i+1), qi.ImageURL); err != nil {
			return err
		}
		for j, oi := range qi.Options {
			if err := qh.validImageURL(fmt.Sprintf("question %d option %d image_url", i+1, j+1), oi.ImageURL); err != nil {
				return err
			}
		}
	}
	return nil
}

// URL shape checks need a configured Cloudinary client; without one, authors
// may point images anywhere.
func (qh *QuizHandler) validImageURL(field, url string) error {
	if url == "" || qh.cloudinaryClient == nil {
		return nil
	}
	if !qh.cloudinaryClient.ValidDeliveryURL(url) {
		return fmt.Errorf("%s is not a Cloudinary delivery URL", field)
	}
	return nil
}

func callerFromContext(c *gin.Context) (*requestdata.RequestData, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing caller identity"))
		return nil, false
	}
	return rd, true
}

func quizIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("quizId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("invalid quiz id"))
		return uuid.Nil, false
	}
	return id, true
}

func (qh *QuizHandler) Create(c *gin.Context) {
	rd, ok := callerFromContext(c)
	if !ok {
		return
	}
	var input services.QuizInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", errors.New("invalid request body"))
		return
	}
	if err := qh.validateQuizInput(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}
	quiz, err := qh.quizService.CreateQuiz(c.Request.Context(), rd.UserID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

func (qh *QuizHandler) Update(c *gin.Context) {
	rd, ok := callerFromContext(c)
	if !ok {
		return
	}
	quizID, ok := quizIDParam(c)
	if !ok {
		return
	}
	var input services.QuizInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", errors.New("invalid request body"))
		return
	}
	if err := qh.validateQuizInput(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}
	quiz, err := qh.quizService.UpdateQuiz(c.Request.Context(), rd.UserID, rd.Role, quizID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, quiz)
}

func (qh *QuizHandler) Delete(c *gin.Context) {
	rd, ok := callerFromContext(c)
	if !ok {
		return
	}
	quizID, ok := quizIDParam(c)
	if !ok {
		return
	}
	if err := qh.quizService.DeleteQuiz(c.Request.Context(), rd.UserID, rd.Role, quizID); err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "quiz deleted"})
}

func (qh *QuizHandler) Get(c *gin.Context) {
	rd, ok := callerFromContext(c)
	if !ok {
		return
	}
	quizID, ok := quizIDParam(c)
	if !ok {
		return
	}
	quiz, err := qh.quizService.GetQuiz(c.Request.Context(), rd.UserID, rd.Role, quizID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, quiz)
}

func (qh *QuizHandler) List(c *gin.Context) {
	rd, ok := callerFromContext(c)
	if !ok {
		return
	}
	quizzes, err := qh.quizService.ListQuizzes(c.Request.Context(), rd.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, quizzes)
}

func (qh *QuizHandler) Publish(c *gin.Context) {
	rd, ok := callerFromContext(c)
	if !ok {
		return
	}
	quizID, ok := quizIDParam(c)
	if !ok {
		return
	}
	quiz, err := qh.quizService.PublishToShopify(c.Request.Context(), rd.UserID, rd.Role, quizID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"shopify_page_id":     quiz.ShopifyPageID,
		"shopify_page_handle": quiz.ShopifyPageHandle,
	})
}

// Content is the public, unauthenticated read used by the embedded widget.
func (qh *QuizHandler) Content(c *gin.Context) {
	quizID, ok := quizIDParam(c)
	if !ok {
		return
	}
	content, err := qh.contentService.GetQuizContent(c.Request.Context(), quizID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, content)
}
