package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/funnelform/funnelform-backend/internal/services"
)

type SessionHandler struct {
	sessionService services.SessionService
}

func NewSessionHandler(sessionService services.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

func sessionIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("invalid session id"))
		return uuid.Nil, false
	}
	return id, true
}

func (sh *SessionHandler) Start(c *gin.Context) {
	var req struct {
		QuizID    uuid.UUID         `json:"quiz_id"`
		UTMParams map[string]string `json:"utm_params"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", errors.New("invalid request body"))
		return
	}
	session, err := sh.sessionService.StartSession(c.Request.Context(), req.QuizID, req.UTMParams)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": session.ID, "started_at": session.StartedAt})
}

func (sh *SessionHandler) Update(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	var req struct {
		LastQuestionID uuid.UUID `json:"last_question_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", errors.New("invalid request body"))
		return
	}
	if err := sh.sessionService.UpdateSession(c.Request.Context(), sessionID, req.LastQuestionID); err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "session updated"})
}

func (sh *SessionHandler) SubmitAnswer(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	var req struct {
		QuestionID uuid.UUID `json:"question_id"`
		OptionID   uuid.UUID `json:"option_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", errors.New("invalid request body"))
		return
	}
	answer, err := sh.sessionService.SubmitAnswer(c.Request.Context(), sessionID, req.QuestionID, req.OptionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"answer_id": answer.ID, "created_at": answer.CreatedAt})
}

func (sh *SessionHandler) Complete(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	var req struct {
		ProfileTag string `json:"profile_tag"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", errors.New("invalid request body"))
		return
	}
	if err := sh.sessionService.CompleteSession(c.Request.Context(), sessionID, req.ProfileTag); err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "session completed"})
}

// UTMParams echoes a session's attribution back to the widget so the final
// redirect can carry the original tracking parameters.
func (sh *SessionHandler) UTMParams(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	params, err := sh.sessionService.GetSessionUTMParams(c.Request.Context(), sessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if params == nil {
		params = map[string]string{}
	}
	RespondOK(c, gin.H{"utm_params": params})
}
