package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/funnelform/funnelform-backend/internal/services"
)

type AnalyticsHandler struct {
	analyticsService services.AnalyticsService
}

func NewAnalyticsHandler(analyticsService services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// dateRangeQuery reads optional ?start=YYYY-MM-DD&end=YYYY-MM-DD bounds.
func dateRangeQuery(c *gin.Context) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if raw := c.Query("start"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, nil, errors.New("invalid start date, expected YYYY-MM-DD")
		}
		start = &t
	}
	if raw := c.Query("end"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, nil, errors.New("invalid end date, expected YYYY-MM-DD")
		}
		end = &t
	}
	return start, end, nil
}

func (ah *AnalyticsHandler) DropRate(c *gin.Context) {
	rd, ok := callerFromContext(c)
	if !ok {
		return
	}
	quizID, ok := quizIDParam(c)
	if !ok {
		return
	}
	start, end, err := dateRangeQuery(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_range", err)
		return
	}
	rows, err := ah.analyticsService.DropRatePerQuestion(c.Request.Context(), quizID, rd.UserID, rd.Role, start, end)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"questions": rows})
}

func (ah *AnalyticsHandler) Funnel(c *gin.Context) {
	rd, ok := callerFromContext(c)
	if !ok {
		return
	}
	quizID, ok := quizIDParam(c)
	if !ok {
		return
	}
	start, end, err := dateRangeQuery(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_range", err)
		return
	}
	rows, err := ah.analyticsService.QuestionFunnel(c.Request.Context(), quizID, rd.UserID, rd.Role, start, end)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"questions": rows})
}

func (ah *AnalyticsHandler) Distribution(c *gin.Context) {
	rd, ok := callerFromContext(c)
	if !ok {
		return
	}
	quizID, ok := quizIDParam(c)
	if !ok {
		return
	}
	questionID, err := uuid.Parse(c.Param("questionId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("invalid question id"))
		return
	}
	start, end, err := dateRangeQuery(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_range", err)
		return
	}
	rows, err := ah.analyticsService.AnswerDistribution(c.Request.Context(), quizID, questionID, rd.UserID, rd.Role, start, end)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"options": rows})
}

func (ah *AnalyticsHandler) UTM(c *gin.Context) {
	rd, ok := callerFromContext(c)
	if !ok {
		return
	}
	quizID, ok := quizIDParam(c)
	if !ok {
		return
	}
	start, end, err := dateRangeQuery(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_range", err)
		return
	}
	rows, err := ah.analyticsService.UTMPerformance(c.Request.Context(), quizID, rd.UserID, rd.Role, start, end)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"sources": rows})
}

func (ah *AnalyticsHandler) Stats(c *gin.Context) {
	rd, ok := callerFromContext(c)
	if !ok {
		return
	}
	quizID, ok := quizIDParam(c)
	if !ok {
		return
	}
	start, end, err := dateRangeQuery(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_range", err)
		return
	}
	stats, err := ah.analyticsService.QuizStats(c.Request.Context(), quizID, rd.UserID, rd.Role, start, end)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, stats)
}

func (ah *AnalyticsHandler) Daily(c *gin.Context) {
	rd, ok := callerFromContext(c)
	if !ok {
		return
	}
	quizID, ok := quizIDParam(c)
	if !ok {
		return
	}
	start, end, err := dateRangeQuery(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_range", err)
		return
	}
	days := 30
	if raw := c.Query("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil || days <= 0 {
			RespondError(c, http.StatusBadRequest, "invalid_days", errors.New("days must be a positive integer"))
			return
		}
	}
	rows, err := ah.analyticsService.DailyActivity(c.Request.Context(), quizID, rd.UserID, rd.Role, start, end, days)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"days": rows})
}
