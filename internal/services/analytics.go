package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/funnelform/funnelform-backend/internal/apperrors"
	"github.com/funnelform/funnelform-backend/internal/logger"
	"github.com/funnelform/funnelform-backend/internal/repos"
	"github.com/funnelform/funnelform-backend/internal/types"
)

type QuestionDropRate struct {
	QuestionID    uuid.UUID `json:"question_id"`
	SequenceOrder int       `json:"sequence_order"`
	Text          string    `json:"text"`
	Reached       int64     `json:"reached"`
	Answered      int64     `json:"answered"`
	DropRate      float64   `json:"drop_rate"`
}

type QuestionFunnelRow struct {
	QuestionID    uuid.UUID `json:"question_id"`
	SequenceOrder int       `json:"sequence_order"`
	Text          string    `json:"text"`
	QuestionType  string    `json:"question_type"`
	Views         int64     `json:"views"`
	Answers       int64     `json:"answers"`
	AnswerRate    float64   `json:"answer_rate"`
	DropRate      float64   `json:"drop_rate"`
	AvgSeconds    float64   `json:"avg_seconds"`
}

type OptionShare struct {
	OptionID   uuid.UUID `json:"option_id"`
	Text       string    `json:"text"`
	Value      string    `json:"value"`
	Selections int64     `json:"selections"`
	Percentage float64   `json:"percentage"`
}

type UTMGroup struct {
	Source         string  `json:"source"`
	Campaign       string  `json:"campaign"`
	Sessions       int64   `json:"sessions"`
	Completions    int64   `json:"completions"`
	CompletionRate float64 `json:"completion_rate"`
}

type QuizStats struct {
	Sessions            int64   `json:"sessions"`
	Completions         int64   `json:"completions"`
	CompletionRate      float64 `json:"completion_rate"`
	AvgQuestionsAnswered float64 `json:"avg_questions_answered"`
}

type DailyBucket struct {
	Day         string `json:"day"`
	Sessions    int64  `json:"sessions"`
	Completions int64  `json:"completions"`
}

// AnalyticsService runs read-only aggregations over sessions and answers.
// Every method checks quiz ownership before touching any session data.
type AnalyticsService interface {
	DropRatePerQuestion(ctx context.Context, quizID, callerID uuid.UUID, role string, start, end *time.Time) ([]QuestionDropRate, error)
	QuestionFunnel(ctx context.Context, quizID, callerID uuid.UUID, role string, start, end *time.Time) ([]QuestionFunnelRow, error)
	AnswerDistribution(ctx context.Context, quizID, questionID, callerID uuid.UUID, role string, start, end *time.Time) ([]OptionShare, error)
	UTMPerformance(ctx context.Context, quizID, callerID uuid.UUID, role string, start, end *time.Time) ([]UTMGroup, error)
	QuizStats(ctx context.Context, quizID, callerID uuid.UUID, role string, start, end *time.Time) (*QuizStats, error)
	DailyActivity(ctx context.Context, quizID, callerID uuid.UUID, role string, start, end *time.Time, trailingDays int) ([]DailyBucket, error)
}

type analyticsService struct {
	db       *gorm.DB
	log      *logger.Logger
	quizRepo repos.QuizRepo
}

func NewAnalyticsService(db *gorm.DB, log *logger.Logger, quizRepo repos.QuizRepo) AnalyticsService {
	serviceLog := log.With("service", "AnalyticsService")
	return &analyticsService{db: db, log: serviceLog, quizRepo: quizRepo}
}

// normalizeWindow widens a caller-supplied range to whole days: the end
// bound, whatever time-of-day arrived, becomes 23:59:59.999 so the range is
// inclusive on both ends. Missing bounds become effectively unbounded.
func normalizeWindow(start, end *time.Time) (time.Time, time.Time) {
	from := time.Time{}
	if start != nil {
		from = *start
	}
	to := time.Now().AddDate(100, 0, 0)
	if end != nil {
		y, m, d := end.Date()
		to = time.Date(y, m, d, 23, 59, 59, 999_000_000, end.Location())
	}
	return from, to
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (as *analyticsService) checkOwnership(ctx context.Context, quizID, callerID uuid.UUID, role string) error {
	ownerID, err := as.quizRepo.GetOwnerID(ctx, nil, quizID)
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

type funnelCountRow struct {
	QuestionID    uuid.UUID
	SequenceOrder int
	Text          string
	QuestionType  string
	Views         int64
	Answers       int64
}

// funnelCounts is the shared reached/answered aggregation. A session counts
// as having reached a question when its last viewed question sits at or past
// that question's sequence slot, or when last_question_id is still NULL
// (session in flight, position unbounded).
func (as *analyticsService) funnelCounts(ctx context.Context, quizID uuid.UUID, from, to time.Time) ([]funnelCountRow, error) {
	var rows []funnelCountRow
	err := as.db.WithContext(ctx).Raw(`
		SELECT
			q.id             AS question_id,
			q.sequence_order,
			q.text,
			q.question_type,
			COUNT(DISTINCT s.id) FILTER (
				WHERE lq.sequence_order IS NULL OR lq.sequence_order >= q.sequence_order
			) AS views,
			COUNT(DISTINCT a.session_id) AS answers
		FROM question q
		LEFT JOIN user_session s
			ON s.quiz_id = q.quiz_id AND s.started_at BETWEEN ? AND ?
		LEFT JOIN question lq
			ON lq.id = s.last_question_id
		LEFT JOIN user_answer a
			ON a.session_id = s.id AND a.question_id = q.id
		WHERE q.quiz_id = ? AND q.is_archived = false
		GROUP BY q.id, q.sequence_order, q.text, q.question_type
		ORDER BY q.sequence_order ASC
	`, from, to, quizID).Scan(&rows).Error
	if err != nil {
		as.log.Error("Funnel count query failed", "quiz_id", quizID, "error", err)
		return nil, fmt.Errorf("Failed to aggregate funnel counts: %w", err)
	}
	return rows, nil
}

func (as *analyticsService) completions(ctx context.Context, quizID uuid.UUID, from, to time.Time) (int64, error) {
	var completed int64
	err := as.db.WithContext(ctx).
		Model(&types.UserSession{}).
		Where("quiz_id = ? AND is_completed = true AND started_at BETWEEN ? AND ?", quizID, from, to).
		Count(&completed).Error
	if err != nil {
		return 0, fmt.Errorf("Failed to count completions: %w", err)
	}
	return completed, nil
}

func (as *analyticsService) DropRatePerQuestion(ctx context.Context, quizID, callerID uuid.UUID, role string, start, end *time.Time) ([]QuestionDropRate, error) {
	if err := as.checkOwnership(ctx, quizID, callerID, role); err != nil {
		return nil, err
	}
	from, to := normalizeWindow(start, end)
	counts, err := as.funnelCounts(ctx, quizID, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]QuestionDropRate, 0, len(counts))
	for _, c := range counts {
		rate := 0.0
		if c.Views > 0 {
			// A session can answer a question its last-question pointer never
			// reached (the widget skipped the PATCH); never report negative.
			rate = round2(math.Max(0, float64(c.Views-c.Answers)/float64(c.Views)*100))
		}
		out = append(out, QuestionDropRate{
			QuestionID:    c.QuestionID,
			SequenceOrder: c.SequenceOrder,
			Text:          c.Text,
			Reached:       c.Views,
			Answered:      c.Answers,
			DropRate:      rate,
		})
	}
	return out, nil
}

func (as *analyticsService) QuestionFunnel(ctx context.Context, quizID, callerID uuid.UUID, role string, start, end *time.Time) ([]QuestionFunnelRow, error) {
	if err := as.checkOwnership(ctx, quizID, callerID, role); err != nil {
		return nil, err
	}
	from, to := normalizeWindow(start, end)
	counts, err := as.funnelCounts(ctx, quizID, from, to)
	if err != nil {
		return nil, err
	}
	completed, err := as.completions(ctx, quizID, from, to)
	if err != nil {
		return nil, err
	}

	// Seconds spent per question: distance from the previous answer in the
	// same session, or from session start for the first answer.
	type secondsRow struct {
		QuestionID uuid.UUID
		AvgSeconds float64
	}
	var secondsRows []secondsRow
	err = as.db.WithContext(ctx).Raw(`
		WITH ordered AS (
			SELECT
				a.question_id,
				a.created_at,
				LAG(a.created_at) OVER (PARTITION BY a.session_id ORDER BY a.created_at ASC) AS prev_ts,
				s.started_at
			FROM user_answer a
			JOIN user_session s ON s.id = a.session_id
			WHERE s.quiz_id = ? AND s.started_at BETWEEN ? AND ?
		)
		SELECT
			question_id,
			AVG(EXTRACT(EPOCH FROM created_at - COALESCE(prev_ts, started_at))) AS avg_seconds
		FROM ordered
		GROUP BY question_id
	`, quizID, from, to).Scan(&secondsRows).Error
	if err != nil {
		as.log.Error("Time-spent query failed", "quiz_id", quizID, "error", err)
		return nil, fmt.Errorf("Failed to aggregate time spent: %w", err)
	}
	secondsByQuestion := make(map[uuid.UUID]float64, len(secondsRows))
	for _, r := range secondsRows {
		secondsByQuestion[r.QuestionID] = r.AvgSeconds
	}

	out := make([]QuestionFunnelRow, 0, len(counts))
	for i, c := range counts {
		row := QuestionFunnelRow{
			QuestionID:    c.QuestionID,
			SequenceOrder: c.SequenceOrder,
			Text:          c.Text,
			QuestionType:  c.QuestionType,
			Views:         c.Views,
			Answers:       c.Answers,
			AvgSeconds:    round2(secondsByQuestion[c.QuestionID]),
		}
		if !types.InteractiveQuestionType(c.QuestionType) {
			// Viewing a loader/info/result screen is completing it.
			row.Answers = c.Views
			row.AnswerRate = 100
			var next int64
			if i+1 < len(counts) {
				next = counts[i+1].Views
			} else {
				next = completed
			}
			if c.Views > 0 {
				row.DropRate = round2(math.Max(0, float64(c.Views-next)/float64(c.Views)*100))
			}
		} else {
			if c.Views > 0 {
				row.AnswerRate = round2(float64(c.Answers) / float64(c.Views) * 100)
				row.DropRate = round2(math.Max(0, float64(c.Views-c.Answers)/float64(c.Views)*100))
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (as *analyticsService) AnswerDistribution(ctx context.Context, quizID, questionID, callerID uuid.UUID, role string, start, end *time.Time) ([]OptionShare, error) {
	if err := as.checkOwnership(ctx, quizID, callerID, role); err != nil {
		return nil, err
	}
	var belongs int64
	if err := as.db.WithContext(ctx).
		Model(&types.Question{}).
		Where("id = ? AND quiz_id = ?", questionID, quizID).
		Count(&belongs).Error; err != nil {
		return nil, fmt.Errorf("Failed to verify question: %w", err)
	}
	if belongs == 0 {
		return nil, fmt.Errorf("%w: Question %s", apperrors.ErrNotFound, questionID)
	}
	from, to := normalizeWindow(start, end)

	// A session's latest answer to the question is authoritative; earlier
	// answers it changed its mind about are ignored.
	type shareRow struct {
		OptionID   uuid.UUID
		Text       string
		Value      string
		Selections int64
	}
	var rows []shareRow
	err := as.db.WithContext(ctx).Raw(`
		WITH latest AS (
			SELECT DISTINCT ON (a.session_id) a.session_id, a.option_id
			FROM user_answer a
			JOIN user_session s ON s.id = a.session_id
			WHERE a.question_id = ? AND s.quiz_id = ? AND s.started_at BETWEEN ? AND ?
			ORDER BY a.session_id, a.created_at DESC
		)
		SELECT
			o.id    AS option_id,
			o.text,
			o.value,
			COUNT(l.option_id) AS selections
		FROM answer_option o
		LEFT JOIN latest l ON l.option_id = o.id
		WHERE o.question_id = ?
		GROUP BY o.id, o.text, o.value
		ORDER BY selections DESC, o.id ASC
	`, questionID, quizID, from, to, questionID).Scan(&rows).Error
	if err != nil {
		as.log.Error("Distribution query failed", "question_id", questionID, "error", err)
		return nil, fmt.Errorf("Failed to aggregate answer distribution: %w", err)
	}

	var total int64
	for _, r := range rows {
		total += r.Selections
	}
	out := make([]OptionShare, 0, len(rows))
	for _, r := range rows {
		share := OptionShare{
			OptionID:   r.OptionID,
			Text:       r.Text,
			Value:      r.Value,
			Selections: r.Selections,
		}
		if total > 0 {
			share.Percentage = round2(float64(r.Selections) / float64(total) * 100)
		}
		out = append(out, share)
	}
	return out, nil
}

func (as *analyticsService) UTMPerformance(ctx context.Context, quizID, callerID uuid.UUID, role string, start, end *time.Time) ([]UTMGroup, error) {
	if err := as.checkOwnership(ctx, quizID, callerID, role); err != nil {
		return nil, err
	}
	from, to := normalizeWindow(start, end)
	type utmRow struct {
		Source      string
		Campaign    string
		Sessions    int64
		Completions int64
	}
	var rows []utmRow
	err := as.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(NULLIF(utm_params->>'utm_source', ''), 'Direct') AS source,
			COALESCE(NULLIF(utm_params->>'utm_campaign', ''), 'N/A')  AS campaign,
			COUNT(*) AS sessions,
			COUNT(*) FILTER (WHERE is_completed) AS completions
		FROM user_session
		WHERE quiz_id = ? AND started_at BETWEEN ? AND ?
		GROUP BY 1, 2
		ORDER BY sessions DESC
	`, quizID, from, to).Scan(&rows).Error
	if err != nil {
		as.log.Error("UTM query failed", "quiz_id", quizID, "error", err)
		return nil, fmt.Errorf("Failed to aggregate UTM performance: %w", err)
	}
	out := make([]UTMGroup, 0, len(rows))
	for _, r := range rows {
		group := UTMGroup{
			Source:      r.Source,
			Campaign:    r.Campaign,
			Sessions:    r.Sessions,
			Completions: r.Completions,
		}
		if r.Sessions > 0 {
			group.CompletionRate = round2(float64(r.Completions) / float64(r.Sessions) * 100)
		}
		out = append(out, group)
	}
	return out, nil
}

func (as *analyticsService) QuizStats(ctx context.Context, quizID, callerID uuid.UUID, role string, start, end *time.Time) (*QuizStats, error) {
	if err := as.checkOwnership(ctx, quizID, callerID, role); err != nil {
		return nil, err
	}
	from, to := normalizeWindow(start, end)
	var row struct {
		Sessions    int64
		Completions int64
		AvgAnswered float64
	}
	err := as.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(s.id) AS sessions,
			COUNT(s.id) FILTER (WHERE s.is_completed) AS completions,
			COALESCE(AVG(COALESCE(t.cnt, 0)), 0) AS avg_answered
		FROM user_session s
		LEFT JOIN (
			SELECT a.session_id, COUNT(DISTINCT a.question_id) AS cnt
			FROM user_answer a
			GROUP BY a.session_id
		) t ON t.session_id = s.id
		WHERE s.quiz_id = ? AND s.started_at BETWEEN ? AND ?
	`, quizID, from, to).Scan(&row).Error
	if err != nil {
		as.log.Error("Stats query failed", "quiz_id", quizID, "error", err)
		return nil, fmt.Errorf("Failed to aggregate quiz stats: %w", err)
	}
	stats := &QuizStats{
		Sessions:             row.Sessions,
		Completions:          row.Completions,
		AvgQuestionsAnswered: round2(row.AvgAnswered),
	}
	if row.Sessions > 0 {
		stats.CompletionRate = round2(float64(row.Completions) / float64(row.Sessions) * 100)
	}
	return stats, nil
}

func (as *analyticsService) DailyActivity(ctx context.Context, quizID, callerID uuid.UUID, role string, start, end *time.Time, trailingDays int) ([]DailyBucket, error) {
	if err := as.checkOwnership(ctx, quizID, callerID, role); err != nil {
		return nil, err
	}
	if trailingDays <= 0 {
		trailingDays = 30
	}
	var from, to time.Time
	if start == nil && end == nil {
		now := time.Now()
		y, m, d := now.Date()
		to = time.Date(y, m, d, 23, 59, 59, 999_000_000, now.Location())
		from = time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(trailingDays - 1))
	} else {
		from, to = normalizeWindow(start, end)
	}
	var rows []DailyBucket
	err := as.db.WithContext(ctx).Raw(`
		SELECT
			to_char(date_trunc('day', started_at), 'YYYY-MM-DD') AS day,
			COUNT(*) AS sessions,
			COUNT(*) FILTER (WHERE is_completed) AS completions
		FROM user_session
		WHERE quiz_id = ? AND started_at BETWEEN ? AND ?
		GROUP BY 1
		ORDER BY 1 ASC
	`, quizID, from, to).Scan(&rows).Error
	if err != nil {
		as.log.Error("Daily activity query failed", "quiz_id", quizID, "error", err)
		return nil, fmt.Errorf("Failed to aggregate daily activity: %w", err)
	}
	return rows, nil
}
