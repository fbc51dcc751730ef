package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	QuestionMultipleChoice = "multiple_choice"
	QuestionLoader         = "loader"
	QuestionInfo           = "info"
	QuestionResult         = "result"
	QuestionProjection     = "projection"
)

// InteractiveQuestionType reports whether a question type collects an answer.
// Loader/info/result/projection screens are viewed, not answered; analytics
// treats a view of them as completion.
func InteractiveQuestionType(questionType string) bool {
	switch questionType {
	case QuestionLoader, QuestionInfo, QuestionResult, QuestionProjection:
		return false
	default:
		return true
	}
}

// Question rows are never hard-deleted once answers reference their quiz;
// removal archives them. SequenceOrder is unique per quiz among non-archived
// rows (partial unique index created by db.MigrateAll).
type Question struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	QuizID        uuid.UUID `gorm:"type:uuid;index;not null;column:quiz_id" json:"quiz_id"`
	Quiz          *Quiz     `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuizID;references:ID" json:"-"`
	SequenceOrder int       `gorm:"not null;column:sequence_order" json:"sequence_order"`
	Text          string    `gorm:"not null;column:text" json:"text"`
	QuestionType  string    `gorm:"not null;default:multiple_choice;column:question_type" json:"question_type"`
	ImageURL      string    `gorm:"column:image_url" json:"image_url"`
	Subtext       string    `gorm:"column:subtext" json:"subtext"`
	LoaderText    string    `gorm:"column:loader_text" json:"loader_text"`
	PopupText     string    `gorm:"column:popup_text" json:"popup_text"`
	IsArchived    bool      `gorm:"not null;default:false;column:is_archived" json:"is_archived"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;default:now()" json:"updated_at"`

	Options []*AnswerOption `gorm:"-" json:"options,omitempty"`
}

func (Question) TableName() string { return "question" }
