package types

import (
	"time"

	"github.com/google/uuid"
)

// AnswerOption carries an opaque scoring tag (Value). An option referenced by
// any user_answer row is only ever archived, never hard-deleted, so historical
// analytics keep resolving.
type AnswerOption struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	QuestionID uuid.UUID `gorm:"type:uuid;index;not null;column:question_id" json:"question_id"`
	Question   *Question `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuestionID;references:ID" json:"-"`
	Text       string    `gorm:"not null;column:text" json:"text"`
	Value      string    `gorm:"column:value" json:"value"`
	ImageURL   string    `gorm:"column:image_url" json:"image_url"`
	IsArchived bool      `gorm:"not null;default:false;column:is_archived" json:"is_archived"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (AnswerOption) TableName() string { return "answer_option" }
