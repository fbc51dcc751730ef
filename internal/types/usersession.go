package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UserSession is one quiz-taking run. The id doubles as the public session
// handle, so it must stay unguessable (uuid v4, never sequential). UTMParams
// is NULL when the session arrived without attribution, not an empty object.
type UserSession struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	QuizID         uuid.UUID      `gorm:"type:uuid;index;not null;column:quiz_id" json:"quiz_id"`
	Quiz           *Quiz          `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuizID;references:ID" json:"-"`
	StartedAt      time.Time      `gorm:"not null;default:now();column:started_at" json:"started_at"`
	LastQuestionID *uuid.UUID     `gorm:"type:uuid;column:last_question_id" json:"last_question_id,omitempty"`
	IsCompleted    bool           `gorm:"not null;default:false;column:is_completed" json:"is_completed"`
	ProfileTag     string         `gorm:"column:profile_tag" json:"profile_tag"`
	UTMParams      datatypes.JSON `gorm:"column:utm_params" json:"utm_params,omitempty"`
}

func (UserSession) TableName() string { return "user_session" }
