package types

import (
	"time"

	"github.com/google/uuid"
)

// UserAnswer is append-only. A session may answer the same question several
// times; the latest created_at wins for distribution analytics.
type UserAnswer struct {
	ID         uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID  uuid.UUID    `gorm:"type:uuid;index;not null;column:session_id" json:"session_id"`
	Session    *UserSession `gorm:"constraint:OnDelete:CASCADE;foreignKey:SessionID;references:ID" json:"-"`
	QuestionID uuid.UUID    `gorm:"type:uuid;index;not null;column:question_id" json:"question_id"`
	OptionID   uuid.UUID    `gorm:"type:uuid;index;not null;column:option_id" json:"option_id"`
	CreatedAt  time.Time    `gorm:"not null;default:now()" json:"created_at"`
}

func (UserAnswer) TableName() string { return "user_answer" }
