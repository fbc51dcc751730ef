package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	EmailTokenVerify        = "verify_email"
	EmailTokenPasswordReset = "password_reset"
)

// EmailToken is a single-use token for email verification or password reset.
// A non-nil used_at permanently invalidates the row.
type EmailToken struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;index;not null;column:user_id" json:"user_id"`
	User      *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	TokenHash string     `gorm:"uniqueIndex;not null;column:token_hash" json:"-"`
	Purpose   string     `gorm:"not null;column:purpose" json:"purpose"`
	ExpiresAt time.Time  `gorm:"not null;column:expires_at" json:"expires_at"`
	UsedAt    *time.Time `gorm:"column:used_at" json:"used_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (EmailToken) TableName() string { return "email_token" }
