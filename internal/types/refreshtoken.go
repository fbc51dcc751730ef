package types

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken stores only the salted hash of the opaque token handed to the
// client. Revocation is explicit; expired or revoked rows are never reused.
type RefreshToken struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;index;not null;column:user_id" json:"user_id"`
	User      *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	TokenHash string     `gorm:"uniqueIndex;not null;column:token_hash" json:"-"`
	ExpiresAt time.Time  `gorm:"not null;column:expires_at" json:"expires_at"`
	RevokedAt *time.Time `gorm:"column:revoked_at" json:"revoked_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (RefreshToken) TableName() string { return "refresh_token" }
