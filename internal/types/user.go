package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email         string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password      string    `gorm:"not null;column:password" json:"-"`
	FullName      string    `gorm:"not null;column:full_name" json:"full_name"`
	Role          string    `gorm:"not null;default:user;column:role" json:"role"`
	IsActive      bool      `gorm:"not null;default:true;column:is_active" json:"is_active"`
	EmailVerified bool      `gorm:"not null;default:false;column:email_verified" json:"email_verified"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string { return "user" }
