package types

import (
	"time"

	"github.com/google/uuid"
)

// Quiz is the funnel root. UserID is nullable: a quiz created through the
// Shopify integration is owned by the shop, not a builder account.
type Quiz struct {
	ID                uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID            *uuid.UUID `gorm:"type:uuid;index;column:user_id" json:"user_id,omitempty"`
	User              *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Name              string     `gorm:"not null;column:name" json:"name"`
	ProductURL        string     `gorm:"column:product_url" json:"product_url"`
	IsActive          bool       `gorm:"not null;default:true;column:is_active" json:"is_active"`
	LogoURL           string     `gorm:"column:logo_url" json:"logo_url"`
	BackgroundColor   string     `gorm:"column:background_color" json:"background_color"`
	TextColor         string     `gorm:"column:text_color" json:"text_color"`
	ButtonColor       string     `gorm:"column:button_color" json:"button_color"`
	AccentColor       string     `gorm:"column:accent_color" json:"accent_color"`
	StartURL          string     `gorm:"column:start_url" json:"start_url"`
	CustomDomain      string     `gorm:"column:custom_domain" json:"custom_domain"`
	ShopifyPageID     string     `gorm:"column:shopify_page_id" json:"shopify_page_id"`
	ShopifyPageHandle string     `gorm:"column:shopify_page_handle" json:"shopify_page_handle"`
	CreatedAt         time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"not null;default:now()" json:"updated_at"`

	Questions []*Question `gorm:"-" json:"questions,omitempty"`
}

func (Quiz) TableName() string { return "quiz" }
