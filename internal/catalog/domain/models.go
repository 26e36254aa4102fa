package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Category groups services for browsing. Customers only see active ones.
type Category struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	Name        string       `json:"name" gorm:"size:255;not null"`
	Description string       `json:"description"`
	SortOrder   int          `json:"sort_order" gorm:"default:0"`
	IsActive    bool         `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}

// Service is a catalog entry. Repeatable services may appear on a proposal
// with qty > 1; non-repeatable ones are pinned to a single unit.
type Service struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	CategoryID  snowflake.ID `json:"category_id" gorm:"index;not null"`
	Name        string       `json:"name" gorm:"size:255;not null"`
	Description string       `json:"description"`
	Unit        string       `json:"unit" gorm:"size:64"`
	BasePrice   *int64       `json:"base_price"`
	Repeatable  bool         `json:"repeatable" gorm:"default:false"`
	SortOrder   int          `json:"sort_order" gorm:"default:0"`
	IsActive    bool         `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (Service) TableName() string {
	return "services"
}

// Price resolves the nullable base price to the amount captured on a
// proposal line.
func (s Service) Price() int64 {
	if s.BasePrice == nil {
		return 0
	}
	return *s.BasePrice
}
