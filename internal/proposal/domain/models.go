package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Proposal is the quote aggregate. Owner is the acting side (a staff member,
// or the customer while the draft is still their cart); Customer is the
// customer of record and never changes after creation.
type Proposal struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	PublicToken string       `json:"public_token" gorm:"size:64;uniqueIndex;not null"`
	OwnerID     snowflake.ID `json:"owner_id" gorm:"index;not null"`
	CustomerID  snowflake.ID `json:"customer_id" gorm:"index;not null"`
	TemplateID  snowflake.ID `json:"template_id" gorm:"not null"`

	// TemplateSnapshot detaches the proposal's look from later template
	// edits. Set on first save, replaced only on explicit template change.
	TemplateSnapshot datatypes.JSONMap `json:"template_snapshot" gorm:"type:jsonb"`

	Title  string `json:"title" gorm:"size:255"`
	Status Status `json:"status" gorm:"size:16;index;not null"`

	// Meta is the free-form side channel. Columns below take precedence
	// over overlapping meta keys; autosave writes both.
	Meta datatypes.JSONMap `json:"meta" gorm:"type:jsonb"`

	EventTitle       string     `json:"event_title" gorm:"size:255"`
	EventDatetime    *time.Time `json:"event_datetime"`
	EventLocation    string     `json:"event_location" gorm:"size:240"`
	EventDescription string     `json:"event_description"`
	DriveLink        string     `json:"drive_link"`
	PhotoPath        string     `json:"photo_path"`

	// Frozen at the REQUESTED/SENT transition; nil while the proposal is
	// an open draft.
	FixedSubtotal *int64 `json:"fixed_subtotal"`
	FixedExtra    *int64 `json:"fixed_extra"`
	FixedTotal    *int64 `json:"fixed_total"`

	Items []ProposalItem `json:"items,omitempty" gorm:"foreignKey:ProposalID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Proposal) TableName() string {
	return "proposals"
}

// Frozen reports whether totals were captured at submission.
func (p Proposal) Frozen() bool {
	return p.FixedTotal != nil
}

// ProposalItem is one service line. Price is captured from the catalog at
// add time and drifts only through explicit staff edits.
type ProposalItem struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	ProposalID snowflake.ID `json:"proposal_id" gorm:"uniqueIndex:ux_proposal_items_service;not null"`
	ServiceID  snowflake.ID `json:"service_id" gorm:"uniqueIndex:ux_proposal_items_service;not null"`
	Qty        int          `json:"qty" gorm:"not null;default:1"`
	Price      int64        `json:"price" gorm:"not null;default:0"`
	Discount   int64        `json:"discount" gorm:"not null;default:0"`
	Comment    string       `json:"comment"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func (ProposalItem) TableName() string {
	return "proposal_items"
}

// LineTotal is qty times the effective unit price. Discount never drives a
// line negative.
func (i ProposalItem) LineTotal() int64 {
	if i.Qty <= 0 {
		return 0
	}
	unit := i.Price - i.Discount
	if unit < 0 {
		unit = 0
	}
	return int64(i.Qty) * unit
}
