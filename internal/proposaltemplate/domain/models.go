package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type EventType struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"size:160;uniqueIndex;not null"`
	IsActive  bool         `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (EventType) TableName() string {
	return "event_types"
}

// ProposalTemplate controls which blocks a rendered proposal shows and how
// they look. Proposals never read the template directly after creation; they
// read the snapshot captured at selection time.
type ProposalTemplate struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	EventTypeID snowflake.ID `json:"event_type_id" gorm:"uniqueIndex:ux_templates_event_name;not null"`
	Name        string       `json:"name" gorm:"size:160;uniqueIndex:ux_templates_event_name;not null"`

	ShowCover  bool `json:"show_cover" gorm:"default:true"`
	ShowIntro  bool `json:"show_intro" gorm:"default:true"`
	ShowGift   bool `json:"show_gift" gorm:"default:true"`
	ShowFooter bool `json:"show_footer" gorm:"default:true"`

	IntroTitle    string `json:"intro_title" gorm:"size:160"`
	IntroSubtitle string `json:"intro_subtitle"`

	GiftText       string `json:"gift_text" gorm:"size:220"`
	GiftButtonText string `json:"gift_button_text" gorm:"size:80"`
	GiftButtonURL  string `json:"gift_button_url"`

	FooterText      string `json:"footer_text"`
	FooterCopyright string `json:"footer_copyright" gorm:"size:120"`

	PrimaryColor   string `json:"primary_color" gorm:"size:16"`
	SecondaryColor string `json:"secondary_color" gorm:"size:16"`
	FontFamily     string `json:"font_family" gorm:"size:80"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProposalTemplate) TableName() string {
	return "proposal_templates"
}

// Snapshot captures the template as a detached document so that already
// issued proposals keep their look when the template is edited later. The
// services block is always visible.
func (t ProposalTemplate) Snapshot() datatypes.JSONMap {
	return datatypes.JSONMap{
		"name":          t.Name,
		"event_type_id": t.EventTypeID.String(),
		"blocksVisibility": map[string]interface{}{
			"cover":    t.ShowCover,
			"intro":    t.ShowIntro,
			"gift":     t.ShowGift,
			"footer":   t.ShowFooter,
			"services": true,
		},
		"intro": map[string]interface{}{
			"title":    t.IntroTitle,
			"subtitle": t.IntroSubtitle,
		},
		"gift": map[string]interface{}{
			"text":       t.GiftText,
			"buttonText": t.GiftButtonText,
			"buttonUrl":  t.GiftButtonURL,
		},
		"footer": map[string]interface{}{
			"text":      t.FooterText,
			"copyright": t.FooterCopyright,
		},
		"visual": map[string]interface{}{
			"primaryColor":   t.PrimaryColor,
			"secondaryColor": t.SecondaryColor,
			"fontFamily":     t.FontFamily,
		},
	}
}
