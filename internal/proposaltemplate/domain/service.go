package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidName    = errors.New("invalid_name")
	ErrTemplateExists = errors.New("template_exists")
)

type CreateTemplateRequest struct {
	EventTypeID     snowflake.ID `json:"event_type_id"`
	Name            string       `json:"name"`
	ShowCover       *bool        `json:"show_cover"`
	ShowIntro       *bool        `json:"show_intro"`
	ShowGift        *bool        `json:"show_gift"`
	ShowFooter      *bool        `json:"show_footer"`
	IntroTitle      string       `json:"intro_title"`
	IntroSubtitle   string       `json:"intro_subtitle"`
	GiftText        string       `json:"gift_text"`
	GiftButtonText  string       `json:"gift_button_text"`
	GiftButtonURL   string       `json:"gift_button_url"`
	FooterText      string       `json:"footer_text"`
	FooterCopyright string       `json:"footer_copyright"`
	PrimaryColor    string       `json:"primary_color"`
	SecondaryColor  string       `json:"secondary_color"`
	FontFamily      string       `json:"font_family"`
}

type UpdateTemplateRequest struct {
	Name            *string `json:"name"`
	ShowCover       *bool   `json:"show_cover"`
	ShowIntro       *bool   `json:"show_intro"`
	ShowGift        *bool   `json:"show_gift"`
	ShowFooter      *bool   `json:"show_footer"`
	IntroTitle      *string `json:"intro_title"`
	IntroSubtitle   *string `json:"intro_subtitle"`
	GiftText        *string `json:"gift_text"`
	GiftButtonText  *string `json:"gift_button_text"`
	GiftButtonURL   *string `json:"gift_button_url"`
	FooterText      *string `json:"footer_text"`
	FooterCopyright *string `json:"footer_copyright"`
	PrimaryColor    *string `json:"primary_color"`
	SecondaryColor  *string `json:"secondary_color"`
	FontFamily      *string `json:"font_family"`
}

type TemplateService interface {
	// GetDefault returns the template new proposals start from: the most
	// recently updated template of an active event type, else the most
	// recently updated template overall, else a bootstrapped baseline.
	GetDefault(ctx context.Context) (ProposalTemplate, error)
	Get(ctx context.Context, id snowflake.ID) (ProposalTemplate, error)
	List(ctx context.Context) ([]ProposalTemplate, error)
	ListEventTypes(ctx context.Context) ([]EventType, error)
	Create(ctx context.Context, req CreateTemplateRequest) (ProposalTemplate, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateTemplateRequest) (ProposalTemplate, error)
}
