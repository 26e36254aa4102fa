package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound      = errors.New("not_found")
	ErrForbidden     = errors.New("forbidden")
	ErrNotEditable   = errors.New("not_editable")
	ErrEmptyProposal = errors.New("empty_proposal")
	ErrNoAssignee    = errors.New("no_assignee")
)

// ValidationError carries a field-level failure the transport layer renders
// as a 400 with a structured body.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, code, message string) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message}
}

// AddItemMode selects the qty semantics of AddItem.
type AddItemMode string

const (
	// AddModeIncrement is the storefront "add to cart" gesture: repeatable
	// services accumulate, non-repeatable ones stay at one unit.
	AddModeIncrement AddItemMode = "increment"
	// AddModeSet overwrites qty (still clamped for non-repeatable).
	AddModeSet AddItemMode = "set"
)

// QtyAction adjusts an existing line's quantity.
type QtyAction string

const (
	QtyInc QtyAction = "inc"
	QtyDec QtyAction = "dec"
	QtySet QtyAction = "set"
)

// ListTab partitions a staff member's proposals.
type ListTab string

const (
	TabActive   ListTab = "active"
	TabRequests ListTab = "requests"
	TabHistory  ListTab = "history"
)

type AddItemRequest struct {
	ServiceID snowflake.ID `json:"service_id"`
	Qty       int          `json:"qty"`
	Mode      AddItemMode  `json:"mode"`
}

type AutosaveRequest struct {
	Title            *string       `json:"title"`
	TemplateID       *snowflake.ID `json:"template_id"`
	EventTitle       *string       `json:"event_title"`
	EventDatetime    *string       `json:"event_datetime"`
	EventAddress     *string       `json:"event_address"`
	EventAddressURL  *string       `json:"event_address_url"`
	DriveURL         *string       `json:"drive_url"`
	EventDescription *string       `json:"event_description"`
}

// Totals is the pricing triple returned alongside item mutations.
type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Extra    int64 `json:"extra"`
	Total    int64 `json:"total"`
}

// ItemResult pairs a mutated line with the recomputed running totals.
type ItemResult struct {
	Item      ProposalItem `json:"item"`
	LineTotal int64        `json:"line_total"`
	Totals    Totals       `json:"totals"`
}

// ProposalList is the staff dashboard partition; customers only get Active.
type ProposalList struct {
	Active   []Proposal `json:"active"`
	Requests []Proposal `json:"requests,omitempty"`
	History  []Proposal `json:"history,omitempty"`
}

// Service is the proposal lifecycle engine. Every method reads the acting
// user from the request context; GetByPublicToken is the one anonymous
// entry point.
type Service interface {
	ResolveCustomerDraft(ctx context.Context) (Proposal, error)
	ResolveStaffDraft(ctx context.Context, customerID snowflake.ID, forceNew bool) (Proposal, error)

	Get(ctx context.Context, id snowflake.ID) (Proposal, error)
	GetByPublicToken(ctx context.Context, token string) (Proposal, error)
	List(ctx context.Context) (ProposalList, error)

	AddItem(ctx context.Context, proposalID snowflake.ID, req AddItemRequest) (ItemResult, error)
	// UpdateItemQty applies inc/dec steps or an explicit set; qty is only
	// read for QtySet.
	UpdateItemQty(ctx context.Context, itemID snowflake.ID, action QtyAction, qty int) (ItemResult, error)
	UpdateItemPrice(ctx context.Context, itemID snowflake.ID, price int64) (ItemResult, error)
	RemoveItem(ctx context.Context, itemID snowflake.ID) error
	Clear(ctx context.Context, proposalID snowflake.ID) error

	Autosave(ctx context.Context, id snowflake.ID, req AutosaveRequest) (Proposal, error)
	UploadPhoto(ctx context.Context, id snowflake.ID, path string) (Proposal, error)

	Submit(ctx context.Context, id snowflake.ID) (Proposal, error)
	Accept(ctx context.Context, id snowflake.ID) (Proposal, error)
	Reject(ctx context.Context, id snowflake.ID) (Proposal, error)
	Reactivate(ctx context.Context, id snowflake.ID) (Proposal, error)
}
