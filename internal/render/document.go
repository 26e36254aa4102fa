// Package render turns a proposal into the customer-facing PDF document.
// Layout is driven by the proposal's template snapshot, never the live
// template, so issued documents are stable under template edits.
package render

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propoza/internal/config"
	"github.com/smallbiznis/propoza/internal/proposal/domain"
	"github.com/smallbiznis/propoza/internal/proposal/pricing"
	"gorm.io/datatypes"
)

type Line struct {
	Name      string
	Qty       int
	UnitPrice string
	Amount    string
}

type Document struct {
	Title        string
	CustomerName string

	EventTitle       string
	EventLocation    string
	EventDatetime    string
	EventDescription string

	ShowCover  bool
	ShowIntro  bool
	ShowGift   bool
	ShowFooter bool

	IntroTitle    string
	IntroSubtitle string
	GiftText      string
	FooterText    string
	Copyright     string

	PerformerName  string
	PerformerPhone string
	PerformerEmail string

	Lines    []Line
	Subtotal string
	Extra    string
	Total    string

	SurchargePercent int
}

// Assemble flattens a proposal into the renderable document. Frozen totals
// win; open drafts compute live.
func Assemble(p domain.Proposal, serviceNames map[snowflake.ID]string, customerName string, cfg config.Config) Document {
	doc := Document{
		Title:            p.Title,
		CustomerName:     customerName,
		EventTitle:       p.EventTitle,
		EventLocation:    p.EventLocation,
		EventDescription: p.EventDescription,
		PerformerName:    cfg.PerformerName,
		PerformerPhone:   cfg.PerformerPhone,
		PerformerEmail:   cfg.PerformerEmail,
		SurchargePercent: int(cfg.SurchargePercent),
	}

	meta := domain.DecodeMeta(p.Meta)
	if p.EventDatetime != nil {
		doc.EventDatetime = p.EventDatetime.Format("02.01.2006 15:04")
	} else if dt := meta.ParseEventDatetime(); dt != nil {
		doc.EventDatetime = dt.Format("02.01.2006 15:04")
	}
	if doc.EventTitle == "" {
		doc.EventTitle = meta.EventTitle
	}
	if doc.EventLocation == "" {
		doc.EventLocation = meta.EventAddress
	}

	applySnapshot(&doc, p.TemplateSnapshot, customerName)

	for _, item := range p.Items {
		name := serviceNames[item.ServiceID]
		if name == "" {
			name = "Service " + item.ServiceID.String()
		}
		doc.Lines = append(doc.Lines, Line{
			Name:      name,
			Qty:       item.Qty,
			UnitPrice: FormatMoney(item.Price),
			Amount:    FormatMoney(item.LineTotal()),
		})
	}

	var subtotal, extra, total int64
	if p.Frozen() {
		subtotal, extra, total = *p.FixedSubtotal, *p.FixedExtra, *p.FixedTotal
	} else {
		lines := make([]pricing.Line, 0, len(p.Items))
		for _, item := range p.Items {
			lines = append(lines, pricing.Line{Qty: item.Qty, Price: item.Price, Discount: item.Discount})
		}
		subtotal, extra, total = pricing.Compute(lines, doc.SurchargePercent)
	}
	doc.Subtotal = FormatMoney(subtotal)
	doc.Extra = FormatMoney(extra)
	doc.Total = FormatMoney(total)

	return doc
}

// applySnapshot reads the template snapshot leniently: missing blocks keep
// defaults, malformed values are ignored.
func applySnapshot(doc *Document, snap datatypes.JSONMap, customerName string) {
	doc.ShowCover, doc.ShowIntro, doc.ShowGift, doc.ShowFooter = true, true, true, true
	if snap == nil {
		return
	}

	if vis, ok := snap["blocksVisibility"].(map[string]interface{}); ok {
		doc.ShowCover = snapBool(vis, "cover", true)
		doc.ShowIntro = snapBool(vis, "intro", true)
		doc.ShowGift = snapBool(vis, "gift", true)
		doc.ShowFooter = snapBool(vis, "footer", true)
	}
	if intro, ok := snap["intro"].(map[string]interface{}); ok {
		doc.IntroTitle = snapString(intro, "title")
		doc.IntroSubtitle = snapString(intro, "subtitle")
	}
	if gift, ok := snap["gift"].(map[string]interface{}); ok {
		doc.GiftText = strings.ReplaceAll(snapString(gift, "text"), "{client_name}", customerName)
	}
	if footer, ok := snap["footer"].(map[string]interface{}); ok {
		doc.FooterText = snapString(footer, "text")
		doc.Copyright = snapString(footer, "copyright")
	}
}

func snapBool(m map[string]interface{}, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}

func snapString(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return v
}

// FormatMoney renders integer currency units with space-separated thousand
// groups; the currency symbol is a presentation concern.
func FormatMoney(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, " ")
	if neg {
		out = "-" + out
	}
	return out
}
