package render

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type Renderer interface {
	RenderProposal(ctx context.Context, doc Document) (io.Reader, error)
}

type pdfRenderer struct{}

func NewRenderer() Renderer {
	return &pdfRenderer{}
}

func (r *pdfRenderer) RenderProposal(_ context.Context, doc Document) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	if doc.ShowCover {
		m.AddRow(16,
			text.NewCol(12, doc.Title, props.Text{
				Size:  20,
				Style: fontstyle.Bold,
				Align: align.Left,
			}),
		)
		m.AddRow(18,
			col.New(12).Add(
				text.New("Prepared for: "+doc.CustomerName, props.Text{Top: 0}),
				text.New(eventLine(doc), props.Text{Top: 5}),
				text.New(doc.EventLocation, props.Text{Top: 10}),
			),
		)
	}

	if doc.ShowIntro && doc.IntroTitle != "" {
		m.AddRow(10,
			text.NewCol(12, doc.IntroTitle, props.Text{Size: 14, Style: fontstyle.Bold}),
		)
		if doc.IntroSubtitle != "" {
			m.AddRow(12, text.NewCol(12, doc.IntroSubtitle, props.Text{Size: 10}))
		}
	}

	// Services are always visible.
	m.AddRow(10,
		text.NewCol(6, "Service", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, line := range doc.Lines {
		m.AddRow(10,
			text.NewCol(6, line.Name, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", line.Qty), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, line.UnitPrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, line.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Subtotal", props.Text{Size: 9}),
		text.NewCol(2, doc.Subtotal, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, fmt.Sprintf("Service fee %d%%", doc.SurchargePercent), props.Text{Size: 9}),
		text.NewCol(2, doc.Extra, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(2, doc.Total, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)

	if doc.ShowGift && doc.GiftText != "" {
		m.AddRow(14, text.NewCol(12, doc.GiftText, props.Text{Size: 10, Style: fontstyle.Italic, Top: 4}))
	}

	if doc.ShowFooter {
		m.AddRow(16,
			col.New(12).Add(
				text.New(doc.FooterText, props.Text{Size: 9, Top: 2}),
				text.New(contactLine(doc), props.Text{Size: 9, Top: 7}),
				text.New(doc.Copyright, props.Text{Size: 8, Top: 12}),
			),
		)
	}

	generated, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(generated.GetBytes()), nil
}

func eventLine(doc Document) string {
	switch {
	case doc.EventTitle != "" && doc.EventDatetime != "":
		return doc.EventTitle + ", " + doc.EventDatetime
	case doc.EventTitle != "":
		return doc.EventTitle
	default:
		return doc.EventDatetime
	}
}

func contactLine(doc Document) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{doc.PerformerName, doc.PerformerPhone, doc.PerformerEmail} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += " · " + p
	}
	return out
}
