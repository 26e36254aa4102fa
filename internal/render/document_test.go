package render

import (
	"testing"

	"github.com/smallbiznis/propoza/internal/config"
	"github.com/smallbiznis/propoza/internal/proposal/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "0", FormatMoney(0))
	assert.Equal(t, "950", FormatMoney(950))
	assert.Equal(t, "12 500", FormatMoney(12500))
	assert.Equal(t, "1 200 000", FormatMoney(1200000))
	assert.Equal(t, "-3 600", FormatMoney(-3600))
}

func testConfig() config.Config {
	return config.Config{SurchargePercent: 20, PerformerName: "Studio"}
}

func TestAssembleComputesLiveTotals(t *testing.T) {
	p := domain.Proposal{
		Title: "Proposal for alice",
		Items: []domain.ProposalItem{
			{Qty: 2, Price: 1000},
			{Qty: 1, Price: 500},
		},
	}
	doc := Assemble(p, nil, "alice", testConfig())
	assert.Equal(t, "2 500", doc.Subtotal)
	assert.Equal(t, "500", doc.Extra)
	assert.Equal(t, "3 000", doc.Total)
}

func TestAssemblePrefersFrozenTotals(t *testing.T) {
	subtotal, extra, total := int64(1000), int64(200), int64(1200)
	p := domain.Proposal{
		FixedSubtotal: &subtotal,
		FixedExtra:    &extra,
		FixedTotal:    &total,
		Items: []domain.ProposalItem{
			{Qty: 9, Price: 9999},
		},
	}
	doc := Assemble(p, nil, "alice", testConfig())
	assert.Equal(t, "1 200", doc.Total)
}

func TestAssembleAppliesSnapshot(t *testing.T) {
	p := domain.Proposal{
		TemplateSnapshot: datatypes.JSONMap{
			"blocksVisibility": map[string]interface{}{
				"cover": false,
				"gift":  true,
			},
			"intro": map[string]interface{}{"title": "Hello", "subtitle": "sub"},
			"gift":  map[string]interface{}{"text": "{client_name}, a gift!"},
		},
	}
	doc := Assemble(p, nil, "alice", testConfig())
	assert.False(t, doc.ShowCover)
	assert.True(t, doc.ShowGift)
	assert.True(t, doc.ShowFooter)
	assert.Equal(t, "Hello", doc.IntroTitle)
	assert.Equal(t, "alice, a gift!", doc.GiftText)
}

func TestAssembleToleratesMissingSnapshot(t *testing.T) {
	doc := Assemble(domain.Proposal{}, nil, "alice", testConfig())
	assert.True(t, doc.ShowCover)
	assert.True(t, doc.ShowIntro)
}
