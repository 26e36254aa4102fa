package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeEmpty(t *testing.T) {
	subtotal, extra, total := Compute(nil, 20)
	assert.Equal(t, int64(0), subtotal)
	assert.Equal(t, int64(0), extra)
	assert.Equal(t, int64(0), total)
}

func TestComputeSurchargeRoundsHalfUp(t *testing.T) {
	tests := []struct {
		name     string
		lines    []Line
		percent  int
		subtotal int64
		extra    int64
	}{
		{
			name:     "exact multiple",
			lines:    []Line{{Qty: 1, Price: 1000}},
			percent:  20,
			subtotal: 1000,
			extra:    200,
		},
		{
			name:     "rounds up at half",
			lines:    []Line{{Qty: 1, Price: 1}, {Qty: 1, Price: 1}, {Qty: 1, Price: 1}}, // 3 * 20% = 0.6
			percent:  20,
			subtotal: 3,
			extra:    1,
		},
		{
			name:     "rounds down below half",
			lines:    []Line{{Qty: 1, Price: 2}}, // 0.4
			percent:  20,
			subtotal: 2,
			extra:    0,
		},
		{
			name:     "exact half rounds up",
			lines:    []Line{{Qty: 1, Price: 50}}, // 50 * 1% = 0.5
			percent:  1,
			subtotal: 50,
			extra:    1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subtotal, extra, total := Compute(tt.lines, tt.percent)
			assert.Equal(t, tt.subtotal, subtotal)
			assert.Equal(t, tt.extra, extra)
			assert.Equal(t, subtotal+extra, total)
		})
	}
}

func TestComputeDiscountNeverGoesNegative(t *testing.T) {
	lines := []Line{
		{Qty: 2, Price: 100, Discount: 30},  // 140
		{Qty: 1, Price: 100, Discount: 500}, // clamped to 0
	}
	subtotal, extra, total := Compute(lines, 20)
	assert.Equal(t, int64(140), subtotal)
	assert.Equal(t, int64(28), extra)
	assert.Equal(t, int64(168), total)
}

func TestComputeIgnoresDegenerateLines(t *testing.T) {
	lines := []Line{
		{Qty: -3, Price: 100},
		{Qty: 2, Price: -50},
		{Qty: 4, Price: 25},
	}
	subtotal, _, _ := Compute(lines, 20)
	assert.Equal(t, int64(100), subtotal)
}

func TestSumMatchesComputeSubtotal(t *testing.T) {
	lines := []Line{
		{Qty: 3, Price: 700, Discount: 100},
		{Qty: 1, Price: 1234},
	}
	subtotal, _, _ := Compute(lines, 20)
	assert.Equal(t, subtotal, Sum(lines))
}
