// Package pricing is the pure money arithmetic for proposals. Amounts are
// integer currency units; no floats anywhere.
package pricing

// Line is one priced row of a proposal.
type Line struct {
	Qty      int
	Price    int64
	Discount int64
}

// lineTotal folds one row. Non-positive qty contributes nothing and the
// discount never drives a row below zero.
func lineTotal(l Line) int64 {
	if l.Qty <= 0 {
		return 0
	}
	price := l.Price
	if price < 0 {
		price = 0
	}
	unit := price - l.Discount
	if unit < 0 {
		unit = 0
	}
	return int64(l.Qty) * unit
}

// Sum is the running subtotal without surcharge, the live "cart" figure.
func Sum(lines []Line) int64 {
	var total int64
	for _, l := range lines {
		total += lineTotal(l)
	}
	return total
}

// Compute returns (subtotal, extra, total) for the given surcharge percent.
// The surcharge rounds half away from zero, so subtotal+extra == total holds
// exactly.
func Compute(lines []Line, surchargePercent int) (subtotal, extra, total int64) {
	subtotal = Sum(lines)
	if surchargePercent > 0 {
		extra = (subtotal*int64(surchargePercent) + 50) / 100
	}
	total = subtotal + extra
	return subtotal, extra, total
}
