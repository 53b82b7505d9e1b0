package invest

import "github.com/shopspring/decimal"

type RoulettePrize struct {
	Value  decimal.Decimal
	Weight int
}

// RouletteTable is walked in order; zero-weight prizes are shown on the
// wheel but never drawn.
var RouletteTable = []RoulettePrize{
	{Value: decimal.NewFromInt(1), Weight: 40},
	{Value: decimal.NewFromInt(5), Weight: 35},
	{Value: decimal.NewFromInt(10), Weight: 20},
	{Value: decimal.NewFromInt(15), Weight: 3},
	{Value: decimal.NewFromInt(20), Weight: 2},
	{Value: decimal.NewFromInt(35), Weight: 0},
	{Value: decimal.NewFromInt(50), Weight: 0},
	{Value: decimal.NewFromInt(100), Weight: 0},
}

func totalWeight(table []RoulettePrize) int {
	total := 0
	for _, p := range table {
		total += p.Weight
	}
	return total
}

// DrawPrize maps u in [0,1) onto table. The draw is scaled to the total
// weight and each weight is subtracted in order until the remainder is <= 0.
func DrawPrize(table []RoulettePrize, u float64) decimal.Decimal {
	if len(table) == 0 {
		return decimal.Zero
	}
	remaining := u * float64(totalWeight(table))
	for _, p := range table {
		remaining -= float64(p.Weight)
		if remaining <= 0 {
			return p.Value
		}
	}
	return table[0].Value
}
