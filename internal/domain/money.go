package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes formatted amounts.
const CurrencySymbol = "R$"

//nolint:gochecknoglobals
var hundred = decimal.NewFromInt(100)

// Sum adds up the given amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero

	for _, amount := range amounts {
		total = total.Add(amount)
	}

	return total
}

// Percentage returns part as a percentage of whole.
// Returns zero when whole is not positive.
func Percentage(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}

	return part.Div(whole).Mul(hundred)
}

// FormatCurrency renders an amount the way the dashboard shows it, e.g. "R$ 1.234,56".
func FormatCurrency(amount decimal.Decimal) string {
	amount = amount.Round(2)
	intPart, fracPart, _ := strings.Cut(amount.Abs().StringFixed(2), ".")

	var grouped strings.Builder

	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}

		grouped.WriteRune(digit)
	}

	formatted := CurrencySymbol + " " + grouped.String() + "," + fracPart
	if amount.IsNegative() {
		return "-" + formatted
	}

	return formatted
}

// FormatPercent renders a percentage with one decimal place, e.g. "12.5%".
func FormatPercent(pct decimal.Decimal) string {
	return pct.StringFixed(1) + "%"
}
