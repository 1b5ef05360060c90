package utils

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Placeholder is shown for values the backend did not return
const Placeholder = "-"

var inrPrinter = message.NewPrinter(language.MustParse("en-IN"))

// FormatINR renders an amount in rupees with locale grouping, no decimals
func FormatINR(v *float64) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return Placeholder
	}
	return "₹" + inrPrinter.Sprint(number.Decimal(math.Round(*v), number.MaxFractionDigits(0)))
}

// FormatPercent renders a 0..1 confidence as a whole percentage
func FormatPercent(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return fmt.Sprintf("%.0f%%", *v*100)
}
