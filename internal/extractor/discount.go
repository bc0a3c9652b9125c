package extractor

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// leadingNumber is the numeric prefix read by a lenient float parse.
var leadingNumber = regexp.MustCompile(`^\s*\d+(\.\d+)?`)

var currencyGlyphs = strings.NewReplacer("¥", "", "￥", "", "元", "")

var ten = decimal.NewFromInt(10)

// parsePrice strips currency glyphs and reads the leading number.
func parsePrice(s string) (decimal.Decimal, bool) {
	m := leadingNumber.FindString(currencyGlyphs.Replace(s))
	if m == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.TrimSpace(m))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Discount returns the tenths-off label for current against original, e.g.
// "¥50" of "¥100" is "5.0折". It is empty unless both prices parse to
// positive numbers and current is below original.
func Discount(current, original string) string {
	if current == "" || original == "" {
		return ""
	}
	c, ok := parsePrice(current)
	if !ok {
		return ""
	}
	o, ok := parsePrice(original)
	if !ok {
		return ""
	}
	if !c.IsPositive() || !o.IsPositive() || !c.LessThan(o) {
		return ""
	}
	return c.Div(o).Mul(ten).Round(1).StringFixed(1) + "折"
}
