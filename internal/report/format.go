// internal/report/format.go
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatMoney renders v as $1,234.56
func FormatMoney(v float64) string {
	if !finite(v) {
		return fmt.Sprintf("$%v", v)
	}
	d := decimal.NewFromFloat(v)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	return sign + "$" + groupThousands(d.StringFixed(2))
}

// FormatCount renders v rounded to a whole number with thousands separators
func FormatCount(v float64) string {
	if !finite(v) {
		return fmt.Sprintf("%v", v)
	}
	return groupThousands(decimal.NewFromFloat(v).StringFixed(0))
}

// FormatFixed renders v with two decimals and no grouping
func FormatFixed(v float64) string {
	if !finite(v) {
		return fmt.Sprintf("%v", v)
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var sb strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}
	return sign + sb.String() + frac
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
