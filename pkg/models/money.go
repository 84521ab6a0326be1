package models

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var errInvalidMoney = errors.New("invalid amount")

// ParseMoney reads an amount typed into an admin form. Both German ("19.999,00") and
// invariant ("19999.00") notations are accepted; when both separators occur the last one
// is the decimal separator. Negative amounts are rejected.
func ParseMoney(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "€")
	s = strings.TrimSuffix(strings.TrimSpace(s), "EUR")
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return decimal.Zero, errInvalidMoney
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0 && strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errInvalidMoney
	}
	if d.IsNegative() {
		return decimal.Zero, errInvalidMoney
	}
	return d, nil
}

// FormatMoney renders an amount with two decimals in the notation of lang.
func FormatMoney(d decimal.Decimal, lang string) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	thousands, dec := ".", ","
	if lang == LangEn {
		thousands, dec = ",", "."
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(thousands)
		}
		b.WriteRune(r)
	}
	b.WriteString(dec)
	b.WriteString(frac)
	return b.String()
}
