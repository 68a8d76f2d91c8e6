package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidNumber is wrapped by every number parsing failure.
var ErrInvalidNumber = errors.New("invalid number")

var numberReplacer = strings.NewReplacer(
	"$", "",
	"€", "",
	"£", "",
	"¥", "",
	",", "",
	" ", "",
	"\u00a0", "",
)

// ParseDecimal reads a cell value as an exact decimal. Currency symbols,
// thousands separators and spaces are stripped from strings; an amount in
// parentheses is negative.
func ParseDecimal(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case decimal.Decimal:
		return v, nil
	case string:
		return parseNumberString(v)
	default:
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidNumber, value)
	}
}

// NormalizeNumber reads a cell value as a float64. Numeric values pass
// through.
func NormalizeNumber(value any) (float64, error) {
	if f, ok := value.(float64); ok {
		return f, nil
	}

	d, err := ParseDecimal(value)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

func parseNumberString(s string) (decimal.Decimal, error) {
	cleaned := numberReplacer.Replace(strings.TrimSpace(s))

	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}

	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}
