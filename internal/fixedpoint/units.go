package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var ErrInvalidNumber = errors.New("invalid number")

// ParseUnits converts a decimal string such as "12.5" into integer units at
// the given precision. Negative values, exponents and excess fractional
// digits are rejected.
func ParseUnits(input string, decimals uint8) (*big.Int, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidNumber)
	}
	if strings.HasPrefix(text, "+") {
		text = text[1:]
	}
	if strings.HasPrefix(text, "-") {
		return nil, fmt.Errorf("%w: negative value %q", ErrInvalidNumber, input)
	}

	whole, frac, hasDot := strings.Cut(text, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNumber, input)
	}
	if !isDigits(whole) || (hasDot && !isDigits(frac)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNumber, input)
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("%w: %q has more than %d fractional digits", ErrInvalidNumber, input, decimals)
	}

	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	value, ok := new(big.Int).SetString(strings.TrimLeft(digits, "0"), 10)
	if !ok {
		if strings.Trim(digits, "0") == "" {
			return new(big.Int), nil
		}
		return nil, fmt.Errorf("%w: %q", ErrInvalidNumber, input)
	}
	return value, nil
}

// FormatUnits renders integer units as a decimal string.
func FormatUnits(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	rat := new(big.Rat).SetFrac(abs, Pow10(decimals))
	text := rat.FloatString(int(decimals))
	if sign < 0 {
		return "-" + text
	}
	return text
}

func isDigits(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
