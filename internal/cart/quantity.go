package cart

import (
	"math"
	"strconv"
	"strings"
)

// QuantityFromFloat converts a decoded JSON number into a quantity. Only
// finite whole numbers above zero are accepted.
func QuantityFromFloat(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f <= 0 || f > math.MaxInt32 {
		return 0, ErrInvalidQuantity
	}
	return int(f), nil
}

// ParseQuantity parses user-typed text into a quantity. Only plain decimal
// integers are accepted; "2.0" and "1e2" are rejected.
func ParseQuantity(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 || n > math.MaxInt32 {
		return 0, ErrInvalidQuantity
	}
	return n, nil
}
