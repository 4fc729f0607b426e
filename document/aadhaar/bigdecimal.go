package aadhaar

import (
	"fmt"
	"math/big"
)

// DecimalToBytes reinterprets a base-10 digit string as an unsigned integer
// and returns its minimal big-endian byte representation. "0" yields an
// empty slice.
func DecimalToBytes(digits string) ([]byte, error) {
	if digits == "" {
		return nil, fmt.Errorf("empty digit string")
	}
	if !isAllDigits(digits) {
		return nil, fmt.Errorf("non-decimal character in digit string")
	}

	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("failed to parse digit string of length %d", len(digits))
	}
	return n.Bytes(), nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
