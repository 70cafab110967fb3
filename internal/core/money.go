// Package core provides amount formatting and parsing utilities.
//
// Ledger amounts are integer milliunits (1/1000 of the currency unit). This
// file renders them for display in the currency's precision and parses
// user-supplied decimal strings back into milliunits.
package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatAmount renders a milliunit amount with the given number of decimal digits.
//
// Division is floor division, so negative amounts round towards negative
// infinity before formatting. Any precision other than 0, 1 or 2 falls back to
// three decimal places.
//
// Examples:
//   FormatAmount(123456, 2) -> "123.45"
//   FormatAmount(123456, 0) -> "123"
//   FormatAmount(-1005, 2)  -> "-1.01"
func FormatAmount(milliunits int64, decimalDigits int) string {
	switch decimalDigits {
	case 0:
		return strconv.FormatInt(floorDiv(milliunits, 1000), 10)
	case 1:
		return strconv.FormatFloat(float64(floorDiv(milliunits, 100))/10, 'f', 1, 64)
	case 2:
		return strconv.FormatFloat(float64(floorDiv(milliunits, 10))/100, 'f', 2, 64)
	default:
		return strconv.FormatFloat(float64(milliunits)/1000, 'f', 3, 64)
	}
}

// FormatOptionalAmount is FormatAmount for nullable ledger fields.
func FormatOptionalAmount(milliunits *int64, decimalDigits int) *string {
	if milliunits == nil {
		return nil
	}
	s := FormatAmount(*milliunits, decimalDigits)
	return &s
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ParseAmountToMilliunits converts a decimal string to milliunits.
//
// Both dot and comma decimal separators are accepted and the sign is kept.
// Digits beyond the third decimal place are truncated towards zero.
//
// Examples:
//   ParseAmountToMilliunits("12.34")   -> 12340, nil
//   ParseAmountToMilliunits("-7,5")    -> -7500, nil
//   ParseAmountToMilliunits("0.0019")  -> 1, nil
func ParseAmountToMilliunits(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	m := d.Shift(3).Truncate(0)
	if !m.BigInt().IsInt64() {
		return 0, ErrInvalidAmount
	}
	return m.IntPart(), nil
}
