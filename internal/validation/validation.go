package validation

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrLocationEmpty is returned when location is empty or whitespace-only.
var ErrLocationEmpty = errors.New("location is required")

// ErrLocationTooLong is returned when location length exceeds the maximum.
var ErrLocationTooLong = errors.New("location too long")

// ErrUnitInvalid is returned for a unit other than imperial or metric.
var ErrUnitInvalid = errors.New("unit must be imperial or metric")

// ValidateLocation enforces that input is not blank and at most maxLen runes
// (maxLen <= 0 disables the bound). The input is returned unchanged: spaces are
// significant because the request URL carries them as %20. Characters are not
// filtered; the location is passed to the API as typed.
func ValidateLocation(input string, maxLen int) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", ErrLocationEmpty
	}
	if maxLen > 0 && utf8.RuneCountInString(input) > maxLen {
		return "", ErrLocationTooLong
	}
	return input, nil
}

// ValidateUnit normalizes unit to lower case and checks it is imperial or metric.
func ValidateUnit(unit string) (string, error) {
	u := strings.ToLower(strings.TrimSpace(unit))
	switch u {
	case "imperial", "metric":
		return u, nil
	}
	return "", ErrUnitInvalid
}
