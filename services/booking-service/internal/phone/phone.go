// Package phone validates patient mobile numbers and normalizes them to E.164.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var ErrNotMobile = errors.New("phone number is not a valid mobile number")

// NormalizeMobile parses raw for the default region (ISO 3166 code such as
// "DE") and returns the E.164 form. Fixed line numbers are rejected.
func NormalizeMobile(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNotMobile
	}
	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", ErrNotMobile
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrNotMobile
	}
	switch phonenumbers.GetNumberType(num) {
	case phonenumbers.MOBILE, phonenumbers.FIXED_LINE_OR_MOBILE:
	default:
		return "", ErrNotMobile
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
