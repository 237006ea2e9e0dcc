package util

import (
	"errors"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
	phoneiso3166 "github.com/onlinecity/go-phone-iso3166"
)

const MinPhoneSymbolCount = 5

var (
	ErrPhoneTooShort          = errors.New("phone is too short - must be at least 5 symbols")
	ErrCannotDetermineCountry = errors.New("cannot determine phone country code")
	ErrCannotParsePhone       = errors.New("cannot parse phone number")

	nonDigits = regexp.MustCompile(`\D+`)
)

// NormalizePhone formats a submitted phone value to E.164. Third-party
// forms deliver phones in every imaginable shape; numbers without an
// international prefix are resolved through the E164 country lookup.
func NormalizePhone(phone string) (string, error) {
	hasPlus := strings.HasPrefix(strings.TrimSpace(phone), "+")
	trimmed := nonDigits.ReplaceAllString(phone, "")
	if len(trimmed) < MinPhoneSymbolCount {
		return "", ErrPhoneTooShort
	}

	region := ""
	if !hasPlus {
		region = phoneiso3166.E164.LookupString(trimmed)
		if region == "" {
			return "", ErrCannotDetermineCountry
		}
	}

	number := trimmed
	if hasPlus {
		number = "+" + trimmed
	}

	parsed, err := phonenumbers.Parse(number, region)
	if err != nil {
		return "", ErrCannotParsePhone
	}

	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
