// Package subscriber manages who gets reminded about which events.
package subscriber

import (
	"errors"
	"regexp"
	"strings"
)

// MaxPhoneLength bounds the raw phone input, matching the column width.
const MaxPhoneLength = 20

var (
	ErrInvalidPhone = errors.New("invalid phone number, use the international format (e.g. +5511999999999)")
	ErrPhoneTooLong = errors.New("phone number is too long")
)

var e164 = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

var phoneNoise = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// NormalizePhone converts user input into E.164 form. A "whatsapp:" prefix
// and common punctuation are stripped and a missing "+" is added.
func NormalizePhone(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if len(s) > MaxPhoneLength+len("whatsapp:") {
		return "", ErrPhoneTooLong
	}

	s = strings.TrimPrefix(s, "whatsapp:")
	s = phoneNoise.Replace(s)
	if len(s) > MaxPhoneLength {
		return "", ErrPhoneTooLong
	}
	if !strings.HasPrefix(s, "+") {
		s = "+" + s
	}

	if !e164.MatchString(s) {
		return "", ErrInvalidPhone
	}
	return s, nil
}
