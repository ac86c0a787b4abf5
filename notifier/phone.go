package notifier

import (
	"errors"
	"net/mail"
	"strings"
)

// ErrInvalidPhone is returned for numbers that are not Philippine mobiles.
var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone accepts the usual ways a Philippine mobile gets typed
// (09XXXXXXXXX, 9XXXXXXXXX, 639XXXXXXXXX, +639XXXXXXXXX, with spaces,
// dashes, dots or parentheses) and returns the local 09XXXXXXXXX form.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "", ErrInvalidPhone
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 11 && strings.HasPrefix(digits, "09"):
	case len(digits) == 10 && strings.HasPrefix(digits, "9"):
		digits = "0" + digits
	case len(digits) == 12 && strings.HasPrefix(digits, "639"):
		digits = "0" + digits[2:]
	default:
		return "", ErrInvalidPhone
	}
	return digits, nil
}

// ToE164 converts a local 09XXXXXXXXX number to +639XXXXXXXXX. Other input
// is normalized first.
func ToE164(phone string) (string, error) {
	local, err := NormalizePhone(phone)
	if err != nil {
		return "", err
	}
	return "+63" + local[1:], nil
}

// IsEmail reports whether destination is an email address rather than a
// phone number.
func IsEmail(destination string) bool {
	if !strings.Contains(destination, "@") {
		return false
	}
	addr, err := mail.ParseAddress(destination)
	return err == nil && addr.Address == strings.TrimSpace(destination)
}

// NormalizeDestination canonicalizes a phone number or email address.
func NormalizeDestination(destination string) (string, error) {
	destination = strings.TrimSpace(destination)
	if IsEmail(destination) {
		return strings.ToLower(destination), nil
	}
	return NormalizePhone(destination)
}
