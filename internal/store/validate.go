package store

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxBodyChars is the maximum message body length after trimming.
const MaxBodyChars = 4096

var phoneRegexp = regexp.MustCompile(`^[0-9]{6,15}$`)

// ValidatePhone checks that number is a plain digit string (E.164 without
// the plus sign, 6 to 15 digits).
func ValidatePhone(number string) error {
	if !phoneRegexp.MatchString(number) {
		return &ValidationError{Reason: fmt.Sprintf("invalid participant number %q", number)}
	}
	return nil
}

// normalizeBody trims the message text and enforces the length bounds.
func normalizeBody(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", &ValidationError{Reason: "message text is required"}
	}
	if utf8.RuneCountInString(trimmed) > MaxBodyChars {
		return "", &ValidationError{Reason: fmt.Sprintf("message text too long (max %d characters)", MaxBodyChars)}
	}
	return trimmed, nil
}
