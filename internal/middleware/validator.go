package middleware

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	ownerPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)
	uuidPattern  = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)
)

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// ValidateOwnerID validates owner ID format
func ValidateOwnerID(owner string) error {
	if owner == "" {
		return fmt.Errorf("owner ID cannot be empty")
	}
	if !ownerPattern.MatchString(owner) {
		return fmt.Errorf("invalid owner ID format (alphanumeric, dash, underscore only, max 128 chars)")
	}
	return nil
}

// ValidateID validates record, sample and session ids (uuid)
func ValidateID(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%s ID cannot be empty", kind)
	}
	if !uuidPattern.MatchString(id) {
		return fmt.Errorf("invalid %s ID format", kind)
	}
	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidateDays validates days parameter
func ValidateDays(days int) int {
	if days <= 0 {
		return 30 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}
