package api

import (
	"net/http"
	"regexp"
	"strconv"
	"unicode/utf8"
)

// maxNameLen is the maximum length for name fields (caller names, doctor names).
const maxNameLen = 200

// maxPhoneLen is the maximum length for phone number fields.
const maxPhoneLen = 40

// maxEmailLen is the maximum length for email addresses (RFC 5321).
const maxEmailLen = 254

// maxMessageLen is the maximum length for free-text message bodies.
const maxMessageLen = 5000

// emailRe is a basic email format regex. Not exhaustive; validates structure only.
var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// validateStringLen checks that a string does not exceed maxLen characters.
// Returns an error message if invalid, empty string if OK.
func validateStringLen(field, value string, maxLen int) string {
	if utf8.RuneCountInString(value) > maxLen {
		return field + " exceeds maximum length"
	}
	return ""
}

// validateRequiredStringLen checks that a non-empty string does not exceed maxLen.
func validateRequiredStringLen(field, value string, maxLen int) string {
	if value == "" {
		return field + " is required"
	}
	return validateStringLen(field, value, maxLen)
}

// validateEmail checks that a string is a valid-looking email address.
func validateEmail(field, value string) string {
	if value == "" {
		return ""
	}
	if len(value) > maxEmailLen {
		return field + " exceeds maximum length"
	}
	if !emailRe.MatchString(value) {
		return field + " is not a valid email address"
	}
	return ""
}

// validateRating checks a review rating is in the 1..5 range.
func validateRating(field string, value int) string {
	if value < 1 || value > 5 {
		return field + " must be between 1 and 5"
	}
	return ""
}

// containsControlChars checks whether a string has control characters
// (except common whitespace like \n, \r, \t).
func containsControlChars(s string) bool {
	for _, r := range s {
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			return true
		}
	}
	return false
}

// validateNoControlChars rejects strings with control characters.
func validateNoControlChars(field, value string) string {
	if containsControlChars(value) {
		return field + " contains invalid characters"
	}
	return ""
}

// pagination holds parsed limit/offset query parameters.
type pagination struct {
	Limit  int
	Offset int
}

// parsePagination reads limit/offset from the query string with defaults
// limit=20 (max 100) and offset=0.
func parsePagination(r *http.Request) (pagination, string) {
	pg := pagination{Limit: 20}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 100 {
			return pg, "limit must be an integer between 1 and 100"
		}
		pg.Limit = v
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return pg, "offset must be a non-negative integer"
		}
		pg.Offset = v
	}

	return pg, ""
}

// parseIDParam converts a chi URL parameter to an int64 ID.
func parseIDParam(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
