package uid

import "github.com/google/uuid"

// maxRequestIDLength bounds client-supplied request ids.
const maxRequestIDLength = 64

// RequestID returns a time-ordered id, so log lines sort by arrival.
func RequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// SellToken returns a random idempotency token for a sell form.
func SellToken() string {
	return uuid.NewString()
}

// ValidRequestID reports whether a client-supplied id is safe to log and
// echo back: 1 to 64 letters, digits, '-', '_' or '.'.
func ValidRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.':
		default:
			return false
		}
	}
	return true
}
