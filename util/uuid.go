package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewSessionID generates a random identifier for one monitoring session
func NewSessionID() string {
	return uuid.New().String()
}

// ShortID returns the first block of a session identifier, used in log fields
func ShortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
