package domain

import "github.com/google/uuid"

// NewID generates a UUIDv7 string for application-owned entities. UUIDv7
// is time-ordered, so run IDs created later sort after earlier ones.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
