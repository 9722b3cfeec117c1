package store

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh document id.
func NewID() string {
	return uuid.NewString()
}

// Stamp fills an empty id and a zero creation time. Adapters call it on every
// create so ids and ordering behave the same across backends.
func Stamp(id *string, createdAt *time.Time, now time.Time) {
	if *id == "" {
		*id = NewID()
	}
	if createdAt.IsZero() {
		*createdAt = now.UTC()
	}
}
