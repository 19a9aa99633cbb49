package service

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// newID returns a time-sortable record id
func newID() string {
	return ulid.Make().String()
}

// newSessionToken returns an opaque bearer token
func newSessionToken() string {
	return uuid.NewString()
}
