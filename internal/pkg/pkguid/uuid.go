package pkguid

import "github.com/google/uuid"

// UUID generates time-ordered (version 7) UUID strings, used for session
// directories and correlation IDs.
type UUID struct{}

func NewUUID() *UUID {
	return &UUID{}
}

// Generate returns a new UUID string. It falls back to a random (version 4)
// UUID if the clock-based generator fails.
func (u *UUID) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
