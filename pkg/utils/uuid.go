package utils

import "github.com/google/uuid"

// GenerateUUID returns a new random (v4) UUID, used for async task IDs.
func GenerateUUID() string {
	return uuid.New().String()
}
