package pkg

import "github.com/google/uuid"

// GenerateNewSessionID - returns a random id for a hot-seat session.
func GenerateNewSessionID() string {
	return uuid.NewString()
}
