package types

import (
	"time"

	"github.com/google/uuid"
)

// EvaluationID identifies one pay calculation run.
// String alias enables type safety while keeping JSON string serialization.
type EvaluationID string

// ClaimID identifies a submitted crew claim.
type ClaimID string

// NewEvaluationID generates a UUIDv7 evaluation identifier.
// Time-ordered IDs cluster in B-tree indexes when persisted downstream.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewEvaluationID() EvaluationID {
	return EvaluationID(uuid.Must(uuid.NewV7()).String())
}

// NewClaimID generates a UUIDv7 claim identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewClaimID() ClaimID {
	return ClaimID(uuid.Must(uuid.NewV7()).String())
}

// ParseEvaluationID validates and converts a string to EvaluationID.
func ParseEvaluationID(s string) (EvaluationID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return EvaluationID(s), nil
}

// ParseClaimID validates and converts a string to ClaimID.
func ParseClaimID(s string) (ClaimID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return ClaimID(s), nil
}

// EvaluationIDTime extracts the timestamp embedded in a UUIDv7 ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func EvaluationIDTime(id EvaluationID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
