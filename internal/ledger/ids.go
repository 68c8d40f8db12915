package ledger

import "github.com/google/uuid"

// NewID returns a time-ordered identifier so ledger records sort by creation.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
