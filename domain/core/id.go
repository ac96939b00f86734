package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 so IDs sort by creation time
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	RunID  ID
	FileID ID
)

func (id RunID) String() string  { return ID(id).String() }
func (id FileID) String() string { return ID(id).String() }

// NewRunID identifies one batch run
func NewRunID() RunID { return RunID(NewID()) }

// NewFileID identifies one processed input file within a run
func NewFileID() FileID { return FileID(NewID()) }

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("run ID %q: %w", s, err)
	}
	return RunID(s), nil
}
