package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// CategoryID is a value object representing a unique category identifier
// Value objects are immutable and have no identity beyond their value
type CategoryID struct {
	value string
}

// NewCategoryID creates a new random CategoryID
func NewCategoryID() CategoryID {
	return CategoryID{value: uuid.New().String()}
}

// NewCategoryIDFromString creates a CategoryID from an existing string
func NewCategoryIDFromString(id string) (CategoryID, error) {
	if id == "" {
		return CategoryID{}, errors.New("category ID cannot be empty")
	}
	if !isValidUUID(id) {
		return CategoryID{}, errors.New("category ID must be a valid UUID")
	}
	return CategoryID{value: id}, nil
}

// String returns the string representation of the CategoryID
func (id CategoryID) String() string {
	return id.value
}

// Equals checks if two CategoryIDs are equal
func (id CategoryID) Equals(other CategoryID) bool {
	return id.value == other.value
}

// Less reports whether id orders before other lexicographically.
// Canonical similarity pairs and deterministic scan orders rely on it.
func (id CategoryID) Less(other CategoryID) bool {
	return id.value < other.value
}

// IsZero checks if the CategoryID is the zero value
func (id CategoryID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id CategoryID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *CategoryID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("CategoryID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}

// isValidUUID validates if a string is a valid UUID
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
