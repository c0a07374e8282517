package valueobjects

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"catgraph/domain/config"
	pkgerrors "catgraph/pkg/errors"
)

// CategoryLabel is a value object for the human-readable identity of a
// category: a required display name and an optional description.
type CategoryLabel struct {
	name        string
	description string
}

// NewCategoryLabel creates a label with validation using default configuration
func NewCategoryLabel(name, description string) (CategoryLabel, error) {
	return NewCategoryLabelWithConfig(name, description, config.DefaultDomainConfig())
}

// NewCategoryLabelWithConfig creates a label with validation and configuration
func NewCategoryLabelWithConfig(name, description string, cfg *config.DomainConfig) (CategoryLabel, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)

	if name == "" {
		return CategoryLabel{}, pkgerrors.NewValidationError("category name cannot be empty")
	}

	nameLength := utf8.RuneCountInString(name)
	if nameLength < cfg.MinNameLength {
		return CategoryLabel{}, fmt.Errorf("category name too short: minimum %d characters required", cfg.MinNameLength)
	}

	if nameLength > cfg.MaxNameLength {
		return CategoryLabel{}, fmt.Errorf("category name exceeds maximum length of %d characters", cfg.MaxNameLength)
	}

	if utf8.RuneCountInString(description) > cfg.MaxDescriptionLength {
		return CategoryLabel{}, fmt.Errorf("description exceeds maximum length of %d characters", cfg.MaxDescriptionLength)
	}

	return CategoryLabel{
		name:        name,
		description: description,
	}, nil
}

// Name returns the category display name
func (l CategoryLabel) Name() string {
	return l.name
}

// Description returns the optional category description
func (l CategoryLabel) Description() string {
	return l.description
}

// IsZero checks if the label is the zero value
func (l CategoryLabel) IsZero() bool {
	return l.name == "" && l.description == ""
}

// Equals checks if two labels are equal
func (l CategoryLabel) Equals(other CategoryLabel) bool {
	return l.name == other.name && l.description == other.description
}

// Summary returns a truncated one-line rendering of the label
func (l CategoryLabel) Summary(maxLength int) string {
	if maxLength <= 0 {
		return ""
	}

	combined := l.name
	if l.description != "" {
		combined += ": " + l.description
	}

	if utf8.RuneCountInString(combined) <= maxLength {
		return combined
	}

	runes := []rune(combined)
	return string(runes[:maxLength-3]) + "..."
}
