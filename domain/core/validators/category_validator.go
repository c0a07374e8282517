package validators

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"catgraph/domain/core/valueobjects"
	"catgraph/pkg/errors"
)

// CategoryValidator validates category-related domain rules
type CategoryValidator struct {
	nameMinLength  int
	nameMaxLength  int
	descMaxLength  int
	forbiddenWords []string
}

// NewCategoryValidator creates a new category validator with default rules
func NewCategoryValidator() *CategoryValidator {
	return &CategoryValidator{
		nameMinLength:  1,
		nameMaxLength:  120,
		descMaxLength:  2000,
		forbiddenWords: []string{}, // Can be configured with inappropriate content filters
	}
}

// ValidateLabel validates the full category label
func (v *CategoryValidator) ValidateLabel(label valueobjects.CategoryLabel) error {
	validationErrors := errors.NewValidationErrors()

	if err := v.ValidateName(label.Name()); err != nil {
		if domainErr, ok := err.(*errors.DomainError); ok {
			validationErrors.AddError(domainErr)
		} else {
			validationErrors.Add("name", err.Error())
		}
	}

	if err := v.validateDescription(label.Description()); err != nil {
		if domainErr, ok := err.(*errors.DomainError); ok {
			validationErrors.AddError(domainErr)
		} else {
			validationErrors.Add("description", err.Error())
		}
	}

	if validationErrors.HasErrors() {
		return validationErrors
	}

	return nil
}

// ValidateName validates the category display name
func (v *CategoryValidator) ValidateName(name string) error {
	name = strings.TrimSpace(name)

	if utf8.RuneCountInString(name) < v.nameMinLength {
		return errors.ErrCategoryNameRequired
	}

	if utf8.RuneCountInString(name) > v.nameMaxLength {
		return errors.ErrCategoryNameTooLong.
			WithDetail("actual_length", utf8.RuneCountInString(name)).
			WithDetail("max_length", v.nameMaxLength)
	}

	if v.containsForbiddenWords(name) {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"INAPPROPRIATE_CONTENT",
			"Category name contains inappropriate content",
		).WithDetail("field", "name")
	}

	return nil
}

// validateDescription validates the optional category description
func (v *CategoryValidator) validateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > v.descMaxLength {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"DESCRIPTION_TOO_LONG",
			"Category description exceeds maximum length",
		).WithDetail("actual_length", utf8.RuneCountInString(desc)).
			WithDetail("max_length", v.descMaxLength)
	}

	if v.containsForbiddenWords(desc) {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"INAPPROPRIATE_CONTENT",
			"Category description contains inappropriate material",
		).WithDetail("field", "description")
	}

	return nil
}

// ValidateImageURL validates the optional category image location
func (v *CategoryValidator) ValidateImageURL(urlStr string) error {
	if urlStr == "" {
		return nil // Image is optional
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"INVALID_URL_FORMAT",
			"Invalid image URL format",
		).WithDetail("field", "image_url").WithCause(err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"INVALID_URL_SCHEME",
			"Image URL must use http or https scheme",
		).WithDetail("field", "image_url").WithDetail("scheme", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"INVALID_URL_HOST",
			"Image URL must have a valid host",
		).WithDetail("field", "image_url")
	}

	return nil
}

// containsForbiddenWords checks if text contains forbidden words
func (v *CategoryValidator) containsForbiddenWords(text string) bool {
	lowerText := strings.ToLower(text)
	for _, word := range v.forbiddenWords {
		if strings.Contains(lowerText, strings.ToLower(word)) {
			return true
		}
	}
	return false
}

// SimilarityValidator validates similarity-link domain rules
type SimilarityValidator struct{}

// NewSimilarityValidator creates a new similarity validator
func NewSimilarityValidator() *SimilarityValidator {
	return &SimilarityValidator{}
}

// ValidateLink validates a similarity link between two categories.
// Existence of both endpoints is checked by the caller against the
// snapshot; this covers the structural rules only.
func (v *SimilarityValidator) ValidateLink(a, b valueobjects.CategoryID) error {
	if a.IsZero() || b.IsZero() {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"SIMILARITY_ENDPOINTS_REQUIRED",
			"A similarity link requires two category IDs",
		)
	}

	if a.Equals(b) {
		return errors.ErrSelfSimilarity.WithDetail("category_id", a.String())
	}

	return nil
}
