package scraper

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField is returned when a response lacks a field the caller requires.
	ErrMissingField = errors.New("missing field")
	// ErrEmptyResults is returned when the API answered 2xx without any result.
	ErrEmptyResults = errors.New("scraping api returned no results")
)

// StatusError is returned for non-2xx responses of the scraping API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("scraping api returned status %d: %s", e.StatusCode, e.Body)
}

// MissingField wraps ErrMissingField with the path of the absent field.
func MissingField(path string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, path)
}
