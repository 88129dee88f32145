package featurekit

import (
	"fmt"

	"github.com/featurekit/featurekit-go/flagengine/toggles"
)

// Load errors, returned unwrapped by [Engine.Load].
type (
	ParseError              = toggles.ParseError
	SchemaError             = toggles.SchemaError
	UnsupportedVersionError = toggles.UnsupportedVersionError
	ConfigurationError      = toggles.ConfigurationError
)

// ToggleNotFoundError is returned by [Engine.Evaluate] for a name the active document lacks.
type ToggleNotFoundError struct {
	Name string
}

func (e *ToggleNotFoundError) Error() string {
	return fmt.Sprintf("toggle %q not found", e.Name)
}

// FetchError reports a failed document or metrics transfer.
type FetchError struct {
	URL                string
	ResponseStatusCode int
	ResponseStatus     string
	Err                error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("request to %s failed: %s", e.URL, e.ResponseStatus)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
