package toggles

import "fmt"

// ParseError reports a document that is not well-formed JSON or has the wrong shape.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "parse toggle document: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SchemaError reports a document missing a mandatory field or using an unknown tag.
type SchemaError struct {
	Path string
	Msg  string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "invalid toggle document: " + e.Msg
	}
	return fmt.Sprintf("invalid toggle document at %s: %s", e.Path, e.Msg)
}

// UnsupportedVersionError reports a document whose major version this engine cannot read.
type UnsupportedVersionError struct {
	Version int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported toggle document version %d (supported %d-%d)",
		e.Version, MinSupportedVersion, MaxSupportedVersion)
}

// ConfigurationError describes a problem that disables one toggle without failing the load:
// a dangling segment reference, a dependency cycle or a missing dependency.
type ConfigurationError struct {
	Toggle string
	Msg    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("toggle %q: %s", e.Toggle, e.Msg)
}
