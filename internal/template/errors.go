package template

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is the category every *ConfigError unwraps to.
	ErrConfig = errors.New("template: invalid configuration")

	// ErrNotFound is returned when a pipeline name is not in the active registry.
	ErrNotFound = errors.New("template: pipeline not found")
)

// ErrorKind discriminates configuration failures.
type ErrorKind int

const (
	Malformed ErrorKind = iota
	DuplicateName
	UnresolvedReference
	InvalidStage
	InvalidValue
)

func (k ErrorKind) String() string {
	switch k {
	case Malformed:
		return "malformed document"
	case DuplicateName:
		return "duplicate name"
	case UnresolvedReference:
		return "unresolved reference"
	case InvalidStage:
		return "invalid stage"
	case InvalidValue:
		return "invalid value"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ConfigError reports why a template document was rejected.
type ConfigError struct {
	Kind   ErrorKind
	Detail string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" {
		return "template: " + e.Kind.String()
	}
	return fmt.Sprintf("template: %s: %s", e.Kind, e.Detail)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

func configErrorf(kind ErrorKind, format string, args ...any) error {
	return &ConfigError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf returns the ConfigError kind carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return 0, false
}
