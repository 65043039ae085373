package capture

import (
	"errors"

	"capturevision/internal/engine"
	"capturevision/internal/frame"
	"capturevision/internal/license"
	"capturevision/internal/template"
)

// Error categories reported at the CLI and MCP boundaries.
const (
	CategoryOK            = "ok"
	CategoryConfig        = "config"
	CategoryInvalidBuffer = "invalid_buffer"
	CategoryLicense       = "license"
	CategoryEngine        = "engine"
	CategoryNotFound      = "not_found"
	CategoryCancelled     = "cancelled"
	CategoryInternal      = "internal"
)

// Category classifies err. A nil error is CategoryOK; anything unrecognised
// is CategoryInternal.
func Category(err error) string {
	switch {
	case err == nil:
		return CategoryOK
	case errors.Is(err, ErrCancelled):
		return CategoryCancelled
	case errors.Is(err, license.ErrNotInitialized):
		return CategoryLicense
	case errors.Is(err, frame.ErrInvalidBuffer):
		return CategoryInvalidBuffer
	case errors.Is(err, template.ErrNotFound):
		return CategoryNotFound
	case errors.Is(err, template.ErrConfig):
		return CategoryConfig
	case errors.Is(err, engine.ErrEngine):
		return CategoryEngine
	}
	return CategoryInternal
}
