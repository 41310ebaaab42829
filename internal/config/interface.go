package config

import (
	"context"
)

// Loader is the interface for a format-specific project loader.
type Loader interface {
	// Load reads every project file found under paths and merges them into
	// one model. Defaults are applied; validation is left to the caller.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
