// Package factory instantiates storage backends from saved mount configs.
package factory

import (
	"context"

	"github.com/GriffinCanCode/fedfs/internal/storage"
	"github.com/GriffinCanCode/fedfs/internal/storage/local"
	"github.com/GriffinCanCode/fedfs/internal/storage/memory"
	s3backend "github.com/GriffinCanCode/fedfs/internal/storage/s3"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// Opener creates a live backend for a saved mount
type Opener func(ctx context.Context, mount types.SavedMount) (storage.Backend, error)

// Open parses the mount's backend config and connects the backend.
// Config errors are validation errors; connection failures are backend errors.
func Open(ctx context.Context, mount types.SavedMount) (storage.Backend, error) {
	cfg, err := storage.ParseConfig(mount.BackendType, mount.BackendConfig)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg)
}

// New connects a backend from a typed config.
func New(ctx context.Context, cfg storage.Config) (storage.Backend, error) {
	switch c := cfg.(type) {
	case storage.MemoryConfig:
		return memory.New(c), nil
	case storage.LocalConfig:
		b, err := local.New(c)
		if err != nil {
			return nil, types.Wrap(types.KindBackend, "open", c.RootPath, err)
		}
		return b, nil
	case storage.S3Config:
		b, err := s3backend.New(ctx, c)
		if err != nil {
			return nil, types.Wrap(types.KindBackend, "open", c.Bucket, err)
		}
		if err := b.Ping(ctx); err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, types.Errorf(types.KindValidation, "open", "", "unknown backend type %q", cfg.BackendType())
}
