package storage

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/fedfs/internal/types"
)

// Backend type identifiers
const (
	TypeMemory = "MemoryBackend"
	TypeLocal  = "LocalBackend"
	TypeS3     = "S3Backend"
)

// Config is the typed configuration of one backend type
type Config interface {
	BackendType() string
	Validate() error
}

// MemoryConfig configures an in-process backend. It takes no settings.
type MemoryConfig struct{}

// LocalConfig configures a directory on the server's filesystem
type LocalConfig struct {
	RootPath   string `json:"root_path"`
	CreateDirs bool   `json:"create_dirs"`
}

// S3Config configures an S3 bucket, optionally under a key prefix
type S3Config struct {
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix,omitempty"`
	Region    string `json:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	AccessKey string `json:"access_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty"`
}

func (MemoryConfig) BackendType() string { return TypeMemory }
func (LocalConfig) BackendType() string  { return TypeLocal }
func (S3Config) BackendType() string     { return TypeS3 }

func (MemoryConfig) Validate() error { return nil }

func (c LocalConfig) Validate() error {
	if c.RootPath == "" {
		return fmt.Errorf("root_path is required")
	}
	return nil
}

func (c S3Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return fmt.Errorf("access_key and secret_key must be set together")
	}
	if strings.HasPrefix(c.Prefix, "/") {
		return fmt.Errorf("prefix must not start with a separator")
	}
	return nil
}

var strict = sonic.Config{DisallowUnknownFields: true}.Froze()

// Types lists the supported backend types
func Types() []string {
	return []string{TypeMemory, TypeLocal, TypeS3}
}

// ParseConfig decodes and validates the opaque configuration map saved with a
// mount against the schema of backendType. Failures are validation errors.
func ParseConfig(backendType string, raw map[string]interface{}) (Config, error) {
	var cfg Config
	switch backendType {
	case TypeMemory:
		cfg = &MemoryConfig{}
	case TypeLocal:
		cfg = &LocalConfig{}
	case TypeS3:
		cfg = &S3Config{}
	default:
		return nil, types.Errorf(types.KindValidation, "parse_config", "", "unknown backend type %q", backendType)
	}

	if len(raw) > 0 {
		data, err := sonic.ConfigStd.Marshal(raw)
		if err != nil {
			return nil, types.Errorf(types.KindValidation, "parse_config", "", "invalid %s config: %v", backendType, err)
		}
		if err := strict.Unmarshal(data, cfg); err != nil {
			return nil, types.Errorf(types.KindValidation, "parse_config", "", "invalid %s config: %v", backendType, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, types.Errorf(types.KindValidation, "parse_config", "", "invalid %s config: %v", backendType, err)
	}

	switch c := cfg.(type) {
	case *MemoryConfig:
		return *c, nil
	case *LocalConfig:
		return *c, nil
	case *S3Config:
		return *c, nil
	}
	return cfg, nil
}
