package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/fedfs/internal/types"
)

// MountsFile is the bootstrap list of saved mounts read at server start.
type MountsFile struct {
	Mounts []MountSpec `json:"mounts" yaml:"mounts" toml:"mounts"`
}

// MountSpec is one saved mount plus whether to activate it on start.
type MountSpec struct {
	MountPoint  string                 `json:"mount_point" yaml:"mount_point" toml:"mount_point"`
	BackendType string                 `json:"backend_type" yaml:"backend_type" toml:"backend_type"`
	Config      map[string]interface{} `json:"config" yaml:"config" toml:"config"`
	Priority    int                    `json:"priority" yaml:"priority" toml:"priority"`
	ReadOnly    bool                   `json:"readonly" yaml:"readonly" toml:"readonly"`
	Description string                 `json:"description" yaml:"description" toml:"description"`
	OwnerUserID string                 `json:"owner_user_id" yaml:"owner_user_id" toml:"owner_user_id"`
	TenantID    string                 `json:"tenant_id" yaml:"tenant_id" toml:"tenant_id"`
	Autoload    bool                   `json:"autoload" yaml:"autoload" toml:"autoload"`
}

// Saved converts the spec to a saved mount.
func (m MountSpec) Saved() types.SavedMount {
	return types.SavedMount{
		MountPoint:    m.MountPoint,
		BackendType:   m.BackendType,
		BackendConfig: m.Config,
		Priority:      m.Priority,
		ReadOnly:      m.ReadOnly,
		Description:   m.Description,
		OwnerUserID:   m.OwnerUserID,
		TenantID:      m.TenantID,
	}
}

// LoadMountsFile reads a mounts file, choosing the format by extension.
func LoadMountsFile(path string) (*MountsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mounts file: %w", err)
	}
	return ParseMounts(filepath.Ext(path), data)
}

// ParseMounts decodes a mounts document. ext is ".yaml", ".yml", ".toml" or ".json".
func ParseMounts(ext string, data []byte) (*MountsFile, error) {
	var file MountsFile
	var err error
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	case ".toml":
		err = toml.Unmarshal(data, &file)
	case ".json":
		err = sonic.ConfigStd.Unmarshal(data, &file)
	default:
		return nil, fmt.Errorf("unsupported mounts file format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse mounts file: %w", err)
	}

	seen := make(map[string]bool, len(file.Mounts))
	for i, m := range file.Mounts {
		if m.MountPoint == "" || m.BackendType == "" {
			return nil, fmt.Errorf("mount %d: mount_point and backend_type are required", i)
		}
		if seen[m.MountPoint] {
			return nil, fmt.Errorf("mount %d: duplicate mount point %s", i, m.MountPoint)
		}
		seen[m.MountPoint] = true
	}
	return &file, nil
}
