package namespace

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fedfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fedfs/internal/rpc"
	"github.com/GriffinCanCode/fedfs/internal/shared/paths"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// MountStore manages saved mount configurations on the server
type MountStore struct {
	caller rpc.Caller
	log    *logging.Logger
}

// NewMountStore creates a mount store over caller
func NewMountStore(caller rpc.Caller, log *logging.Logger) *MountStore {
	return &MountStore{caller: caller, log: log}
}

// ListSaved returns every saved configuration, active or not.
func (s *MountStore) ListSaved(ctx context.Context) ([]types.SavedMount, error) {
	return s.listSaved(ctx, methodListSavedMounts)
}

func (s *MountStore) listSaved(ctx context.Context, method string) ([]types.SavedMount, error) {
	var saved []types.SavedMount
	if err := s.caller.Call(ctx, method, nil, &saved); err != nil {
		return nil, err
	}
	for i := range saved {
		saved[i].MountPoint = paths.Normalize(saved[i].MountPoint)
	}
	return saved, nil
}

// Load activates the saved mount at mountPoint and returns its activation
// token. Loading an active mount returns the existing token.
func (s *MountStore) Load(ctx context.Context, mountPoint string) (string, error) {
	mp, err := requireNonRoot(methodLoadMount, mountPoint)
	if err != nil {
		return "", err
	}
	var raw json.RawMessage
	if err := s.caller.Call(ctx, methodLoadMount, rpc.Params{"mount_point": mp}, &raw); err != nil {
		return "", withPath(err, mp)
	}
	token, err := decodeActivation(raw)
	if err != nil {
		return "", types.Wrap(types.KindBackend, methodLoadMount, mp, err)
	}
	s.log.Debug("mount loaded", zap.String("mount_point", mp), zap.String("activation", token))
	return token, nil
}

// decodeActivation accepts a bare token or {"activation_id": ...}.
func decodeActivation(raw json.RawMessage) (string, error) {
	if strings.HasPrefix(strings.TrimSpace(string(raw)), "\"") {
		var token string
		err := rpc.Unmarshal(raw, &token)
		return token, err
	}
	var obj struct {
		ActivationID string `json:"activation_id"`
		ID           string `json:"id"`
	}
	if err := rpc.Unmarshal(raw, &obj); err != nil {
		return "", err
	}
	if obj.ActivationID != "" {
		return obj.ActivationID, nil
	}
	return obj.ID, nil
}

// Delete removes the saved configuration at mountPoint. It reports false, not
// an error, when nothing was saved there. A live mount stays active.
func (s *MountStore) Delete(ctx context.Context, mountPoint string) (bool, error) {
	mp, err := requireNonRoot(methodDeleteSavedMount, mountPoint)
	if err != nil {
		return false, err
	}
	var deleted bool
	if err := s.caller.Call(ctx, methodDeleteSavedMount, rpc.Params{"mount_point": mp}, &deleted); err != nil {
		return false, withPath(err, mp)
	}
	return deleted, nil
}

// Save creates or replaces a saved configuration. The server validates the
// backend config against the backend type.
func (s *MountStore) Save(ctx context.Context, mount types.SavedMount) (types.SavedMount, error) {
	mp, err := requireNonRoot(methodSaveMount, mount.MountPoint)
	if err != nil {
		return types.SavedMount{}, err
	}
	if mount.BackendType == "" {
		return types.SavedMount{}, types.NewError(types.KindValidation, methodSaveMount, mp, "backend type is required")
	}
	mount.MountPoint = mp

	var saved types.SavedMount
	if err := s.caller.Call(ctx, methodSaveMount, rpc.Params{"mount": mount}, &saved); err != nil {
		return types.SavedMount{}, withPath(err, mp)
	}
	return saved, nil
}

// Unload deactivates a live mount. The saved configuration and the mount
// directory are untouched.
func (s *MountStore) Unload(ctx context.Context, mountPoint string) error {
	mp, err := requireNonRoot(methodRemoveMount, mountPoint)
	if err != nil {
		return err
	}
	if err := s.caller.Call(ctx, methodRemoveMount, rpc.Params{"mount_point": mp}, nil); err != nil {
		return withPath(err, mp)
	}
	return nil
}
