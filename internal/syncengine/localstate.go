package syncengine

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/openmined/syftbox/internal/manifest"
	"github.com/openmined/syftbox/internal/utils"
)

const localStateFile = manifest.ReservedPrefix + "/local-state.json"

// localState is the device-local persistent state that survives restarts
//: the manifest agreed upon at the end of the last successful
// cycle, and the ETag it was committed under. It lives inside the vault's
// reserved directory, which the vault adapter already excludes from
// scanning and uploads.
type localState struct {
	BaseManifest *manifest.SyncManifest `json:"baseManifest"`
	LastETag     *string                `json:"lastEtag"`
}

func localStatePath(vaultRoot string) string {
	return filepath.Join(vaultRoot, filepath.FromSlash(localStateFile))
}

// loadLocalState reads the persisted base manifest/etag, returning a zero
// value (nil base, nil etag) if none has been saved yet.
func loadLocalState(vaultRoot string) (*localState, error) {
	path := localStatePath(vaultRoot)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &localState{}, nil
		}
		return nil, err
	}

	var st localState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// saveLocalState persists the base manifest/etag, written only at the end
// of a successful cycle.
func saveLocalState(vaultRoot string, st *localState) error {
	path := localStatePath(vaultRoot)
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
