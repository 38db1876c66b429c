package api

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/coderdj/frkb-engine/internal/errors"
)

// SelectionManifest records which trained-model artifact a library root is
// currently pointing at, per spec 4.N.
type SelectionManifest struct {
	SchemaVersion    int    `json:"schemaVersion"`
	ModelRevision    int64  `json:"modelRevision"`
	GBDTModelVersion string `json:"gbdtModelVersion"`
	GBDTModelFile    string `json:"gbdtModelFile"`
	OpenL3ModelVersion *string `json:"openl3ModelVersion,omitempty"`
	UpdatedAt        string `json:"updatedAt"`
}

// ReadManifest loads path's manifest.json. A missing file is not an error:
// it returns (nil, nil), matching selection/manifest.rs::read_manifest.
func ReadManifest(path string) (*SelectionManifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.New(err).Component("selection_manifest").Category(errors.CategoryInternal).Build()
	}
	var m SelectionManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.New(err).Component("selection_manifest").Category(errors.CategoryInternal).Build()
	}
	return &m, nil
}

// WriteManifest creates path's parent directory if needed and writes a
// pretty-printed camelCase JSON manifest.
func WriteManifest(path string, m *SelectionManifest) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(err).Component("selection_manifest").Category(errors.CategoryInternal).Build()
		}
	}
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.New(err).Component("selection_manifest").Category(errors.CategoryInternal).Build()
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errors.New(err).Component("selection_manifest").Category(errors.CategoryInternal).Build()
	}
	return nil
}
