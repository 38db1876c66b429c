package api

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadManifestMissingFileReturnsNilNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selection", "manifest.json")
	m, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestWriteManifestThenReadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selection", "manifest.json")
	v := "openl3_v1"
	written := &SelectionManifest{
		SchemaVersion:      1,
		ModelRevision:      3,
		GBDTModelVersion:   "selection_gbdt_v1",
		GBDTModelFile:      "selection_gbdt_v1.bin",
		OpenL3ModelVersion: &v,
		UpdatedAt:          "1234567890",
	}
	require.NoError(t, WriteManifest(path, written))

	got, err := ReadManifest(path)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, written.ModelRevision, got.ModelRevision)
	assert.Equal(t, written.GBDTModelVersion, got.GBDTModelVersion)
	assert.Equal(t, written.GBDTModelFile, got.GBDTModelFile)
	require.NotNil(t, got.OpenL3ModelVersion)
	assert.Equal(t, v, *got.OpenL3ModelVersion)
	assert.Equal(t, written.UpdatedAt, got.UpdatedAt)
}

func TestWriteManifestCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "manifest.json")
	require.NoError(t, WriteManifest(path, &SelectionManifest{SchemaVersion: 1, ModelRevision: 1}))
	_, err := ReadManifest(path)
	require.NoError(t, err)
}
