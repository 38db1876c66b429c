package paths

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFeatureStorePathAppendsDefaultFileName(t *testing.T) {
	assert.Equal(t, "lib/features.db", NormalizeFeatureStorePath("lib"))
	assert.Equal(t, "lib/custom.db", NormalizeFeatureStorePath("lib/custom.db"))
	assert.Equal(t, "", NormalizeFeatureStorePath("  "))
}

func TestLibraryRootFromFeatureStorePath(t *testing.T) {
	assert.Equal(t, "lib", LibraryRootFromFeatureStorePath("lib/features.db"))
	assert.Equal(t, "lib", LibraryRootFromFeatureStorePath("lib"))
}

func TestSelectionGbdtModelPathUsesV1Filename(t *testing.T) {
	assert.Contains(t, SelectionGbdtModelPath("lib"), "selection_gbdt_v1.bin")
}
