// Package paths resolves the on-disk layout of the selection subsystem's
// SQLite stores and trained-model artifacts from a handful of caller-
// supplied strings, per spec 4.L.
package paths

import (
	"path/filepath"
	"strings"
)

func isDBFile(p string) bool {
	name := strings.ToLower(filepath.Base(p))
	return strings.HasSuffix(name, ".db")
}

// NormalizeFeatureStorePath returns featureStorePath unchanged if it already
// names a .db file, else appends the default file name.
func NormalizeFeatureStorePath(featureStorePath string) string {
	return normalizeStorePath(featureStorePath, "features.db")
}

// NormalizeLabelStorePath returns labelStorePath unchanged if it already
// names a .db file, else appends the default file name.
func NormalizeLabelStorePath(labelStorePath string) string {
	return normalizeStorePath(labelStorePath, "selection_labels.db")
}

// NormalizePathIndexStorePath returns pathIndexStorePath unchanged if it
// already names a .db file, else appends the default file name.
func NormalizePathIndexStorePath(pathIndexStorePath string) string {
	return normalizeStorePath(pathIndexStorePath, "selection_path_index.db")
}

func normalizeStorePath(raw, defaultName string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	if isDBFile(raw) {
		return raw
	}
	return filepath.Join(raw, defaultName)
}

// LibraryRootFromFeatureStorePath derives the library root: the parent
// directory when featureStorePath names a .db file, else the path itself.
func LibraryRootFromFeatureStorePath(featureStorePath string) string {
	if isDBFile(featureStorePath) {
		return filepath.Dir(featureStorePath)
	}
	return featureStorePath
}

// SelectionModelDir is where trained model artifacts live under a library root.
func SelectionModelDir(libraryRoot string) string {
	return filepath.Join(libraryRoot, "models", "selection")
}

// SelectionManifestPath is the manifest.json path under a library root.
func SelectionManifestPath(libraryRoot string) string {
	return filepath.Join(SelectionModelDir(libraryRoot), "manifest.json")
}

// SelectionGbdtModelPath is the trained GBDT model's path under a library
// root. The original implementation's own path helper names this
// selection_gbdt_v2.bin, but every serialization/deserialization call site
// and the spec's own end-to-end scenario use selection_gbdt_v1.bin — v2 is
// treated as a stale constant and not reproduced here.
func SelectionGbdtModelPath(libraryRoot string) string {
	return filepath.Join(SelectionModelDir(libraryRoot), "selection_gbdt_v1.bin")
}
