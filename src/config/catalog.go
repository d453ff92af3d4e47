package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// defaultTFLiteVersion is the prebuilt tensorflow-lite bundle version
// used when the project carries no gradle version catalog.
const defaultTFLiteVersion = "2.8.1"

// catalogRelPath is where the android project keeps its gradle version
// catalog, relative to the framework source root.
const catalogRelPath = "api/android/gradle/libs.versions.toml"

// versionCatalog models the [versions] table of a gradle version
// catalog; everything else in the file is ignored.
type versionCatalog struct {
	Versions map[string]string `toml:"versions"`
}

// CatalogTFLiteVersion looks up the tensorflow-lite entry in the
// project's gradle version catalog. The second return is false when the
// catalog or the entry is absent, or the file does not parse.
func CatalogTFLiteVersion(sourceDir string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(sourceDir, catalogRelPath))
	if err != nil {
		return "", false
	}

	var cat versionCatalog
	if err := toml.Unmarshal(data, &cat); err != nil {
		return "", false
	}

	v, ok := cat.Versions["tensorflow-lite"]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
