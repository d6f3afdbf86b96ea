// Package fixtures locates and loads the files under testdata/ for tests.
package fixtures

import (
	"os"
	"path/filepath"
	"testing"
)

// GetTestDataPath returns absolute path to testdata/
func GetTestDataPath() string {
	wd, _ := os.Getwd()
	for {
		testdataPath := filepath.Join(wd, "testdata")
		if _, err := os.Stat(testdataPath); err == nil {
			return testdataPath
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			panic("Could not find testdata directory")
		}
		wd = parent
	}
}

// Path returns the absolute path of a file under testdata/
func Path(elem ...string) string {
	return filepath.Join(append([]string{GetTestDataPath()}, elem...)...)
}

// LoadGeoJSON reads a fixture from testdata/geojson
func LoadGeoJSON(t *testing.T, filename string) []byte {
	t.Helper()
	data, err := os.ReadFile(Path("geojson", filename))
	if err != nil {
		t.Fatalf("Failed to read fixture %s: %v", filename, err)
	}
	return data
}
