package table

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// VersionedFilename picks a non-existing output path of the form
// <dir>/<prefix>_<model>_<timestamp>_v<N>.csv, bumping N until the name is
// free. The directory is created if absent.
func VersionedFilename(dir, prefix, model string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	modelName := strings.NewReplacer("-", "_", "/", "_", " ", "_").Replace(model)
	timestamp := time.Now().Format("20060102_150405")

	for version := 1; ; version++ {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s_%s_v%d.csv", prefix, modelName, timestamp, version))
		_, err := os.Stat(path)
		if os.IsNotExist(err) {
			return path, nil
		}
		if err != nil {
			return "", err
		}
	}
}
