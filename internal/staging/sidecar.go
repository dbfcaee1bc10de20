package staging

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Veraticus/autofiler/internal/model"
)

// HashFile returns the SHA-256 hex digest of a file's bytes.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for hashing: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteSidecar writes the sidecar JSON next to the staged file, named
// after the staging stem carried in StagingFilename. Returns the sidecar
// path.
func WriteSidecar(sidecar *model.Sidecar, stagingDir string) (string, error) {
	if err := os.MkdirAll(stagingDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	dest := filepath.Join(stagingDir, sidecar.StagingFilename+".json")

	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode sidecar: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(dest, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write sidecar: %w", err)
	}
	return dest, nil
}
