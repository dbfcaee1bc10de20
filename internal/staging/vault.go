package staging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// vaultPlaceholder is the single character between the type code and the
// original filename in vault names.
const vaultPlaceholder = "0"

// ArchiveToVault copies (never moves) the original file into the vault as
// {3-digit code}{placeholder}{original filename}. Existing vault files
// are never overwritten; collisions get a timestamp suffix. Returns the
// vault path.
func ArchiveToVault(path, code, vaultDir string) (string, error) {
	if err := os.MkdirAll(vaultDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create vault directory: %w", err)
	}

	name := filepath.Base(path)
	dest := filepath.Join(vaultDir, code+vaultPlaceholder+name)

	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(dest)
		stem := strings.TrimSuffix(filepath.Base(dest), ext)
		ts := time.Now().Format("20060102150405")
		dest = filepath.Join(vaultDir, fmt.Sprintf("%s_%s%s", stem, ts, ext))
	}

	if err := copyFile(path, dest); err != nil {
		return "", fmt.Errorf("failed to archive %s to vault: %w", path, err)
	}
	return dest, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
