// Package guard runs pre-flight checks that reject unprocessable files
// before classification ever sees them.
package guard

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Veraticus/autofiler/internal/common"
)

// pdfEncryptProbe is how many leading bytes are sniffed for the PDF
// encryption marker.
const pdfEncryptProbe = 4096

var incompleteSuffixes = []string{".tmp", ".crdownload", ".partial"}

// Check runs every guard against the file. A nil return means the file is
// processable; otherwise the error is a *common.GuardError naming the
// specific rejection reason.
func Check(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return common.NewGuardError(path, common.ReasonFileNotFound)
	}
	if !info.Mode().IsRegular() {
		return common.NewGuardError(path, common.ReasonNotAFile)
	}
	if info.Size() == 0 {
		return common.NewGuardError(path, common.ReasonZeroByteFile)
	}

	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
		return common.NewGuardError(path, common.ReasonTempOrHiddenFile)
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, s := range incompleteSuffixes {
		if ext == s {
			return common.NewGuardError(path, common.ReasonIncompleteDownload)
		}
	}

	// A file we cannot lock is still being written by someone else.
	f, err := os.Open(path)
	if err != nil {
		return common.NewGuardError(path, common.ReasonFileLocked)
	}
	defer func() { _ = f.Close() }()
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		return common.NewGuardError(path, common.ReasonFileLocked)
	}
	defer func() { _ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN) }()

	if ext == ".pdf" {
		head := make([]byte, pdfEncryptProbe)
		n, _ := f.Read(head)
		if bytes.Contains(head[:n], []byte("/Encrypt")) {
			return common.NewGuardError(path, common.ReasonPasswordProtectedPDF)
		}
	}

	return nil
}
