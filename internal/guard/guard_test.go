package guard

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/autofiler/internal/common"
)

func guardReason(t *testing.T, err error) common.GuardReason {
	t.Helper()
	var guardErr *common.GuardError
	require.True(t, errors.As(err, &guardErr), "expected GuardError, got %v", err)
	return guardErr.Reason
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	t.Run("missing file", func(t *testing.T) {
		err := Check(filepath.Join(dir, "nope.txt"))
		assert.Equal(t, common.ReasonFileNotFound, guardReason(t, err))
	})

	t.Run("directory is not a file", func(t *testing.T) {
		err := Check(dir)
		assert.Equal(t, common.ReasonNotAFile, guardReason(t, err))
	})

	t.Run("zero byte file", func(t *testing.T) {
		err := Check(write("empty.txt", ""))
		assert.Equal(t, common.ReasonZeroByteFile, guardReason(t, err))
	})

	t.Run("hidden file", func(t *testing.T) {
		err := Check(write(".hidden.txt", "x"))
		assert.Equal(t, common.ReasonTempOrHiddenFile, guardReason(t, err))
	})

	t.Run("office lock file", func(t *testing.T) {
		err := Check(write("~$report.docx", "x"))
		assert.Equal(t, common.ReasonTempOrHiddenFile, guardReason(t, err))
	})

	t.Run("incomplete download suffixes", func(t *testing.T) {
		for _, name := range []string{"a.tmp", "b.crdownload", "c.partial"} {
			err := Check(write(name, "x"))
			assert.Equal(t, common.ReasonIncompleteDownload, guardReason(t, err), name)
		}
	})

	t.Run("password protected pdf", func(t *testing.T) {
		content := "%PDF-1.7\n1 0 obj\n<< /Encrypt 2 0 R >>\nendobj\n"
		err := Check(write("locked.pdf", content))
		assert.Equal(t, common.ReasonPasswordProtectedPDF, guardReason(t, err))
	})

	t.Run("plain pdf passes", func(t *testing.T) {
		content := "%PDF-1.7\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"
		assert.NoError(t, Check(write("plain.pdf", content)))
	})

	t.Run("ordinary file passes", func(t *testing.T) {
		assert.NoError(t, Check(write("fine.txt", "hello")))
	})
}
