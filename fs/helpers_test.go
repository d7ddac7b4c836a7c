package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func textOf(t *testing.T, r FsEncoding) string {
	t.Helper()
	s, ok := r.Text()
	require.True(t, ok, "expected a text result")
	return s
}
