package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestScanRoot(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "111", "alice-1.log"), "x")
	touch(t, filepath.Join(root, "111", "bob-2.log.gz"), "xy")
	touch(t, filepath.Join(root, "222", "notes.md"), "skip")
	touch(t, filepath.Join(root, "processed_logs", "111", "alice-1.json"), "{}")
	touch(t, filepath.Join(root, "processed_logs", "stray.log"), "skip")
	touch(t, filepath.Join(root, ".cache", "c-3.log"), "skip")

	files, err := ScanRoot(root, []string{".log", ".GZ"}, filepath.Join(root, "processed_logs"))
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, filepath.Join(root, "111", "alice-1.log"), files[0].Path)
	assert.Equal(t, "111/alice-1", files[0].Key)
	assert.Equal(t, int64(1), files[0].Size)

	assert.Equal(t, "111/bob-2", files[1].Key)
	assert.Equal(t, int64(2), files[1].Size)
	assert.NotZero(t, files[1].Mtime)
}

func TestScanRootAnyExtension(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a-1"), "x")
	touch(t, filepath.Join(root, "b-2.txt"), "x")

	files, err := ScanRoot(root, nil, "")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestScanRootMissing(t *testing.T) {
	files, err := ScanRoot(filepath.Join(t.TempDir(), "nope"), []string{".log"}, "")
	assert.NoError(t, err)
	assert.Empty(t, files)
}

func TestStat(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "111", "alice-1.log")
	touch(t, path, "abc")

	fi, err := Stat(root, path)
	require.NoError(t, err)
	assert.Equal(t, "111/alice-1", fi.Key)
	assert.Equal(t, int64(3), fi.Size)

	_, err = Stat(root, filepath.Join(root, "missing.log"))
	assert.Error(t, err)
}
