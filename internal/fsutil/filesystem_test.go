package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFileSystem_WriteOpen(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/data/calib/000000.txt", []byte("P2: 1"), 0644))

	f, err := mfs.Open("/data/calib/../calib/000000.txt")
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "P2: 1", string(data))

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, "000000.txt", info.Name())
	assert.Equal(t, int64(5), info.Size())

	assert.True(t, mfs.IsDir("/data/calib"))
	assert.True(t, mfs.IsDir("/data"))
}

func TestMemoryFileSystem_OpenMissing(t *testing.T) {
	_, err := NewMemoryFileSystem().Open("/nope")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestMemoryFileSystem_CreatePublishesOnClose(t *testing.T) {
	mfs := NewMemoryFileSystem()
	w, err := mfs.Create("/out/000000.bin")
	require.NoError(t, err)

	_, err = w.Write([]byte{1, 2})
	require.NoError(t, err)
	_, err = w.Write([]byte{3})
	require.NoError(t, err)

	data, err := mfs.ReadFile("/out/000000.bin")
	require.NoError(t, err)
	assert.Empty(t, data, "nothing visible before Close")

	require.NoError(t, w.Close())
	data, err = mfs.ReadFile("/out/000000.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
}

func TestMemoryFileSystem_ReadDir(t *testing.T) {
	mfs := NewMemoryFileSystem()
	for _, name := range []string{"/d/b.npy", "/d/a.png", "/d/sub/c.png", "/e/x"} {
		require.NoError(t, mfs.WriteFile(name, nil, 0644))
	}

	names, err := mfs.ReadDir("/d")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.npy"}, names)

	require.NoError(t, mfs.MkdirAll("/empty/dir", 0755))
	names, err = mfs.ReadDir("/empty/dir")
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = mfs.ReadDir("/missing")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestMemoryFileSystem_FileDirConflicts(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.MkdirAll("/a/b", 0755))
	assert.Error(t, mfs.WriteFile("/a/b", []byte("x"), 0644))

	require.NoError(t, mfs.WriteFile("/f", nil, 0644))
	assert.Error(t, mfs.MkdirAll("/f", 0755))
	assert.False(t, mfs.IsDir("/f"))
}

func TestMemoryFileSystem_WriteFileCopiesInput(t *testing.T) {
	mfs := NewMemoryFileSystem()
	buf := []byte("abc")
	require.NoError(t, mfs.WriteFile("/x", buf, 0644))
	buf[0] = 'z'

	got, err := mfs.ReadFile("/x")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestOSFileSystem(t *testing.T) {
	var osfs OSFileSystem
	dir := filepath.Join(t.TempDir(), "frames")
	require.NoError(t, osfs.MkdirAll(dir, 0755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))
	require.NoError(t, osfs.WriteFile(filepath.Join(dir, "b.png"), []byte("b"), 0644))

	w, err := osfs.Create(filepath.Join(dir, "a.npy"))
	require.NoError(t, err)
	_, err = w.Write([]byte("a"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	names, err := osfs.ReadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.npy", "b.png"}, names)

	assert.True(t, osfs.IsDir(dir))
	assert.False(t, osfs.IsDir(filepath.Join(dir, "a.npy")))

	f, err := osfs.Open(filepath.Join(dir, "b.png"))
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "b", string(data))
}
