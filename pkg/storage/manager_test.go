package storage

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) (*Manager, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	m, err := NewManager(fs, "/work/temp", nil)
	require.NoError(t, err)
	return m, fs
}

func TestWriteAtomic(t *testing.T) {
	m, fs := newManager(t)
	path := filepath.Join(m.Dir(), "foo_post.jpg")

	n, err := m.WriteAtomic(path, bytes.NewReader([]byte("image data")))
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	content, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "image data", string(content))

	exists, err := m.Exists(path)
	require.NoError(t, err)
	assert.True(t, exists)

	entries, err := afero.ReadDir(fs, m.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary file left behind")
}

type failingReader struct{ after int }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.after <= 0 {
		return 0, errors.New("connection reset")
	}
	n := copy(p, bytes.Repeat([]byte("x"), r.after))
	r.after -= n
	return n, nil
}

// syncFailFs hands out files whose Sync always fails
type syncFailFs struct{ afero.Fs }

type syncFailFile struct{ afero.File }

func (f syncFailFile) Sync() error { return errors.New("disk full") }

func (fs syncFailFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	f, err := fs.Fs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return syncFailFile{f}, nil
}

func TestWriteAtomicSyncFailure(t *testing.T) {
	fs := syncFailFs{afero.NewMemMapFs()}
	m, err := NewManager(fs, "/work/temp", nil)
	require.NoError(t, err)
	path := filepath.Join(m.Dir(), "foo_post.jpg")

	_, err = m.WriteAtomic(path, bytes.NewReader([]byte("image data")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to sync file")

	exists, _ := afero.Exists(fs, path)
	assert.False(t, exists)
	entries, err := afero.ReadDir(fs, m.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteAtomicFailureLeavesNothing(t *testing.T) {
	m, fs := newManager(t)
	path := filepath.Join(m.Dir(), "foo_post.jpg")

	_, err := m.WriteAtomic(path, &failingReader{after: 4})
	require.Error(t, err)

	exists, err := m.Exists(path)
	require.NoError(t, err)
	assert.False(t, exists)

	entries, err := afero.ReadDir(fs, m.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteAtomicCreatesDirectory(t *testing.T) {
	m, fs := newManager(t)
	path := "/work/other/nested/a.gif"

	_, err := m.WriteAtomic(path, io.LimitReader(bytes.NewReader(make([]byte, 64)), 64))
	require.NoError(t, err)

	info, err := fs.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(64), info.Size())
}

func TestRemove(t *testing.T) {
	m, _ := newManager(t)
	path := filepath.Join(m.Dir(), "a.jpg")
	_, err := m.WriteAtomic(path, bytes.NewReader([]byte("a")))
	require.NoError(t, err)

	require.NoError(t, m.Remove(path))
	exists, _ := m.Exists(path)
	assert.False(t, exists)

	assert.NoError(t, m.Remove(path))
}

func TestCleanDirKeepsGitkeep(t *testing.T) {
	m, fs := newManager(t)
	dir := m.Dir()
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, KeepFile), nil, 0644))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "left.jpg"), []byte("x"), 0644))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, ".left.jpg.123.part"), []byte("x"), 0644))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "sub", "b.jpg"), []byte("x"), 0644))

	removed, err := m.CleanDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	entries, err := afero.ReadDir(fs, dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, KeepFile, entries[0].Name())
}

func TestCleanDirMissing(t *testing.T) {
	m, _ := newManager(t)
	removed, err := m.CleanDir("/does/not/exist")
	assert.NoError(t, err)
	assert.Zero(t, removed)
}

func TestUsage(t *testing.T) {
	m, fs := newManager(t)
	dir := m.Dir()
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "a.jpg"), make([]byte, 100), 0644))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "sub", "b.jpg"), make([]byte, 50), 0644))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, ".c.jpg.1.part"), make([]byte, 999), 0644))

	used, err := m.Usage(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(150), used)
}

func TestNewManagerReadOnly(t *testing.T) {
	_, err := NewManager(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/x", nil)
	assert.Error(t, err)
}
