package fs

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"nodefs/fserr"
)

func makeTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.txt"), "a")
	writeTestFile(t, filepath.Join(dir, "b.txt"), "b")
	writeTestFile(t, filepath.Join(dir, "sub", "c.txt"), "c")
	require.NoError(t, os.Symlink("a.txt", filepath.Join(dir, "link")))
	return dir
}

func drain(t *testing.T, dir *Dir) []Dirent {
	t.Helper()
	var out []Dirent
	for {
		ent, err := dir.Read()
		require.NoError(t, err)
		if ent == nil {
			return out
		}
		out = append(out, ent)
	}
}

func direntNames(ents []Dirent) []string {
	names := make([]string, len(ents))
	for i, e := range ents {
		names[i] = e.Name()
	}
	sort.Strings(names)
	return names
}

func TestOpendirRead(t *testing.T) {
	root := makeTree(t)

	dir, err := Opendir(root, nil)
	require.NoError(t, err)
	ents := drain(t, dir)
	assert.Equal(t, []string{"a.txt", "b.txt", "link", "sub"}, direntNames(ents))

	for _, e := range ents {
		assert.Equal(t, root, e.Path())
		switch e.Name() {
		case "sub":
			assert.True(t, e.IsDirectory())
			assert.False(t, e.IsFile())
		case "link":
			assert.True(t, e.IsSymbolicLink())
		default:
			assert.True(t, e.IsFile())
		}
	}

	// exhausted streams keep reporting the end
	ent, err := dir.Read()
	assert.NoError(t, err)
	assert.Nil(t, ent)

	require.NoError(t, dir.Close())
}

func TestOpendirSmallBuffer(t *testing.T) {
	root := makeTree(t)
	dir, err := Opendir(root, &OpendirOptions{Encoding: Ptr(EncodingUtf8), BufferSize: 1})
	require.NoError(t, err)
	defer dir.Close()
	assert.Len(t, drain(t, dir), 4)
}

func TestOpendirRecursive(t *testing.T) {
	root := makeTree(t)
	dir, err := Opendir(root, &OpendirOptions{Encoding: Ptr(EncodingUtf8), Recursive: true})
	require.NoError(t, err)
	defer dir.Close()

	ents := drain(t, dir)
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt", "link", "sub"}, direntNames(ents))
	for _, e := range ents {
		if e.Name() == "c.txt" {
			assert.Equal(t, filepath.Join(root, "sub"), e.Path())
		}
	}
}

func TestDirCloseInvalidatesClones(t *testing.T) {
	root := makeTree(t)
	dir, err := Opendir(root, nil)
	require.NoError(t, err)
	clone := dir.Clone()

	first, err := clone.Read()
	require.NoError(t, err)
	require.NotNil(t, first)

	require.NoError(t, dir.Close())

	_, err = clone.Read()
	require.Error(t, err)
	assert.Equal(t, "ERR_DIR_CLOSED", fserr.CodeOf(err))
	assert.ErrorIs(t, err, unix.EBADF)

	err = clone.Close()
	assert.Equal(t, "ERR_DIR_CLOSED", fserr.CodeOf(err))
}

func TestOpendirErrors(t *testing.T) {
	root := makeTree(t)

	_, err := Opendir(filepath.Join(root, "missing"), nil)
	assert.Equal(t, "ENOENT", fserr.CodeOf(err))

	_, err = Opendir(filepath.Join(root, "a.txt"), nil)
	assert.Equal(t, "ENOTDIR", fserr.CodeOf(err))
}

func TestReaddir(t *testing.T) {
	root := makeTree(t)

	t.Run("names", func(t *testing.T) {
		res, err := Readdir(root, nil)
		require.NoError(t, err)
		var names []string
		for _, r := range res {
			assert.Equal(t, ReaddirString, r.Kind)
			names = append(names, r.Str)
		}
		assert.Equal(t, []string{"a.txt", "b.txt", "link", "sub"}, names)
	})

	t.Run("buffers", func(t *testing.T) {
		res, err := Readdir(root, &ReaddirOptions{Encoding: Ptr(EncodingBuffer)})
		require.NoError(t, err)
		require.Len(t, res, 4)
		assert.Equal(t, ReaddirBuffer, res[0].Kind)
		assert.Equal(t, []byte("a.txt"), res[0].Buf.Bytes())
		assert.Equal(t, "a.txt", res[0].Name())
	})

	t.Run("with file types", func(t *testing.T) {
		res, err := Readdir(root, &ReaddirOptions{WithFileTypes: true, Encoding: Ptr(EncodingUtf8)})
		require.NoError(t, err)
		require.Len(t, res, 4)
		byName := map[string]Dirent{}
		for _, r := range res {
			require.Equal(t, ReaddirDirent, r.Kind)
			byName[r.Name()] = r.Dirent
		}
		assert.True(t, byName["a.txt"].IsFile())
		assert.True(t, byName["sub"].IsDirectory())
		assert.True(t, byName["link"].IsSymbolicLink())
		assert.False(t, byName["link"].IsFile())
	})

	t.Run("recursive", func(t *testing.T) {
		res, err := Readdir(root, &ReaddirOptions{Recursive: true, Encoding: Ptr(EncodingUtf8)})
		require.NoError(t, err)
		var names []string
		for _, r := range res {
			names = append(names, r.Str)
		}
		assert.Equal(t, []string{"a.txt", "b.txt", "link", "sub", filepath.Join("sub", "c.txt")}, names)
	})

	t.Run("recursive with file types", func(t *testing.T) {
		res, err := Readdir(root, &ReaddirOptions{Recursive: true, WithFileTypes: true})
		require.NoError(t, err)
		require.Len(t, res, 5)
		last := res[4].Dirent
		assert.Equal(t, "c.txt", last.Name())
		assert.Equal(t, filepath.Join(root, "sub"), last.Path())
	})

	t.Run("missing", func(t *testing.T) {
		_, err := Readdir(filepath.Join(root, "nope"), nil)
		assert.Equal(t, "ENOENT", fserr.CodeOf(err))
		_, err = Readdir(filepath.Join(root, "nope"), &ReaddirOptions{Recursive: true})
		assert.Equal(t, "ENOENT", fserr.CodeOf(err))
	})
}

func TestRawDirentPredicates(t *testing.T) {
	tests := []struct {
		mode  uint32
		check func(Dirent) bool
	}{
		{unix.S_IFREG, Dirent.IsFile},
		{unix.S_IFDIR, Dirent.IsDirectory},
		{unix.S_IFLNK, Dirent.IsSymbolicLink},
		{unix.S_IFIFO, Dirent.IsFIFO},
		{unix.S_IFSOCK, Dirent.IsSocket},
		{unix.S_IFBLK, Dirent.IsBlockDevice},
		{unix.S_IFCHR, Dirent.IsCharacterDevice},
	}
	for _, tc := range tests {
		raw := &rawDirent{name: "x", dtype: dtypeFromMode(tc.mode)}
		assert.True(t, tc.check(raw), "mode %o", tc.mode)

		lib := &libDirent{name: "x", typ: fileModeType(tc.mode)}
		assert.True(t, tc.check(lib), "mode %o", tc.mode)
	}
	assert.Equal(t, uint8(unix.DT_UNKNOWN), dtypeFromMode(0))
}

func fileModeType(mode uint32) os.FileMode {
	switch mode {
	case unix.S_IFDIR:
		return os.ModeDir
	case unix.S_IFLNK:
		return os.ModeSymlink
	case unix.S_IFIFO:
		return os.ModeNamedPipe
	case unix.S_IFSOCK:
		return os.ModeSocket
	case unix.S_IFBLK:
		return os.ModeDevice
	case unix.S_IFCHR:
		return os.ModeDevice | os.ModeCharDevice
	}
	return 0
}
