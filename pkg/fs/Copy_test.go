// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package fs_test

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	gocopyfs "github.com/navwar/gocopy/pkg/fs"
	"github.com/navwar/gocopy/pkg/lfs"
)

type recordingLogger struct {
	mu     sync.Mutex
	debugs []string
	errors []string
}

func (l *recordingLogger) Debug(msg string, fields ...map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugs = append(l.debugs, msg)
}

func (l *recordingLogger) Error(msg string, fields ...map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

type faultyFileSystem struct {
	gocopyfs.FileSystem
	failCopyFile map[string]error
}

func (f *faultyFileSystem) CopyFile(ctx context.Context, source string, destination string) error {
	if err, ok := f.failCopyFile[source]; ok {
		return err
	}
	return f.FileSystem.CopyFile(ctx, source, destination)
}

func skipWithoutSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symbolic links require elevated privileges on windows")
	}
}

func writeFile(t *testing.T, name string, content string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(name), 0755))
	require.NoError(t, os.WriteFile(name, []byte(content), 0644))
}

// readTree returns the content of every regular file and the target of every link below root,
// keyed by slash-separated relative path.  Directories map to "/".
func readTree(t *testing.T, root string) map[string]string {
	tree := map[string]string{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(p)
			if err != nil {
				return err
			}
			tree[rel] = "-> " + target
		case d.IsDir():
			tree[rel] = "/"
		default:
			content, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			tree[rel] = string(content)
		}
		return nil
	})
	require.NoError(t, err)
	return tree
}

func copyInput(fileSystem gocopyfs.FileSystem, source string, destination string) *gocopyfs.CopyInput {
	return &gocopyfs.CopyInput{
		SourceName:      source,
		DestinationName: destination,
		FileSystem:      fileSystem,
	}
}

func TestCopyFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	source := filepath.Join(dir, "a.txt")
	destination := filepath.Join(dir, "b.txt")
	writeFile(t, source, "alpha")
	writeFile(t, destination, "previous content")

	err := gocopyfs.Copy(ctx, copyInput(lfs.NewLocalFileSystem(), source, destination))
	require.NoError(t, err)

	content, err := os.ReadFile(destination)
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(content))
}

func TestCopyTree(t *testing.T) {
	ctx := context.Background()
	source := filepath.Join(t.TempDir(), "src")
	destination := filepath.Join(t.TempDir(), "nested", "dst")

	writeFile(t, filepath.Join(source, "root.txt"), "root")
	writeFile(t, filepath.Join(source, "a", "a1.txt"), "a1")
	writeFile(t, filepath.Join(source, "a", "a2.txt"), "a2")
	writeFile(t, filepath.Join(source, "a", "b", "c", "d", "deep.txt"), "deep")
	writeFile(t, filepath.Join(source, "empty.txt"), "")
	require.NoError(t, os.MkdirAll(filepath.Join(source, "empty-dir"), 0755))

	logger := &recordingLogger{}
	err := gocopyfs.Copy(ctx, &gocopyfs.CopyInput{
		SourceName:      source,
		DestinationName: destination,
		FileSystem:      lfs.NewLocalFileSystem(),
		Logger:          logger,
	})
	require.NoError(t, err)

	assert.Equal(t, readTree(t, source), readTree(t, destination))
	assert.Empty(t, logger.errors)
	assert.NotEmpty(t, logger.debugs)
}

func TestCopyTreeMergesIntoExistingDirectory(t *testing.T) {
	ctx := context.Background()
	source := t.TempDir()
	destination := t.TempDir()

	writeFile(t, filepath.Join(source, "new.txt"), "new")
	writeFile(t, filepath.Join(source, "shared", "changed.txt"), "after")
	writeFile(t, filepath.Join(destination, "kept.txt"), "kept")
	writeFile(t, filepath.Join(destination, "shared", "changed.txt"), "before")

	require.NoError(t, gocopyfs.Copy(ctx, copyInput(lfs.NewLocalFileSystem(), source, destination)))

	assert.Equal(t, map[string]string{
		"kept.txt":           "kept",
		"new.txt":            "new",
		"shared":             "/",
		"shared/changed.txt": "after",
	}, readTree(t, destination))
}

func TestCopySymlink(t *testing.T) {
	skipWithoutSymlinks(t)

	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name   string
		target string
	}{
		{name: "relative", target: "../some/where.txt"},
		{name: "absolute", target: filepath.Join(dir, "absolute-target.txt")},
		{name: "dangling", target: "does-not-exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := filepath.Join(dir, tt.name+"-link")
			destination := filepath.Join(dir, tt.name+"-copy")
			require.NoError(t, os.Symlink(tt.target, source))

			require.NoError(t, gocopyfs.Copy(ctx, copyInput(lfs.NewLocalFileSystem(), source, destination)))

			fi, err := os.Lstat(destination)
			require.NoError(t, err)
			assert.True(t, fi.Mode()&os.ModeSymlink != 0)

			target, err := os.Readlink(destination)
			require.NoError(t, err)
			assert.Equal(t, tt.target, target)
		})
	}
}

func TestCopySymlinkReplacesExistingEntry(t *testing.T) {
	skipWithoutSymlinks(t)

	ctx := context.Background()
	dir := t.TempDir()
	source := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink("target.txt", source))

	t.Run("file", func(t *testing.T) {
		destination := filepath.Join(dir, "existing-file")
		writeFile(t, destination, "regular file")

		require.NoError(t, gocopyfs.Copy(ctx, copyInput(lfs.NewLocalFileSystem(), source, destination)))

		target, err := os.Readlink(destination)
		require.NoError(t, err)
		assert.Equal(t, "target.txt", target)
	})

	t.Run("link", func(t *testing.T) {
		destination := filepath.Join(dir, "existing-link")
		require.NoError(t, os.Symlink("other.txt", destination))

		require.NoError(t, gocopyfs.Copy(ctx, copyInput(lfs.NewLocalFileSystem(), source, destination)))

		target, err := os.Readlink(destination)
		require.NoError(t, err)
		assert.Equal(t, "target.txt", target)
	})
}

func TestCopyTreeKeepsLinks(t *testing.T) {
	skipWithoutSymlinks(t)

	ctx := context.Background()
	source := filepath.Join(t.TempDir(), "src")
	destination := filepath.Join(t.TempDir(), "dst")

	writeFile(t, filepath.Join(source, "data", "file.txt"), "data")
	require.NoError(t, os.Symlink("data", filepath.Join(source, "dir-link")))
	require.NoError(t, os.Symlink(filepath.Join("data", "file.txt"), filepath.Join(source, "file-link")))

	require.NoError(t, gocopyfs.Copy(ctx, copyInput(lfs.NewLocalFileSystem(), source, destination)))

	tree := readTree(t, destination)
	assert.Equal(t, "-> data", tree["dir-link"])
	assert.Equal(t, "-> "+filepath.Join("data", "file.txt"), tree["file-link"])
	// the linked directory is not copied a second time
	assert.NotContains(t, tree, "dir-link/file.txt")
	assert.Equal(t, readTree(t, source), tree)
}

func TestCopyLinkCreationFailed(t *testing.T) {
	skipWithoutSymlinks(t)

	ctx := context.Background()
	dir := t.TempDir()
	source := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink("target.txt", source))

	// a non-empty directory cannot be removed to make room for the link
	destination := filepath.Join(dir, "occupied")
	writeFile(t, filepath.Join(destination, "child.txt"), "child")

	err := gocopyfs.Copy(ctx, copyInput(lfs.NewLocalFileSystem(), source, destination))
	require.Error(t, err)
	assert.Equal(t, gocopyfs.KindLinkCreationFailed, gocopyfs.KindOf(err))
	assert.Contains(t, err.Error(), destination)
	assert.Contains(t, err.Error(), "target.txt")

	var copyError *gocopyfs.CopyError
	require.True(t, errors.As(err, &copyError))
	assert.Equal(t, "target.txt", copyError.Source)
	assert.Equal(t, destination, copyError.Destination)
}

func TestCopyMissingSource(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	source := filepath.Join(dir, "missing")

	err := gocopyfs.Copy(ctx, copyInput(lfs.NewLocalFileSystem(), source, filepath.Join(dir, "dst")))
	require.Error(t, err)
	assert.Equal(t, gocopyfs.KindCopyFailed, gocopyfs.KindOf(err))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.NoFileExists(t, filepath.Join(dir, "dst"))
}

func TestCopyPropagatesNestedError(t *testing.T) {
	ctx := context.Background()
	source := t.TempDir()
	destination := t.TempDir()

	broken := filepath.Join(source, "a", "broken.txt")
	writeFile(t, broken, "broken")

	cause := errors.New("disk on fire")
	fileSystem := &faultyFileSystem{
		FileSystem:   lfs.NewLocalFileSystem(),
		failCopyFile: map[string]error{broken: cause},
	}

	logger := &recordingLogger{}
	err := gocopyfs.Copy(ctx, &gocopyfs.CopyInput{
		SourceName:      source,
		DestinationName: destination,
		FileSystem:      fileSystem,
		Logger:          logger,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, gocopyfs.KindCopyFailed, gocopyfs.KindOf(err))
	assert.Contains(t, err.Error(), broken)
	// errors are left to the caller
	assert.Empty(t, logger.errors)
}
