// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package lfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/navwar/gocopy/pkg/fs"
)

type LocalFileSystem struct {
	fs afero.Fs
}

// CopyFile copies the contents, permission bits, and modification time of source to destination.
// An existing destination is truncated.
func (lfs *LocalFileSystem) CopyFile(ctx context.Context, source string, destination string) error {
	sourceFileInfo, err := lfs.fs.Stat(source)
	if err != nil {
		return errors.Errorf("error stating source file at %q: %w", source, err)
	}

	sourceFile, err := lfs.fs.Open(source)
	if err != nil {
		return errors.Errorf("error opening source file at %q: %w", source, err)
	}

	destinationFile, err := lfs.fs.OpenFile(destination, os.O_RDWR|os.O_CREATE|os.O_TRUNC, sourceFileInfo.Mode().Perm())
	if err != nil {
		_ = sourceFile.Close() // silently close source file
		return errors.Errorf("error creating destination file at %q: %w", destination, err)
	}

	_, err = io.Copy(destinationFile, sourceFile)
	if err != nil {
		_ = sourceFile.Close()      // silently close source file
		_ = destinationFile.Close() // silently close destination file
		return errors.Errorf("error copying from %q to %q: %w", source, destination, err)
	}

	err = sourceFile.Close()
	if err != nil {
		_ = destinationFile.Close() // silently close destination file
		return errors.Errorf("error closing source file after copying: %w", err)
	}

	err = destinationFile.Close()
	if err != nil {
		return errors.Errorf("error closing destination file after copying: %w", err)
	}

	// OpenFile only applies the mode when creating
	err = lfs.fs.Chmod(destination, sourceFileInfo.Mode().Perm())
	if err != nil {
		return errors.Errorf("error changing mode for destination after copying: %w", err)
	}

	err = lfs.fs.Chtimes(destination, time.Now(), sourceFileInfo.ModTime())
	if err != nil {
		return errors.Errorf("error changing timestamps for destination after copying: %w", err)
	}

	return nil
}

func (lfs *LocalFileSystem) Base(name string) string {
	return filepath.Base(name)
}

func (lfs *LocalFileSystem) IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

func (lfs *LocalFileSystem) Join(name ...string) string {
	return filepath.Join(name...)
}

// Lstat does not follow symbolic links if the underlying filesystem supports them.
func (lfs *LocalFileSystem) Lstat(ctx context.Context, name string) (fs.FileInfo, error) {
	if lstater, ok := lfs.fs.(afero.Lstater); ok {
		fi, _, err := lstater.LstatIfPossible(name)
		if err != nil {
			return nil, err
		}
		return NewLocalFileInfo(fi), nil
	}
	return lfs.Stat(ctx, name)
}

func (lfs *LocalFileSystem) MkdirAll(ctx context.Context, name string, mode os.FileMode) error {
	return lfs.fs.MkdirAll(name, mode)
}

func (lfs *LocalFileSystem) ReadDirNames(ctx context.Context, name string) ([]string, error) {
	f, err := lfs.fs.Open(name)
	if err != nil {
		return nil, err
	}
	names, err := f.Readdirnames(-1)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return names, nil
}

func (lfs *LocalFileSystem) Readlink(ctx context.Context, name string) (string, error) {
	reader, ok := lfs.fs.(afero.LinkReader)
	if !ok {
		return "", &os.PathError{Op: "readlink", Path: name, Err: afero.ErrNoReadlink}
	}
	return reader.ReadlinkIfPossible(name)
}

func (lfs *LocalFileSystem) Remove(ctx context.Context, name string) error {
	return lfs.fs.Remove(name)
}

func (lfs *LocalFileSystem) Stat(ctx context.Context, name string) (fs.FileInfo, error) {
	fi, err := lfs.fs.Stat(name)
	if err != nil {
		return nil, err
	}
	return NewLocalFileInfo(fi), nil
}

// Symlink creates name as a symbolic link to target.
// The target is stored verbatim, so relative targets stay relative.
func (lfs *LocalFileSystem) Symlink(ctx context.Context, target string, name string) error {
	linker, ok := lfs.fs.(afero.Linker)
	if !ok {
		return &os.LinkError{Op: "symlink", Old: target, New: name, Err: afero.ErrNoSymlink}
	}
	return linker.SymlinkIfPossible(target, name)
}

// NewLocalFileSystem returns a filesystem backed by the operating system.
// Paths are used as given, so callers should pass absolute paths.
func NewLocalFileSystem() *LocalFileSystem {
	return NewLocalFileSystemWithFs(afero.NewOsFs())
}

// NewLocalFileSystemWithFs wraps an existing afero filesystem.
// A BasePathFs should not be used, since it rewrites symbolic link targets.
func NewLocalFileSystemWithFs(base afero.Fs) *LocalFileSystem {
	return &LocalFileSystem{
		fs: base,
	}
}
