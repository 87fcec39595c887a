// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package fs

import (
	"context"
	"os"
)

type FileSystem interface {
	Base(name string) string
	CopyFile(ctx context.Context, source string, destination string) error
	IsNotExist(err error) bool
	Join(name ...string) string
	Lstat(ctx context.Context, name string) (FileInfo, error)
	MkdirAll(ctx context.Context, name string, mode os.FileMode) error
	ReadDirNames(ctx context.Context, name string) ([]string, error)
	Readlink(ctx context.Context, name string) (string, error)
	Remove(ctx context.Context, name string) error
	Stat(ctx context.Context, name string) (FileInfo, error)
	Symlink(ctx context.Context, target string, name string) error
}
