// ==================================================================================
//
// Work of the U.S. Department of the Navy, Naval Information Warfare Center Pacific.
// Released as open source under the MIT License.  See LICENSE file.
//
// ==================================================================================

package fs

import (
	"os"
	"time"
)

type FileInfo interface {
	IsDir() bool
	IsSymlink() bool
	Mode() os.FileMode
	ModTime() time.Time
	Name() string
	Size() int64
	String() string
}
