// ==================================================================================
//
// Work of the U.S. Department of the Navy, Naval Information Warfare Center Pacific.
// Released as open source under the MIT License.  See LICENSE file.
//
// ==================================================================================

package job

import (
	"time"

	"github.com/navwar/gocopy/pkg/fs"
)

const (
	Component = "Filesystem.AsyncCopy"

	DefaultCloseTimeout = 10 * time.Millisecond
)

type NewCopyJobInput struct {
	Sources      []string
	Destination  string
	Callback     Callback
	FileSystem   fs.FileSystem
	MainContext  MainContext   // defaults to Immediate
	Logger       fs.Logger     // optional
	CloseTimeout time.Duration // defaults to DefaultCloseTimeout
}
