// ==================================================================================
//
// Work of the U.S. Department of the Navy, Naval Information Warfare Center Pacific.
// Released as open source under the MIT License.  See LICENSE file.
//
// ==================================================================================

package fs

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// ErrorKind classifies failures raised while copying.
type ErrorKind int

const (
	KindUnknownFailure ErrorKind = iota
	KindLinkCreationFailed
	KindCopyFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindLinkCreationFailed:
		return "LinkCreationFailed"
	case KindCopyFailed:
		return "CopyFailed"
	}
	return "UnknownFailure"
}

// CopyError is returned by Copy.
// Destination is empty when the failure concerns only the source, e.g., listing a directory.
type CopyError struct {
	Kind        ErrorKind
	Source      string
	Destination string
	Err         error
}

func (e *CopyError) Error() string {
	switch e.Kind {
	case KindLinkCreationFailed:
		return fmt.Sprintf("could not make symlink %q from %q: %s", e.Destination, e.Source, e.Err)
	case KindCopyFailed:
		if len(e.Destination) == 0 {
			return fmt.Sprintf("copy failed for %q: %s", e.Source, e.Err)
		}
		return fmt.Sprintf("copy failed from %q to %q: %s", e.Source, e.Destination, e.Err)
	}
	return fmt.Sprintf("unknown error copying %q: %s", e.Source, e.Err)
}

func (e *CopyError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first CopyError in the chain of err,
// or KindUnknownFailure if there is none.
func KindOf(err error) ErrorKind {
	var copyError *CopyError
	if errors.As(err, &copyError) {
		return copyError.Kind
	}
	return KindUnknownFailure
}

func newLinkError(target string, destination string, err error) error {
	return &CopyError{Kind: KindLinkCreationFailed, Source: target, Destination: destination, Err: err}
}

func newCopyError(source string, destination string, err error) error {
	return &CopyError{Kind: KindCopyFailed, Source: source, Destination: destination, Err: err}
}
