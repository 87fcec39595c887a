// ==================================================================================
//
// Work of the U.S. Department of the Navy, Naval Information Warfare Center Pacific.
// Released as open source under the MIT License.  See LICENSE file.
//
// ==================================================================================

package lfs

import (
	"gitlab.com/tozd/go/errors"
)

// Check returns an error if copying the directory source into destination would
// copy the destination into itself.
// Both paths are expected to be cleaned and absolute.
func Check(source string, destination string) error {
	if source == destination {
		return errors.Errorf("source and destination must be different: %q", source)
	}
	sourceDirectories := Split(source)
	destinationDirectories := Split(destination)
	if len(destinationDirectories) <= len(sourceDirectories) {
		return nil
	}
	for i := range sourceDirectories {
		if sourceDirectories[i] != destinationDirectories[i] {
			return nil
		}
	}
	return errors.Errorf("cycle error: source %q is a parent of destination %q", source, destination)
}
