// ==================================================================================
//
// Work of the U.S. Department of the Navy, Naval Information Warfare Center Pacific.
// Released as open source under the MIT License.  See LICENSE file.
//
// ==================================================================================

package lfs

import (
	"os"
)

// Split splits the path into its elements using the path separator for the local operating system.
// An absolute path keeps the separator as its first element.
func Split(p string) []string {
	elements := []string{}
	if len(p) > 0 && os.IsPathSeparator(p[0]) {
		elements = append(elements, string(os.PathSeparator))
	}
	start := -1
	for i := 0; i <= len(p); i++ {
		if i == len(p) || os.IsPathSeparator(p[i]) {
			if start >= 0 {
				elements = append(elements, p[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	return elements
}
