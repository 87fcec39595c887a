// ==================================================================================
//
// Work of the U.S. Department of the Navy, Naval Information Warfare Center Pacific.
// Released as open source under the MIT License.  See LICENSE file.
//
// ==================================================================================

package ts

import (
	"strconv"
	"time"

	"gitlab.com/tozd/go/errors"
)

// ParseLocation returns the location for a time zone name, "Local", or an hour offset from UTC such as "-8".
func ParseLocation(location string) (*time.Location, error) {
	if location == "" {
		return nil, errors.New("cannot parse location from empty string")
	}
	if location == "Local" {
		return time.Local, nil
	}
	if hours, err := strconv.Atoi(location); err == nil {
		if hours < -12 || hours > 14 {
			return nil, errors.Errorf("hour offset %q is out of range", location)
		}
		return time.FixedZone("UTC"+location, hours*60*60), nil
	}
	l, err := time.LoadLocation(location)
	if err != nil {
		return nil, errors.Errorf("error loading location %q: %w", location, err)
	}
	return l, nil
}
