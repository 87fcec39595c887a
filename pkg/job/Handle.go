// ==================================================================================
//
// Work of the U.S. Department of the Navy, Naval Information Warfare Center Pacific.
// Released as open source under the MIT License.  See LICENSE file.
//
// ==================================================================================

package job

// Handle is the view of a CopyJob given to bindings and other observers.
type Handle struct {
	job *CopyJob
}

func (h *Handle) Running() bool {
	return h.job.Status()
}

func (h *Handle) Cancel() bool {
	return h.job.Cancel()
}

func (h *Handle) String() string {
	return h.job.String()
}

func NewHandle(j *CopyJob) *Handle {
	return &Handle{job: j}
}
