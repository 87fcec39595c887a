// ==================================================================================
//
// Work of the U.S. Department of the Navy, Naval Information Warfare Center Pacific.
// Released as open source under the MIT License.  See LICENSE file.
//
// ==================================================================================

package job

// Callback is called once for each top-level source that was copied.
// Index is 1-based and total is the number of sources given to the job.
type Callback func(source string, index int, total int)

// Progress holds the arguments for one callback invocation.
type Progress struct {
	Source string
	Index  int
	Total  int
}

// MainContext schedules callbacks onto the main execution context.
// RunOnMainContext must not block waiting for the callback to run.
type MainContext interface {
	RunOnMainContext(callback Callback, progress Progress)
}

type MainContextFunc func(callback Callback, progress Progress)

func (f MainContextFunc) RunOnMainContext(callback Callback, progress Progress) {
	f(callback, progress)
}

// Immediate runs callbacks on the calling goroutine.
var Immediate = MainContextFunc(func(callback Callback, progress Progress) {
	callback(progress.Source, progress.Index, progress.Total)
})
