// ==================================================================================
//
// Work of the U.S. Department of the Navy, Naval Information Warfare Center Pacific.
// Released as open source under the MIT License.  See LICENSE file.
//
// ==================================================================================

package job

import (
	"context"
	"sync/atomic"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/navwar/gocopy/pkg/fs"
)

// CopyJob copies a list of sources into a destination directory on its own goroutine.
//
// Directory sources are merged into the destination, so their children land directly
// under it.  File and symbolic link sources are copied to a child of the destination
// named after the source.
//
// The callback receives the number of sources copied so far, so indexes stay contiguous
// when a source fails.
//
// Cancellation is checked between sources only.  A source that is being copied when
// Cancel is called is finished normally.
type CopyJob struct {
	sources      []string
	destination  string
	callback     Callback
	fileSystem   fs.FileSystem
	mainContext  MainContext
	logger       fs.Logger
	closeTimeout time.Duration

	cancelled atomic.Bool
	running   atomic.Bool
	done      chan struct{}
}

// NewCopyJob starts copying immediately and returns without waiting.
func NewCopyJob(input *NewCopyJobInput) *CopyJob {
	j := &CopyJob{
		sources:      append([]string{}, input.Sources...),
		destination:  input.Destination,
		callback:     input.Callback,
		fileSystem:   input.FileSystem,
		mainContext:  input.MainContext,
		logger:       input.Logger,
		closeTimeout: input.CloseTimeout,
		done:         make(chan struct{}),
	}
	if j.mainContext == nil {
		j.mainContext = Immediate
	}
	if j.logger == nil {
		j.logger = nopLogger{}
	}
	if j.closeTimeout <= 0 {
		j.closeTimeout = DefaultCloseTimeout
	}
	j.running.Store(true)
	go j.run()
	return j
}

func (j *CopyJob) run() {
	defer close(j.done)

	ctx := context.Background()
	total := len(j.sources)

	j.logger.Debug("Job started", map[string]interface{}{
		"dst":   j.destination,
		"count": total,
	})

	j.ensureDestination(ctx)

	copied := 0
	for i, source := range j.sources {
		if j.cancelled.Load() {
			break
		}

		j.logger.Debug("Copying source", map[string]interface{}{
			"src":      source,
			"position": i + 1,
		})

		if err := j.copySource(ctx, source); err != nil {
			j.logger.Error("Error copying source", map[string]interface{}{
				"src":  source,
				"kind": fs.KindOf(err).String(),
				"err":  err.Error(),
			})
			continue
		}

		copied++

		j.logger.Debug("Source copied", map[string]interface{}{
			"src":    source,
			"copied": copied,
		})

		if j.callback != nil {
			j.mainContext.RunOnMainContext(j.callback, Progress{
				Source: source,
				Index:  copied,
				Total:  total,
			})
		}
	}

	j.running.Store(false)
	j.cancelled.Store(true)

	j.logger.Debug("Job finished", map[string]interface{}{
		"dst":    j.destination,
		"copied": copied,
	})
}

// ensureDestination creates the destination directory if missing.
// Failures are logged, and every source will then fail on its own.
func (j *CopyJob) ensureDestination(ctx context.Context) {
	_, err := j.fileSystem.Stat(ctx, j.destination)
	if err == nil {
		return
	}
	if !j.fileSystem.IsNotExist(err) {
		j.logger.Error("Error stating destination", map[string]interface{}{
			"dst": j.destination,
			"err": err.Error(),
		})
		return
	}
	if err := j.fileSystem.MkdirAll(ctx, j.destination, 0755); err != nil {
		j.logger.Error("Error creating destination", map[string]interface{}{
			"dst": j.destination,
			"err": err.Error(),
		})
	}
}

// copySource copies one top-level source.  Panics are returned as errors.
func (j *CopyJob) copySource(ctx context.Context, source string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &fs.CopyError{
				Kind:   fs.KindUnknownFailure,
				Source: source,
				Err:    errors.Errorf("panic: %v", r),
			}
		}
	}()

	sourceFileInfo, err := j.fileSystem.Lstat(ctx, source)
	if err != nil {
		return &fs.CopyError{Kind: fs.KindCopyFailed, Source: source, Err: err}
	}

	destination := j.destination
	if !sourceFileInfo.IsDir() {
		destination = j.fileSystem.Join(j.destination, j.fileSystem.Base(source))
	}

	return fs.Copy(ctx, &fs.CopyInput{
		SourceName:      source,
		DestinationName: destination,
		FileSystem:      j.fileSystem,
		Logger:          j.logger,
	})
}

// Cancel stops the job before its next source.
// Returns false if the job is not running.
func (j *CopyJob) Cancel() bool {
	if !j.running.Load() {
		return false
	}
	j.cancelled.Store(true)
	return j.running.Swap(false)
}

// Status returns true while the job is running.
func (j *CopyJob) Status() bool {
	return j.running.Load()
}

// Cancelled returns true once the job was cancelled or has finished.
func (j *CopyJob) Cancelled() bool {
	return j.cancelled.Load()
}

// Done returns a channel that is closed when the worker exits.
func (j *CopyJob) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the worker exits or the context is done.
func (j *CopyJob) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return errors.Errorf("error waiting for copy job: %w", ctx.Err())
	}
}

// Close waits up to the close timeout for the worker to exit and reports whether it did.
// The worker is never interrupted.  If it is still copying, it keeps running in the
// background and its goroutine is only released once the current source is finished.
func (j *CopyJob) Close() bool {
	timer := time.NewTimer(j.closeTimeout)
	defer timer.Stop()
	select {
	case <-j.done:
		return true
	case <-timer.C:
		j.logger.Debug("Worker still running after close timeout", map[string]interface{}{
			"dst":     j.destination,
			"timeout": j.closeTimeout.String(),
		})
		return false
	}
}

func (j *CopyJob) String() string {
	return "[Async Copy]"
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, fields ...map[string]interface{}) {}

func (nopLogger) Error(msg string, fields ...map[string]interface{}) {}
