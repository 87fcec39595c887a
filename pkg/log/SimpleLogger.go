// ==================================================================================
//
// Work of the U.S. Department of the Navy, Naval Information Warfare Center Pacific.
// Released as open source under the MIT License.  See LICENSE file.
//
// ==================================================================================

package log

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const (
	FormatJSONL = "jsonl"
	FormatText  = "text"
)

// SimpleLogger writes leveled, structured log events.
// It implements fs.Logger.
type SimpleLogger struct {
	logger zerolog.Logger
}

func (s *SimpleLogger) event(e *zerolog.Event, msg string, fields []map[string]interface{}) {
	for _, f := range fields {
		e = e.Fields(f)
	}
	e.Msg(msg)
}

func (s *SimpleLogger) Debug(msg string, fields ...map[string]interface{}) {
	s.event(s.logger.Debug(), msg, fields)
}

func (s *SimpleLogger) Info(msg string, fields ...map[string]interface{}) {
	s.event(s.logger.Info(), msg, fields)
}

func (s *SimpleLogger) Error(msg string, fields ...map[string]interface{}) {
	s.event(s.logger.Error(), msg, fields)
}

// Log writes an info event.
func (s *SimpleLogger) Log(msg string, fields ...map[string]interface{}) error {
	s.Info(msg, fields...)
	return nil
}

// WithComponent returns a child logger that tags every event with the component name.
func (s *SimpleLogger) WithComponent(component string) *SimpleLogger {
	return &SimpleLogger{
		logger: s.logger.With().Str("component", component).Logger(),
	}
}

// NewSimpleLogger returns a logger writing to w.
// Format is either jsonl or text.  Color only applies to the text format.
func NewSimpleLogger(w io.Writer, format string, level zerolog.Level, color bool) (*SimpleLogger, error) {
	switch format {
	case FormatJSONL:
	case FormatText:
		w = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    !color,
			TimeFormat: time.RFC3339,
		}
	default:
		return nil, errors.Errorf("unknown log format %q, expecting %q or %q", format, FormatJSONL, FormatText)
	}
	return &SimpleLogger{
		logger: zerolog.New(w).With().Timestamp().Logger().Level(level),
	}, nil
}
