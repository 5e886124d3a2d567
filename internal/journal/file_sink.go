package journal

import (
	"fmt"
	"io"
	"os"
	"sync"

	"git.home.luguber.info/inful/towerbuild/internal/events"
	ferrors "git.home.luguber.info/inful/towerbuild/internal/foundation/errors"
)

const timestampLayout = "15:04:05"

// FileSink writes the detailed, timestamped text log of floor and apartment
// events. Site-wide events (build, foundation) are not part of the file log.
type FileSink struct {
	mu   sync.Mutex
	path string
	w    io.WriteCloser
}

// NewFileSink creates or truncates path. Failing to open the log is fatal
// for the run.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryJournal, "cannot open construction log").
			WithContext("path", path).
			Fatal().
			Build()
	}
	return &FileSink{path: path, w: f}, nil
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Write(e events.Event) error {
	line, ok := FormatLine(e)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.w, line+"\n"); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryJournal, "write construction log").
			WithContext("path", s.path).
			Build()
	}
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Close()
}

// FormatLine renders a floor or apartment event the way the text log stores
// it, for example "[15:04:05] [Apartment 2.3] Using single crane". It
// reports false for events that are not written to the log.
func FormatLine(e events.Event) (string, bool) {
	var scope string
	switch {
	case e.Phase > 0 && e.Unit > 0:
		scope = "[Apartment " + e.Label() + "]"
	case e.Phase > 0:
		scope = fmt.Sprintf("[Floor %d]", e.Phase)
	default:
		return "", false
	}
	return fmt.Sprintf("[%s] %s %s", e.At.Format(timestampLayout), scope, e.Message), true
}
