package journal

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"git.home.luguber.info/inful/towerbuild/internal/events"
)

// ConsoleSink prints the high-level progress of a build: apartments starting
// and finishing, floors starting and completing, the foundation and the
// final banner. Step-level events stay in the file log.
type ConsoleSink struct {
	mu    sync.Mutex
	out   io.Writer
	color bool

	started   lipgloss.Style
	finished  lipgloss.Style
	floorUp   lipgloss.Style
	floorDone lipgloss.Style
}

// NewConsoleSink writes to out. With color disabled lines are printed
// without any escape sequences.
func NewConsoleSink(out io.Writer, color bool) *ConsoleSink {
	r := lipgloss.NewRenderer(out)
	return &ConsoleSink{
		out:       out,
		color:     color,
		started:   r.NewStyle().Foreground(lipgloss.Color("3")),
		finished:  r.NewStyle().Foreground(lipgloss.Color("2")),
		floorUp:   r.NewStyle().Foreground(lipgloss.Color("6")),
		floorDone: r.NewStyle().Foreground(lipgloss.Color("5")),
	}
}

func (s *ConsoleSink) Name() string { return "console" }

func (s *ConsoleSink) Write(e events.Event) error {
	line, ok := s.render(e)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.out, line)
	return err
}

func (s *ConsoleSink) render(e events.Event) (string, bool) {
	stamp := "[" + e.At.Format(timestampLayout) + "] "
	switch e.Kind {
	case events.FoundationStarted:
		return "Starting foundation...", true
	case events.FoundationCompleted:
		return "Foundation complete!", true
	case events.TaskStarted:
		return s.paint(s.started, stamp+fmt.Sprintf("🟢 Apartment %s started", e.Label())), true
	case events.TaskFinished:
		return s.paint(s.finished, stamp+fmt.Sprintf("✅ Apartment %s finished in %.2fs", e.Label(), e.Elapsed.Seconds())), true
	case events.PhaseStarted:
		return s.paint(s.floorUp, stamp+fmt.Sprintf("🏗️ Floor %d started", e.Phase)), true
	case events.PhaseCompleted:
		return s.paint(s.floorDone, stamp+fmt.Sprintf("🏁 Floor %d completed", e.Phase)), true
	case events.BuildCompleted:
		return "\n🏢 " + e.Message, true
	default:
		return "", false
	}
}

func (s *ConsoleSink) paint(style lipgloss.Style, text string) string {
	if !s.color {
		return text
	}
	return style.Render(text)
}

// Close is a no-op; the console is owned by the process.
func (s *ConsoleSink) Close() error { return nil }
