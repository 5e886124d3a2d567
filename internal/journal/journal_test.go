package journal

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/towerbuild/internal/config"
	"git.home.luguber.info/inful/towerbuild/internal/events"
	ferrors "git.home.luguber.info/inful/towerbuild/internal/foundation/errors"
)

var at = time.Date(2026, 3, 1, 14, 5, 9, 0, time.Local)

type memorySink struct {
	mu     sync.Mutex
	name   string
	got    []events.Event
	fail   bool
	closed bool
}

func (m *memorySink) Name() string { return m.name }

func (m *memorySink) Write(e events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("disk full")
	}
	m.got = append(m.got, e)
	return nil
}

func (m *memorySink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memorySink) events() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.Event(nil), m.got...)
}

func TestJournalDeliversInOrderAndDrainsOnClose(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	good := &memorySink{name: "memory"}
	bad := &memorySink{name: "broken", fail: true}
	j := New(bus, []Sink{bad, good}, WithBuffer(4))
	j.Start()

	em := events.BusEmitter{Bus: bus}
	for unit := 1; unit <= 10; unit++ {
		em.Emit(events.Event{Kind: events.TaskStarted, Phase: 1, Unit: unit, At: at})
	}
	require.NoError(t, j.Close())

	got := good.events()
	require.Len(t, got, 10)
	for i, e := range got {
		assert.Equal(t, i+1, e.Unit)
	}
	assert.Equal(t, map[string]int{"broken": 10}, j.Failures())
	assert.True(t, good.closed)
	assert.True(t, bad.closed)
}

func TestJournalCloseWithoutStart(t *testing.T) {
	sink := &memorySink{name: "memory"}
	j := New(events.NewBus(), []Sink{sink})
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())
	assert.True(t, sink.closed)
}

func TestFormatLine(t *testing.T) {
	line, ok := FormatLine(events.Event{Kind: events.TaskStep, Phase: 2, Unit: 3, Message: "Using single crane", At: at})
	require.True(t, ok)
	assert.Equal(t, "[14:05:09] [Apartment 2.3] Using single crane", line)

	line, ok = FormatLine(events.Event{Kind: events.PhaseCompleted, Phase: 4, Message: "Construction complete", At: at})
	require.True(t, ok)
	assert.Equal(t, "[14:05:09] [Floor 4] Construction complete", line)

	_, ok = FormatLine(events.Event{Kind: events.FoundationStarted, Message: "Starting foundation...", At: at})
	assert.False(t, ok)
}

func TestFileSinkTruncatesAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master_log.txt")
	require.NoError(t, writeFile(path, "left over from last run\n"))

	sink, err := NewFileSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Write(events.Event{Kind: events.PhaseStarted, Phase: 1, Message: "Construction started", At: at}))
	require.NoError(t, sink.Write(events.Event{Kind: events.BuildStarted, Message: "ignored", At: at}))
	require.NoError(t, sink.Write(events.Event{Kind: events.TaskStarted, Phase: 1, Unit: 1, Message: "Starting", At: at}))
	require.NoError(t, sink.Close())

	assert.Equal(t,
		"[14:05:09] [Floor 1] Construction started\n[14:05:09] [Apartment 1.1] Starting\n",
		readFile(t, path))
}

func TestFileSinkUnavailableIsFatalJournalError(t *testing.T) {
	_, err := NewFileSink(filepath.Join(t.TempDir(), "missing", "dir", "log.txt"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryJournal))
	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	assert.True(t, ce.IsFatal())
}

func TestConsoleSinkPlain(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, false)

	for _, e := range []events.Event{
		{Kind: events.FoundationStarted, At: at},
		{Kind: events.FoundationCompleted, At: at},
		{Kind: events.PhaseStarted, Phase: 1, At: at},
		{Kind: events.TaskStarted, Phase: 1, Unit: 2, At: at},
		{Kind: events.TaskStep, Phase: 1, Unit: 2, Message: "Plumbing", At: at},
		{Kind: events.TaskFinished, Phase: 1, Unit: 2, Elapsed: 1234 * time.Millisecond, At: at},
		{Kind: events.PhaseCompleted, Phase: 1, At: at},
		{Kind: events.BuildCompleted, Message: "Apartment Building Construction Complete!", At: at},
	} {
		require.NoError(t, sink.Write(e))
	}

	want := strings.Join([]string{
		"Starting foundation...",
		"Foundation complete!",
		"[14:05:09] 🏗️ Floor 1 started",
		"[14:05:09] 🟢 Apartment 1.2 started",
		"[14:05:09] ✅ Apartment 1.2 finished in 1.23s",
		"[14:05:09] 🏁 Floor 1 completed",
		"",
		"🏢 Apartment Building Construction Complete!",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestOpenSinksDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.File = filepath.Join(t.TempDir(), "build.log")
	cfg.Journal.SQLitePath = ":memory:"

	sinks, err := OpenSinks(cfg, &bytes.Buffer{})
	require.NoError(t, err)
	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
		require.NoError(t, s.Close())
	}
	assert.Equal(t, []string{"console", "file", "sqlite"}, names)
}

func TestOpenSinksUnreachableNATS(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.File = filepath.Join(t.TempDir(), "build.log")
	cfg.Journal.NATSURL = "nats://127.0.0.1:1"

	_, err := OpenSinks(cfg, nil)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryJournal))
}

type gatedSink struct {
	memorySink
	gate chan struct{}
}

func (g *gatedSink) Write(e events.Event) error {
	<-g.gate
	return g.memorySink.Write(e)
}

func TestJournalQueuesBehindStalledSink(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	sink := &gatedSink{memorySink: memorySink{name: "slow"}, gate: make(chan struct{})}
	j := New(bus, []Sink{sink}, WithBuffer(2))
	j.Start()

	published := make(chan error, 1)
	go func() {
		for i := 1; i <= 200; i++ {
			if err := bus.Publish(t.Context(), events.Event{Kind: events.TaskStep, Phase: 1, Unit: i}); err != nil {
				published <- err
				return
			}
		}
		published <- nil
	}()

	select {
	case err := <-published:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("publishing blocked on a stalled sink")
	}

	close(sink.gate)
	require.NoError(t, j.Close())

	got := sink.events()
	require.Len(t, got, 200)
	for i, e := range got {
		assert.Equal(t, i+1, e.Unit)
	}
}
