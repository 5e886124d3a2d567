package journal

import (
	"io"

	"git.home.luguber.info/inful/towerbuild/internal/config"
)

// OpenSinks builds the sinks enabled by cfg: the console and the text log
// always, the SQLite store and NATS publisher when configured. If any sink
// cannot be opened the ones already opened are closed again.
func OpenSinks(cfg *config.Config, console io.Writer) ([]Sink, error) {
	var sinks []Sink
	fail := func(err error) ([]Sink, error) {
		for _, s := range sinks {
			_ = s.Close()
		}
		return nil, err
	}

	if console != nil {
		sinks = append(sinks, NewConsoleSink(console, cfg.Logging.ColorEnabled()))
	}

	file, err := NewFileSink(cfg.Logging.File)
	if err != nil {
		return fail(err)
	}
	sinks = append(sinks, file)

	if cfg.Journal.SQLitePath != "" {
		store, err := NewSQLiteSink(cfg.Journal.SQLitePath)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, store)
	}

	if cfg.Journal.NATSURL != "" {
		pub, err := NewNATSSink(cfg.Journal.NATSURL, cfg.Journal.NATSSubject)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, pub)
	}

	return sinks, nil
}
