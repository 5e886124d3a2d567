package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/towerbuild/internal/config"
)

// DefaultConfigPath is used when --config is not given.
const DefaultConfigPath = "towerbuild.yaml"

// Global carries process-wide collaborators into every command.
type Global struct {
	Logger *slog.Logger
	Stdout io.Writer
}

func (g *Global) stdout() io.Writer {
	if g == nil || g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"towerbuild.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run    RunCmd    `cmd:"" default:"withargs" help:"Build the tower once"`
	Init   InitCmd   `cmd:"" help:"Write a configuration file populated with defaults"`
	Report ReportCmd `cmd:"" help:"Summarise runs stored in the SQLite event store"`
	Serve  ServeCmd  `cmd:"" help:"Build the tower periodically and expose Prometheus metrics"`
}

// AfterApply runs after flag parsing; it installs a bootstrap logger until
// the configuration has been read.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	g.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(g.Logger)
	return nil
}

// loadConfig reads the configuration file. A missing file at the default
// location means "use the defaults".
func (c *CLI) loadConfig() (*config.Config, error) {
	if _, err := os.Stat(c.Config); os.IsNotExist(err) && isDefaultConfigPath(c.Config) {
		slog.Debug("No configuration file, using defaults", "path", c.Config)
		return config.Default(), nil
	}
	return config.Load(c.Config)
}

func isDefaultConfigPath(p string) bool {
	return p == DefaultConfigPath || p == kong.ExpandPath(DefaultConfigPath)
}

// newLogger builds the process logger the configuration asks for.
func newLogger(cfg *config.Config, verbose bool) *slog.Logger {
	level := cfg.Logging.Level.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.Logging.Format == config.LogFormatJSON {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(h)
}
