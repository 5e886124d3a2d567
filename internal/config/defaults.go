package config

import "time"

// Default values mirror the reference building: ten floors of four
// apartments, three multi-cranes and a two-person door/window crew.
const (
	DefaultFloors             = 10
	DefaultApartmentsPerFloor = 4
	DefaultFoundationDelay    = "2s"
	DefaultMultiCranes        = 3
	DefaultDoorWindowCrew     = 2
	DefaultMinUnits           = 100
	DefaultMaxUnits           = 500
	DefaultWorkUnit           = "1ms"
	DefaultLogFile            = "master_log.txt"
	DefaultNATSSubject        = "towerbuild.events"
	DefaultJournalBuffer      = 1024
	DefaultScheduleInterval   = "1m"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

type buildDefaults struct{}

func (buildDefaults) Domain() string { return "build" }

func (buildDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Build.Floors == 0 {
		cfg.Build.Floors = DefaultFloors
	}
	if cfg.Build.ApartmentsPerFloor == 0 {
		cfg.Build.ApartmentsPerFloor = DefaultApartmentsPerFloor
	}
	if cfg.Build.FoundationDelay == "" {
		cfg.Build.FoundationDelay = DefaultFoundationDelay
	}
	return nil
}

type resourceDefaults struct{}

func (resourceDefaults) Domain() string { return "resources" }

func (resourceDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Resources.MultiCranes == 0 {
		cfg.Resources.MultiCranes = DefaultMultiCranes
	}
	if cfg.Resources.DoorWindowCrew == 0 {
		cfg.Resources.DoorWindowCrew = DefaultDoorWindowCrew
	}
	return nil
}

type workDefaults struct{}

func (workDefaults) Domain() string { return "work" }

func (workDefaults) ApplyDefaults(cfg *Config) error {
	// Both bounds omitted means the reference 100-500 range; a single bound
	// is left for validation to judge.
	if cfg.Work.MinUnits == 0 && cfg.Work.MaxUnits == 0 {
		cfg.Work.MinUnits = DefaultMinUnits
		cfg.Work.MaxUnits = DefaultMaxUnits
	}
	if cfg.Work.Unit == "" {
		cfg.Work.Unit = DefaultWorkUnit
	}
	return nil
}

type loggingDefaults struct{}

func (loggingDefaults) Domain() string { return "logging" }

func (loggingDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Logging.File == "" {
		cfg.Logging.File = DefaultLogFile
	}
	if lvl := NormalizeLogLevel(string(cfg.Logging.Level)); lvl != "" {
		cfg.Logging.Level = lvl
	} else {
		cfg.Logging.Level = LogLevelInfo
	}
	if f := NormalizeLogFormat(string(cfg.Logging.Format)); f != "" {
		cfg.Logging.Format = f
	} else {
		cfg.Logging.Format = LogFormatText
	}
	return nil
}

type journalDefaults struct{}

func (journalDefaults) Domain() string { return "journal" }

func (journalDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Journal.NATSSubject == "" {
		cfg.Journal.NATSSubject = DefaultNATSSubject
	}
	if cfg.Journal.Buffer <= 0 {
		cfg.Journal.Buffer = DefaultJournalBuffer
	}
	if cfg.Schedule.Interval == "" {
		cfg.Schedule.Interval = DefaultScheduleInterval
	}
	return nil
}

var defaultAppliers = []DefaultApplier{
	buildDefaults{},
	resourceDefaults{},
	workDefaults{},
	loggingDefaults{},
	journalDefaults{},
}

// ApplyDefaults fills every unset field with its default value.
func ApplyDefaults(cfg *Config) error {
	for _, applier := range defaultAppliers {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

// FoundationDelayDuration returns the parsed foundation delay. Validate guarantees
// the value parses.
func (b BuildConfig) FoundationDelayDuration() time.Duration {
	d, _ := time.ParseDuration(b.FoundationDelay)
	return d
}

// UnitDuration returns the wall-clock length of one simulated work unit.
func (w WorkConfig) UnitDuration() time.Duration {
	d, _ := time.ParseDuration(w.Unit)
	return d
}

// IntervalDuration returns the serve-mode build interval.
func (s ScheduleConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(s.Interval)
	return d
}
