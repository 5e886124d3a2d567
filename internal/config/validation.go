package config

import (
	"time"

	ferrors "git.home.luguber.info/inful/towerbuild/internal/foundation/errors"
)

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateBuild,
		c.validateResources,
		c.validateWork,
		c.validateSchedule,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateBuild() error {
	if c.Build.Floors < 1 {
		return invalid("build.floors", c.Build.Floors, "must be at least 1")
	}
	if c.Build.ApartmentsPerFloor < 1 {
		return invalid("build.apartments_per_floor", c.Build.ApartmentsPerFloor, "must be at least 1")
	}
	return validateDuration("build.foundation_delay", c.Build.FoundationDelay, true)
}

func (c *Config) validateResources() error {
	if c.Resources.MultiCranes < 1 {
		return invalid("resources.multi_cranes", c.Resources.MultiCranes, "must be at least 1")
	}
	if c.Resources.DoorWindowCrew < 1 {
		return invalid("resources.door_window_crew", c.Resources.DoorWindowCrew, "must be at least 1")
	}
	return nil
}

func (c *Config) validateWork() error {
	if c.Work.MinUnits < 0 {
		return invalid("work.min_units", c.Work.MinUnits, "must not be negative")
	}
	if c.Work.MaxUnits < c.Work.MinUnits {
		return invalid("work.max_units", c.Work.MaxUnits, "must not be below work.min_units")
	}
	return validateDuration("work.unit", c.Work.Unit, true)
}

func (c *Config) validateSchedule() error {
	return validateDuration("schedule.interval", c.Schedule.Interval, false)
}

func validateDuration(field, raw string, allowZero bool) error {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid duration").
			Fatal().
			WithContext("field", field).
			WithContext("value", raw).
			Build()
	}
	if d < 0 || (!allowZero && d == 0) {
		return invalid(field, raw, "must be positive")
	}
	return nil
}

func invalid(field string, value any, reason string) error {
	return ferrors.ConfigError(field+" "+reason).
		WithContext("field", field).
		WithContext("value", value).
		Build()
}
