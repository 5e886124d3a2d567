package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/towerbuild/internal/foundation/errors"
)

func TestParse_EmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	require.NoError(t, err)

	assert.Equal(t, DefaultFloors, cfg.Build.Floors)
	assert.Equal(t, DefaultApartmentsPerFloor, cfg.Build.ApartmentsPerFloor)
	assert.Equal(t, 2*time.Second, cfg.Build.FoundationDelayDuration())
	assert.Equal(t, 3, cfg.Resources.MultiCranes)
	assert.Equal(t, 2, cfg.Resources.DoorWindowCrew)
	assert.Equal(t, 100, cfg.Work.MinUnits)
	assert.Equal(t, 500, cfg.Work.MaxUnits)
	assert.Equal(t, time.Millisecond, cfg.Work.UnitDuration())
	assert.Equal(t, DefaultLogFile, cfg.Logging.File)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
	assert.True(t, cfg.Logging.ColorEnabled())
	assert.Equal(t, time.Minute, cfg.Schedule.IntervalDuration())
}

func TestParse_OverridesAndEnvExpansion(t *testing.T) {
	t.Setenv("TOWER_LOG", "/tmp/tower.log")
	cfg, err := Parse([]byte(`
build:
  floors: 3
  apartments_per_floor: 6
  foundation_delay: 0s
resources:
  multi_cranes: 1
work:
  min_units: 0
  max_units: 5
  unit: 100us
logging:
  file: ${TOWER_LOG}
  level: DEBUG
  format: json
  color: false
`))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Build.Floors)
	assert.Equal(t, 6, cfg.Build.ApartmentsPerFloor)
	assert.Equal(t, time.Duration(0), cfg.Build.FoundationDelayDuration())
	assert.Equal(t, 1, cfg.Resources.MultiCranes)
	assert.Equal(t, DefaultDoorWindowCrew, cfg.Resources.DoorWindowCrew)
	assert.Equal(t, 100*time.Microsecond, cfg.Work.UnitDuration())
	assert.Equal(t, "/tmp/tower.log", cfg.Logging.File)
	assert.Equal(t, LogLevelDebug, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
	assert.False(t, cfg.Logging.ColorEnabled())
}

func TestParse_EnvLogLevelOverride(t *testing.T) {
	t.Setenv(EnvLogLevel, "warn")
	cfg, err := Parse([]byte("logging:\n  level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, LogLevelWarn, cfg.Logging.Level)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"negative floors", "build:\n  floors: -1\n", "build.floors"},
		{"negative apartments", "build:\n  apartments_per_floor: -2\n", "build.apartments_per_floor"},
		{"bad delay", "build:\n  foundation_delay: soon\n", "build.foundation_delay"},
		{"negative crew", "resources:\n  door_window_crew: -1\n", "resources.door_window_crew"},
		{"inverted range", "work:\n  min_units: 50\n  max_units: 10\n", "work.max_units"},
		{"negative min", "work:\n  min_units: -5\n  max_units: 10\n", "work.min_units"},
		{"zero interval", "schedule:\n  interval: 0s\n", "schedule.interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			classified, ok := ferrors.AsClassified(err)
			require.True(t, ok)
			assert.Equal(t, ferrors.CategoryConfig, classified.Category())
			field, _ := classified.Context().GetString("field")
			assert.Equal(t, tt.field, field)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestInitThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "towerbuild.yaml")
	require.NoError(t, Init(path, false))

	err := Init(path, false)
	require.Error(t, err, "second init without force must refuse to overwrite")
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_DotEnvDoesNotOverrideProcessEnv(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, os.WriteFile(".env", []byte("TOWER_FLOORS=7\nTOWER_CRANES=2\n"), 0o600))
	t.Setenv("TOWER_CRANES", "1")

	path := filepath.Join(dir, "towerbuild.yaml")
	require.NoError(t, os.WriteFile(path, []byte("build:\n  floors: ${TOWER_FLOORS}\nresources:\n  multi_cranes: ${TOWER_CRANES}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Build.Floors)
	assert.Equal(t, 1, cfg.Resources.MultiCranes)
	t.Cleanup(func() { _ = os.Unsetenv("TOWER_FLOORS") })
}
