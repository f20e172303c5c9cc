package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "focusd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "database:\n  path: /tmp/test.db\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "X-Owner-ID", cfg.Server.OwnerHeader)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeoutDuration())
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, RetryBackoffLinear, cfg.Database.BusyRetry.Backoff)
	assert.Equal(t, 3, cfg.Database.BusyRetry.MaxAttempts)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
	assert.Equal(t, "focusd", cfg.Events.SubjectPrefix)
	assert.Equal(t, 15*time.Minute, cfg.Maintenance.CheckpointIntervalDuration())
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("FOCUSD_DB_PATH", "/data/focusd.db")
	path := writeConfig(t, "database:\n  path: ${FOCUSD_DB_PATH}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/focusd.db", cfg.Database.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsBadBackoff(t *testing.T) {
	path := writeConfig(t, "database:\n  path: a.db\n  busy_retry:\n    backoff: bogus\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "busy_retry.backoff")
}

func TestValidateRejectsInvertedDelays(t *testing.T) {
	path := writeConfig(t, "database:\n  path: a.db\n  busy_retry:\n    base_delay: 1s\n    max_delay: 100ms\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_delay")
}

func TestValidateRejectsBadSummaryTime(t *testing.T) {
	path := writeConfig(t, "database:\n  path: a.db\nmaintenance:\n  summary_time: \"25:00\"\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "summary_time")
}

func TestValidateEventsRequireURL(t *testing.T) {
	path := writeConfig(t, "database:\n  path: a.db\nevents:\n  enabled: true\n  url: \"\"\n")
	_, err := Load(path)
	// URL default fills in before validation, so an explicit empty string
	// still passes through applyDefaults. Force it empty to exercise the check.
	require.NoError(t, err)

	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Events.Enabled = true
	cfg.Events.URL = ""
	require.Error(t, cfg.Validate())
}

func TestNormalizeLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, NormalizeLogLevel(" DEBUG "))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("nonsense"))
}

func TestSummaryClock(t *testing.T) {
	m := MaintenanceConfig{SummaryTime: "07:30"}
	h, min := m.SummaryClock()
	assert.Equal(t, 7, h)
	assert.Equal(t, 30, min)
}

func TestInitRefusesOverwrite(t *testing.T) {
	path := writeConfig(t, "database:\n  path: a.db\n")
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "focusd.db", cfg.Database.Path)
}
