package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arloliu/go-peribus/bus"
	"github.com/arloliu/go-peribus/logger"
	"github.com/arloliu/go-peribus/message"
	"github.com/arloliu/go-peribus/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
retransmit_interval_ms: 50
total_deadline_ms: 400
benign_reasons: [busy, 0x05]
kinds:
  "0x40":
    total_deadline_ms: 1000
    fallback_allowed: true
  "33":
    retransmit_interval_ms: 20
capabilities:
  "3": ["0x21", "34"]
log_level: debug
port: /dev/ttyUSB1
baud: 57600
`

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, retry.DefaultPolicy(), cfg.Policy())
	assert.Equal(t, []string{"busy", "in_progress", "battery_low"}, cfg.BenignReasons)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, logger.InfoLevel, level)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, retry.Policy{RetransmitInterval: 50 * time.Millisecond, TotalDeadline: 400 * time.Millisecond}, cfg.Policy())
	assert.Equal(t, "/dev/ttyUSB1", cfg.Port)
	assert.Equal(t, 57600, cfg.Baud)

	reasons, err := cfg.Reasons()
	require.NoError(t, err)
	assert.Equal(t, []message.Reason{message.ReasonBusy, message.ReasonNotPermitted}, reasons)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, logger.DebugLevel, level)

	caps, err := cfg.EndpointCapabilities()
	require.NoError(t, err)
	assert.Equal(t, map[bus.EndpointID][]message.Type{3: {0x21, 0x22}}, caps)
}

func TestParse_KeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := Parse([]byte("port: COM3\n"))
	require.NoError(t, err)

	assert.Equal(t, retry.DefaultPolicy(), cfg.Policy())
	assert.Equal(t, Defaults().BenignReasons, cfg.BenignReasons)
	assert.Equal(t, 115200, cfg.Baud)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"syntax", "retransmit_interval_ms: [1"},
		{"zero deadline", "total_deadline_ms: 0"},
		{"interval above deadline", "retransmit_interval_ms: 500"},
		{"unknown reason", "benign_reasons: [sleepy]"},
		{"bad kind key", "kinds:\n  \"0x1FF\": {}"},
		{"bad kind policy", "kinds:\n  \"0x21\":\n    retransmit_interval_ms: 0"},
		{"bad capability endpoint", "capabilities:\n  \"x\": [\"0x21\"]"},
		{"bad capability type", "capabilities:\n  \"1\": [\"300\"]"},
		{"bad log level", "log_level: loud"},
		{"negative baud", "baud: -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestBusOptions(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	opts, err := cfg.BusOptions()
	require.NoError(t, err)

	busCfg, err := bus.NewConfig(opts...)
	require.NoError(t, err)

	assert.Equal(t, cfg.Policy(), busCfg.Policy())
	assert.Equal(t, retry.Policy{
		RetransmitInterval: 50 * time.Millisecond,
		TotalDeadline:      time.Second,
		FallbackAllowed:    true,
	}, busCfg.PolicyFor(0x40))
	assert.Equal(t, retry.Policy{
		RetransmitInterval: 20 * time.Millisecond,
		TotalDeadline:      400 * time.Millisecond,
	}, busCfg.PolicyFor(0x21))
	assert.Equal(t, cfg.Policy(), busCfg.PolicyFor(0x22))

	assert.True(t, busCfg.IsBenign(message.ReasonBusy))
	assert.True(t, busCfg.IsBenign(message.ReasonNotPermitted))
	assert.False(t, busCfg.IsBenign(message.ReasonBatteryLow))
}

func TestBusOptions_NoBenignReasons(t *testing.T) {
	cfg, err := Parse([]byte("benign_reasons: []"))
	require.NoError(t, err)

	opts, err := cfg.BusOptions()
	require.NoError(t, err)
	busCfg, err := bus.NewConfig(opts...)
	require.NoError(t, err)

	for _, r := range bus.DefaultBenignReasons {
		assert.False(t, busCfg.IsBenign(r))
	}
}

func TestLoadSave(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)

	path := filepath.Join(dir, "peribus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 57600, cfg.Baud)

	out := filepath.Join(dir, "saved.yaml")
	require.NoError(t, cfg.Save(out))

	reloaded, err := Load(out)
	require.NoError(t, err)
	assert.Equal(t, cfg, reloaded)

	require.NoError(t, os.WriteFile(path, []byte("log_level: loud"), 0o600))
	_, err = Load(path)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("0x21")
	require.NoError(t, err)
	assert.Equal(t, message.Type(0x21), typ)

	typ, err = ParseType("255")
	require.NoError(t, err)
	assert.Equal(t, message.Type(0xFF), typ)

	_, err = ParseType("256")
	require.ErrorIs(t, err, ErrInvalidConfig)

	id, err := ParseEndpoint("0x7FFF")
	require.NoError(t, err)
	assert.Equal(t, bus.EndpointID(0x7FFF), id)
}
