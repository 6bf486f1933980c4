// Package config loads bus settings from a YAML file.
//
// A file looks like:
//
//	retransmit_interval_ms: 100
//	total_deadline_ms: 250
//	fallback_allowed: false
//	benign_reasons: [busy, in_progress, battery_low]
//	kinds:
//	  "0x40":
//	    total_deadline_ms: 1000
//	    fallback_allowed: true
//	capabilities:
//	  "3": ["0x21", "0x22"]
//	log_level: info
//	port: /dev/ttyUSB0
//	baud: 115200
//
// Every key is optional; missing keys keep the value of Defaults.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/arloliu/go-peribus/bus"
	"github.com/arloliu/go-peribus/logger"
	"github.com/arloliu/go-peribus/message"
	"github.com/arloliu/go-peribus/retry"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the file representation of the bus settings.
type Config struct {
	RetransmitIntervalMs int      `yaml:"retransmit_interval_ms"`
	TotalDeadlineMs      int      `yaml:"total_deadline_ms"`
	FallbackAllowed      bool     `yaml:"fallback_allowed"`
	BenignReasons        []string `yaml:"benign_reasons"`

	// Kinds overrides the policy per message type, keyed by "0x21" or "33".
	Kinds map[string]KindConfig `yaml:"kinds,omitempty"`

	// Capabilities lists the message types each endpoint understands,
	// keyed by endpoint id. Endpoints not listed accept every type.
	Capabilities map[string][]string `yaml:"capabilities,omitempty"`

	LogLevel string `yaml:"log_level"`
	Port     string `yaml:"port,omitempty"`
	Baud     int    `yaml:"baud"`
}

// KindConfig overrides part of the policy for one message type.
// Unset fields inherit the top-level values.
type KindConfig struct {
	RetransmitIntervalMs *int  `yaml:"retransmit_interval_ms,omitempty"`
	TotalDeadlineMs      *int  `yaml:"total_deadline_ms,omitempty"`
	FallbackAllowed      *bool `yaml:"fallback_allowed,omitempty"`
}

// Defaults returns the configuration used when no file is given.
func Defaults() *Config {
	p := retry.DefaultPolicy()

	reasons := make([]string, 0, len(bus.DefaultBenignReasons))
	for _, r := range bus.DefaultBenignReasons {
		reasons = append(reasons, r.String())
	}

	return &Config{
		RetransmitIntervalMs: int(p.RetransmitInterval / time.Millisecond),
		TotalDeadlineMs:      int(p.TotalDeadline / time.Millisecond),
		FallbackAllowed:      p.FallbackAllowed,
		BenignReasons:        reasons,
		LogLevel:             "info",
		Baud:                 115200,
	}
}

// Load reads the YAML file at path on top of Defaults and validates it.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(), nil
		}

		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return cfg, nil
}

// Parse decodes YAML data on top of Defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}

	return nil
}

// Validate checks every value that the bus would otherwise reject.
func (c *Config) Validate() error {
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if _, err := c.Reasons(); err != nil {
		return err
	}

	for key, kind := range c.Kinds {
		if _, err := ParseType(key); err != nil {
			return err
		}
		if err := kind.apply(c.Policy()).Validate(); err != nil {
			return fmt.Errorf("%w: kind %s: %w", ErrInvalidConfig, key, err)
		}
	}

	if _, err := c.EndpointCapabilities(); err != nil {
		return err
	}

	if _, err := c.Level(); err != nil {
		return err
	}

	if c.Baud < 0 {
		return fmt.Errorf("%w: baud %d must not be negative", ErrInvalidConfig, c.Baud)
	}

	return nil
}

// Policy returns the default retry policy described by the file.
func (c *Config) Policy() retry.Policy {
	return retry.Policy{
		RetransmitInterval: time.Duration(c.RetransmitIntervalMs) * time.Millisecond,
		TotalDeadline:      time.Duration(c.TotalDeadlineMs) * time.Millisecond,
		FallbackAllowed:    c.FallbackAllowed,
	}
}

// Reasons returns the parsed benign reasons.
func (c *Config) Reasons() ([]message.Reason, error) {
	reasons := make([]message.Reason, 0, len(c.BenignReasons))
	for _, name := range c.BenignReasons {
		r, err := message.ParseReason(name)
		if err != nil {
			return nil, fmt.Errorf("%w: benign_reasons: %w", ErrInvalidConfig, err)
		}
		reasons = append(reasons, r)
	}

	return reasons, nil
}

// Level returns the parsed log level.
func (c *Config) Level() (logger.Level, error) {
	level, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		return logger.InfoLevel, fmt.Errorf("%w: log_level: %w", ErrInvalidConfig, err)
	}

	return level, nil
}

// EndpointCapabilities returns the parsed capability table.
func (c *Config) EndpointCapabilities() (map[bus.EndpointID][]message.Type, error) {
	caps := make(map[bus.EndpointID][]message.Type, len(c.Capabilities))
	for key, names := range c.Capabilities {
		id, err := ParseEndpoint(key)
		if err != nil {
			return nil, err
		}

		types := make([]message.Type, 0, len(names))
		for _, name := range names {
			t, err := ParseType(name)
			if err != nil {
				return nil, err
			}
			types = append(types, t)
		}
		caps[id] = types
	}

	return caps, nil
}

// BusOptions converts the configuration into options for bus.NewConfig.
// Logging is left to the caller.
func (c *Config) BusOptions() ([]bus.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	base := c.Policy()
	reasons, _ := c.Reasons()

	opts := []bus.Option{
		bus.WithPolicy(base),
		bus.WithBenignReasons(reasons...),
	}

	for _, key := range slices.Sorted(maps.Keys(c.Kinds)) {
		t, _ := ParseType(key)
		opts = append(opts, bus.WithKindPolicy(t, c.Kinds[key].apply(base)))
	}

	return opts, nil
}

func (k KindConfig) apply(base retry.Policy) retry.Policy {
	p := base
	if k.RetransmitIntervalMs != nil {
		p.RetransmitInterval = time.Duration(*k.RetransmitIntervalMs) * time.Millisecond
	}
	if k.TotalDeadlineMs != nil {
		p.TotalDeadline = time.Duration(*k.TotalDeadlineMs) * time.Millisecond
	}
	if k.FallbackAllowed != nil {
		p.FallbackAllowed = *k.FallbackAllowed
	}

	return p
}

// ParseType parses a message type written as "0x21" or "33".
func ParseType(s string) (message.Type, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: message type %q", ErrInvalidConfig, s)
	}

	return message.Type(v), nil
}

// ParseEndpoint parses an endpoint id written in decimal or with a 0x prefix.
func ParseEndpoint(s string) (bus.EndpointID, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: endpoint %q", ErrInvalidConfig, s)
	}

	return bus.EndpointID(v), nil
}
