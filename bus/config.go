package bus

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-peribus/logger"
	"github.com/arloliu/go-peribus/message"
	"github.com/arloliu/go-peribus/retry"
)

// DefaultBenignReasons are the Nack reasons that describe an expected,
// transient condition and are therefore logged at debug level only.
var DefaultBenignReasons = []message.Reason{
	message.ReasonBusy,
	message.ReasonInProgress,
	message.ReasonBatteryLow,
}

// Config holds the configuration of a Bus. Build it with NewConfig.
type Config struct {
	policy       retry.Policy
	kindPolicies map[message.Type]retry.Policy
	fallback     map[message.Type]struct{}
	benign       map[message.Reason]struct{}
	seqGen       *message.SeqGenerator
	logger       logger.Logger
}

// NewConfig creates a bus configuration from the defaults and opts, applied in order.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		policy:       retry.DefaultPolicy(),
		kindPolicies: make(map[message.Type]retry.Policy),
		fallback:     make(map[message.Type]struct{}),
		benign:       make(map[message.Reason]struct{}),
		logger:       logger.GetLogger(),
	}
	for _, r := range DefaultBenignReasons {
		cfg.benign[r] = struct{}{}
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.seqGen == nil {
		cfg.seqGen = message.NewSeqGenerator()
	}

	return cfg, nil
}

// Policy returns the default policy used for kinds without an override.
func (cfg *Config) Policy() retry.Policy { return cfg.policy }

// PolicyFor returns the effective policy for command kind t. Kinds named by
// WithFallbackAllowed always have FallbackAllowed set.
func (cfg *Config) PolicyFor(t message.Type) retry.Policy {
	p, ok := cfg.kindPolicies[t]
	if !ok {
		p = cfg.policy
	}
	if _, ok := cfg.fallback[t]; ok {
		p.FallbackAllowed = true
	}

	return p
}

// IsBenign reports whether Nacks with reason r are expected and kept out of
// warning-level logs.
func (cfg *Config) IsBenign(r message.Reason) bool {
	_, ok := cfg.benign[r]
	return ok
}

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// --- Option ---

// Option is a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithPolicy sets the default retry policy for all command kinds.
func WithPolicy(p retry.Policy) Option {
	return optFunc(func(cfg *Config) error {
		if err := p.Validate(); err != nil {
			return err
		}
		cfg.policy = p

		return nil
	})
}

// WithKindPolicy overrides the retry policy of command kind t.
func WithKindPolicy(t message.Type, p retry.Policy) Option {
	return optFunc(func(cfg *Config) error {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("bus: kind %s: %w", t, err)
		}
		cfg.kindPolicies[t] = p

		return nil
	})
}

// WithFallbackAllowed enables the compatibility fallback for the given kinds,
// regardless of the policies set before or after it.
func WithFallbackAllowed(types ...message.Type) Option {
	return optFunc(func(cfg *Config) error {
		for _, t := range types {
			cfg.fallback[t] = struct{}{}
		}

		return nil
	})
}

// WithBenignReasons replaces the set of Nack reasons that are not logged at
// warning level.
func WithBenignReasons(reasons ...message.Reason) Option {
	return optFunc(func(cfg *Config) error {
		cfg.benign = make(map[message.Reason]struct{}, len(reasons))
		for _, r := range reasons {
			cfg.benign[r] = struct{}{}
		}

		return nil
	})
}

// WithSeqGenerator sets the sequence generator of the logical connection.
func WithSeqGenerator(gen *message.SeqGenerator) Option {
	return optFunc(func(cfg *Config) error {
		if gen == nil {
			return errors.New("bus: sequence generator must not be nil")
		}
		cfg.seqGen = gen

		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("bus: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
