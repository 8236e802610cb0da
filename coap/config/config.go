// Package coapconfig decodes host-supplied tunables into the five RFC 7252
// constants §6 enumerates, plus the scheduler's worker-pool size. The core
// owns no CLI and no file format (spec §6): this package is the single
// narrow seam a host application's own config layer (YAML, JSON, env —
// whatever it already uses) decodes into, via a plain
// map[string]interface{}, matching the teacher's client/config.go plus
// util/schema's use of github.com/mitchellh/mapstructure.
package coapconfig

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/oakmoss/coapcore/coap"
)

// Config holds every tunable the core exposes.
type Config struct {
	AckTimeoutMS     int64   `mapstructure:"ack_timeout_ms"`
	AckRandomFactor  float64 `mapstructure:"ack_random_factor"`
	MaxRetransmit    int     `mapstructure:"max_retransmit"`
	ExchangeLifeMS   int64   `mapstructure:"exchange_lifetime_ms"`
	MaxTokenLength   int     `mapstructure:"max_token_length"`
	SchedulerWorkers int     `mapstructure:"scheduler_workers"`
}

// AckTimeout returns AckTimeoutMS as a time.Duration.
func (c Config) AckTimeout() time.Duration {
	return time.Duration(c.AckTimeoutMS) * time.Millisecond
}

// ExchangeLifetime returns ExchangeLifeMS as a time.Duration.
func (c Config) ExchangeLifetime() time.Duration {
	return time.Duration(c.ExchangeLifeMS) * time.Millisecond
}

// Default returns the RFC 7252 §4.8 defaults (spec §6).
func Default() Config {
	return Config{
		AckTimeoutMS:     coap.AckTimeout.Milliseconds(),
		AckRandomFactor:  coap.AckRandomFactor,
		MaxRetransmit:    coap.MaxRetransmit,
		ExchangeLifeMS:   coap.ExchangeLifetime.Milliseconds(),
		MaxTokenLength:   coap.MaxTokenLengthDefault,
		SchedulerWorkers: 4,
	}
}

// FromMap decodes m (e.g. parsed from a host's own YAML/JSON/env layer)
// over the RFC 7252 defaults and validates the result.
func FromMap(m map[string]interface{}) (Config, error) {
	cfg := Default()
	if err := mapstructure.Decode(m, &cfg); err != nil {
		return Config{}, fmt.Errorf("coapconfig: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects nonsensical tunables: zero/negative durations or a
// token length outside the wire-legal [0,8] range.
func (c Config) Validate() error {
	if c.AckTimeoutMS <= 0 {
		return fmt.Errorf("coapconfig: ack_timeout_ms must be positive, got %d", c.AckTimeoutMS)
	}
	if c.AckRandomFactor < 1.0 {
		return fmt.Errorf("coapconfig: ack_random_factor must be >= 1.0, got %f", c.AckRandomFactor)
	}
	if c.MaxRetransmit < 0 {
		return fmt.Errorf("coapconfig: max_retransmit must be >= 0, got %d", c.MaxRetransmit)
	}
	if c.ExchangeLifeMS <= 0 {
		return fmt.Errorf("coapconfig: exchange_lifetime_ms must be positive, got %d", c.ExchangeLifeMS)
	}
	if c.MaxTokenLength < 0 || c.MaxTokenLength > coap.MaxTokenLength {
		return fmt.Errorf("coapconfig: max_token_length must be in [0,%d], got %d", coap.MaxTokenLength, c.MaxTokenLength)
	}
	if c.SchedulerWorkers <= 0 {
		return fmt.Errorf("coapconfig: scheduler_workers must be positive, got %d", c.SchedulerWorkers)
	}
	return nil
}
