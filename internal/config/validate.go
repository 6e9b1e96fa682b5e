package config

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalid matches every *ConfigError.
var ErrInvalid = errors.New("invalid config")

// ConfigError names the offending field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalid }

// Validate checks every section and returns the first problem as a
// *ConfigError.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "dir", "sqlite":
	default:
		return &ConfigError{Field: "storage.backend", Reason: fmt.Sprintf("unknown backend %q (want dir or sqlite)", c.Storage.Backend)}
	}

	if c.Quota.MaxRegular < 0 {
		return &ConfigError{Field: "quota.max_regular", Reason: "must be >= 0"}
	}

	probs := []struct {
		field string
		v     float64
	}{
		{"decay.file_probability", c.Decay.FileProbability},
		{"decay.char_probability", c.Decay.CharProbability},
		{"aging.chance_base", c.Aging.ChanceBase},
		{"aging.chance_cap", c.Aging.ChanceCap},
		{"aging.rate_base", c.Aging.RateBase},
		{"aging.rate_cap", c.Aging.RateCap},
	}
	for _, p := range probs {
		if err := CheckProbability(p.field, p.v); err != nil {
			return err
		}
	}
	if !finiteNonNegative(c.Aging.ChanceGrowth) {
		return &ConfigError{Field: "aging.chance_growth", Reason: "must be a finite number >= 0"}
	}
	if !finiteNonNegative(c.Aging.RateGrowth) {
		return &ConfigError{Field: "aging.rate_growth", Reason: "must be a finite number >= 0"}
	}

	if c.Loader.DefaultN < 1 {
		return &ConfigError{Field: "loader.default_n", Reason: "must be >= 1"}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Reason: fmt.Sprintf("%d out of range", c.Server.Port)}
	}

	switch c.LLM.Provider {
	case "ollama", "anthropic", "claude-cli", "mock":
	default:
		return &ConfigError{Field: "llm.provider", Reason: fmt.Sprintf("unknown provider %q", c.LLM.Provider)}
	}

	if c.Chat.DecayEvery < 1 {
		return &ConfigError{Field: "chat.decay_every", Reason: "must be >= 1"}
	}
	if c.Chat.AgingEvery < 1 {
		return &ConfigError{Field: "chat.aging_every", Reason: "must be >= 1"}
	}
	return nil
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}

// CheckProbability reports a *ConfigError unless v is in [0, 1].
func CheckProbability(field string, v float64) error {
	// NaN fails both comparisons, so test the accepted range.
	if !(v >= 0 && v <= 1) {
		return &ConfigError{Field: field, Reason: fmt.Sprintf("%v not in [0, 1]", v)}
	}
	return nil
}
