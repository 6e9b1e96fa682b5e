package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all bitrot configuration.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	Quota   QuotaConfig   `toml:"quota"`
	Decay   DecayConfig   `toml:"decay"`
	Aging   AgingConfig   `toml:"aging"`
	Loader  LoaderConfig  `toml:"loader"`
	Random  RandomConfig  `toml:"random"`
	Server  ServerConfig  `toml:"server"`
	LLM     LLMConfig     `toml:"llm"`
	Chat    ChatConfig    `toml:"chat"`
	Journal JournalConfig `toml:"journal"`
	Seed    SeedConfig    `toml:"seed"`
}

type StorageConfig struct {
	Backend string `toml:"backend"` // "dir" or "sqlite"
	Dir     string `toml:"dir"`     // memory bank directory for the dir backend
	DBPath  string `toml:"db_path"` // sqlite file; also holds the journal
}

type QuotaConfig struct {
	MaxRegular int `toml:"max_regular"`
}

type DecayConfig struct {
	FileProbability float64 `toml:"file_probability"`
	CharProbability float64 `toml:"char_probability"`
}

// AgingConfig parameterizes the two saturating curves of age-weighted decay.
type AgingConfig struct {
	ChanceBase   float64 `toml:"chance_base"`
	ChanceGrowth float64 `toml:"chance_growth"` // per day
	ChanceCap    float64 `toml:"chance_cap"`
	RateBase     float64 `toml:"rate_base"`
	RateGrowth   float64 `toml:"rate_growth"` // per day
	RateCap      float64 `toml:"rate_cap"`
}

type LoaderConfig struct {
	DefaultN int `toml:"default_n"`
}

type RandomConfig struct {
	Seed int64 `toml:"seed"` // 0 seeds from the clock
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type LLMConfig struct {
	Provider     string `toml:"provider"` // "ollama", "anthropic", "claude-cli", "mock"
	Model        string `toml:"model"`    // anthropic / claude-cli model; empty uses the provider default
	OllamaURL    string `toml:"ollama_url"`
	OllamaModel  string `toml:"ollama_model"`
	AnthropicKey string `toml:"anthropic_key"`
	Timeout      int    `toml:"timeout"` // seconds
}

type ChatConfig struct {
	DecayEvery int    `toml:"decay_every"` // interactions between decay cycles
	AgingEvery int    `toml:"aging_every"` // interactions between aging cycles
	LogPath    string `toml:"log_path"`
	Sounds     bool   `toml:"sounds"`
}

type JournalConfig struct {
	Enabled bool `toml:"enabled"`
}

type SeedConfig struct {
	File string `toml:"file"` // YAML seed set; empty uses the built-in one
	Auto bool   `toml:"auto"` // seed on open when no core records exist
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Backend: "dir",
			Dir:     "", // resolved at runtime via store.DefaultDir()
			DBPath:  "", // resolved at runtime via store.DefaultDBPath()
		},
		Quota: QuotaConfig{MaxRegular: 100},
		Decay: DecayConfig{
			FileProbability: 0.05,
			CharProbability: 0.10,
		},
		Aging: AgingConfig{
			ChanceBase:   0.02,
			ChanceGrowth: 0.01,
			ChanceCap:    0.30,
			RateBase:     0.05,
			RateGrowth:   0.02,
			RateCap:      0.40,
		},
		Loader: LoaderConfig{DefaultN: 3},
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37778,
		},
		LLM: LLMConfig{
			Provider:    "ollama",
			OllamaURL:   "http://localhost:11434",
			OllamaModel: "llama3",
			Timeout:     120,
		},
		Chat: ChatConfig{
			DecayEvery: 10,
			AgingEvery: 30,
			LogPath:    "chat_history.txt",
			Sounds:     true,
		},
		Journal: JournalConfig{Enabled: true},
		Seed:    SeedConfig{Auto: true},
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// DefaultPath returns $BITROT_CONFIG, or ~/.bitrot/config.toml.
func DefaultPath() (string, error) {
	if p := os.Getenv("BITROT_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".bitrot", "config.toml"), nil
}

// Load reads the TOML file at path over the defaults, applies environment
// overrides and validates the result. An empty path means DefaultPath, which
// may be absent.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = p
		explicit = os.Getenv("BITROT_CONFIG") != ""
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// defaults only
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.expandPaths(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("BITROT_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("BITROT_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("BITROT_DB"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("BITROT_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return &ConfigError{Field: "BITROT_SEED", Reason: fmt.Sprintf("not an integer: %q", v)}
		}
		c.Random.Seed = seed
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && c.LLM.AnthropicKey == "" {
		c.LLM.AnthropicKey = v
	}
	return nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Storage.Dir, &c.Storage.DBPath, &c.Chat.LogPath, &c.Seed.File} {
		expanded, err := ExpandHome(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
