// Package config loads subword's run configuration: vocabulary size,
// character coverage, thread count, and special token ids.
package config

import (
	"os"

	"github.com/arrowtok/subword/bpe"
	"github.com/arrowtok/subword/status"
	"gopkg.in/yaml.v3"
)

// SpecialTokens mirrors bpe.SpecialTokens in YAML-friendly form. A value
// of -1 disables that token.
type SpecialTokens struct {
	Pad int `yaml:"pad"`
	Unk int `yaml:"unk"`
	Bos int `yaml:"bos"`
	Eos int `yaml:"eos"`
}

// ToBPE converts to the bpe package's equivalent type.
func (s SpecialTokens) ToBPE() bpe.SpecialTokens {
	return bpe.SpecialTokens{Pad: s.Pad, Unk: s.Unk, Bos: s.Bos, Eos: s.Eos}
}

// Config is subword's run configuration, loaded from an optional YAML file.
type Config struct {
	VocabSize     int           `yaml:"vocab_size"`
	Coverage      float64       `yaml:"coverage"`
	NThreads      int           `yaml:"n_threads"`
	SpecialTokens SpecialTokens `yaml:"special_tokens"`
}

// DefaultConfig returns subword's built-in defaults: an 8000-entry
// vocabulary, 0.9995 character coverage, hardware-concurrency threading, and
// only the unk token enabled.
func DefaultConfig() Config {
	return Config{
		VocabSize: 8000,
		Coverage:  0.9995,
		NThreads:  0,
		SpecialTokens: SpecialTokens{
			Pad: -1,
			Unk: 0,
			Bos: -1,
			Eos: -1,
		},
	}
}

// Validate checks the configuration for values the learner and encoder
// cannot recover from.
func (c Config) Validate() error {
	if c.VocabSize <= 0 {
		return status.Configf("vocab_size must be positive, got %d", c.VocabSize)
	}
	if c.Coverage <= 0 || c.Coverage > 1 {
		return status.Configf("coverage must be in (0, 1], got %v", c.Coverage)
	}
	if c.NThreads < 0 {
		return status.Configf("n_threads must be >= 0, got %d", c.NThreads)
	}
	return nil
}

// Load reads and parses a single YAML config file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, status.WrapIO(err, "reading config file %q", path)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, status.Malformedf("parsing config file %q: %v", path, err)
	}
	return cfg, nil
}

// LoadFromPaths tries each path in order, returning the first one that
// exists. If none exist, it returns DefaultConfig with no error — an
// absent config file is not a failure, matching the CLI's "config is
// optional" contract.
func LoadFromPaths(paths ...string) (Config, error) {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return Load(p)
		}
	}
	return DefaultConfig(), nil
}

// Save writes the configuration to path as YAML.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return status.Malformedf("marshaling config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return status.WrapIO(err, "writing config file %q", path)
	}
	return nil
}
