// Package cli wires subword's cobra command tree: bpe train/encode/decode/vocab
// and wordpiece encode, sharing a persistent --config/--verbose flag pair.
package cli

import (
	"fmt"

	"github.com/arrowtok/subword/internal/config"
	"github.com/arrowtok/subword/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "subword",
	Short: "A byte-pair-encoding and WordPiece subword tokenizer",
	Long: `subword trains and applies byte-pair-encoding and WordPiece
subword vocabularies over UTF-8 text.

Usage:
  subword bpe train --input corpus.txt --model model.bin --vocab-size 8000
  subword bpe encode --model model.bin "hello world"
  subword wordpiece encode --vocab vocab.txt "unbelievable"`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a subword.yaml config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(bpeCmd)
	rootCmd.AddCommand(wordpieceCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command; callers should exit non-zero on error.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() config.Config {
	var cfg config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadFromPaths("subword.local.yaml", "subword.yaml")
	}
	if err != nil {
		fmt.Println(styles.Warning.Render(fmt.Sprintf("could not load config, using defaults: %v", err)))
		return config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		fmt.Println(styles.Warning.Render(fmt.Sprintf("invalid config, using defaults: %v", err)))
		return config.DefaultConfig()
	}
	return cfg
}

func newLogger() *zap.Logger {
	return logging.New(verbose)
}
