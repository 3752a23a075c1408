// Command subword trains and applies byte-pair-encoding and WordPiece
// subword tokenizers.
package main

import (
	"os"

	"github.com/arrowtok/subword/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
