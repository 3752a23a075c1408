package cli

import (
	"fmt"
	"os"

	"github.com/arrowtok/subword/wordpiece"
	"github.com/spf13/cobra"
)

var wordpieceCmd = &cobra.Command{
	Use:   "wordpiece",
	Short: "Apply a WordPiece vocabulary",
}

var (
	wordpieceVocabPath string
	wordpieceUnk       string
	wordpieceThreads   int
)

func init() {
	encodeCmd := &cobra.Command{
		Use:   "encode [text]",
		Short: "Encode text using a WordPiece vocabulary file",
		Args:  cobra.ExactArgs(1),
		RunE:  runWordPieceEncode,
	}
	encodeCmd.Flags().StringVar(&wordpieceVocabPath, "vocab", "", "path to a newline-delimited vocabulary file (required)")
	encodeCmd.Flags().StringVar(&wordpieceUnk, "unk", "[UNK]", "the vocabulary's unknown-token surface, empty to disable")
	encodeCmd.Flags().IntVar(&wordpieceThreads, "threads", 0, "worker thread count (0 = hardware concurrency)")
	encodeCmd.MarkFlagRequired("vocab")

	wordpieceCmd.AddCommand(encodeCmd)
}

func runWordPieceEncode(cmd *cobra.Command, args []string) error {
	f, err := os.Open(wordpieceVocabPath)
	if err != nil {
		return fmt.Errorf("opening vocabulary: %w", err)
	}
	defer f.Close()

	vocab, err := wordpiece.LoadVocabulary(f, newLogger())
	if err != nil {
		return fmt.Errorf("loading vocabulary: %w", err)
	}

	enc, err := wordpiece.NewEncoder(vocab, wordpieceUnk, wordpieceThreads)
	if err != nil {
		return fmt.Errorf("building encoder: %w", err)
	}
	defer enc.Close()

	ids, subwords, err := enc.EncodeSubwords(args[0])
	if err != nil {
		return fmt.Errorf("encoding: %w", err)
	}

	printIDsAndSubwords(ids, subwords)
	return nil
}
