package cli

import (
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/arrowtok/subword/bpe"
	"github.com/arrowtok/subword/internal/config"
	"github.com/spf13/cobra"
)

var bpeCmd = &cobra.Command{
	Use:   "bpe",
	Short: "Train and apply byte-pair-encoding models",
}

var (
	bpeInputPath   string
	bpeModelPath   string
	bpeVocabSize   int
	bpeCoverage    float64
	bpeThreads     int
	bpePadID       int
	bpeUnkID       int
	bpeBosID       int
	bpeEosID       int
	bpeAddBOS      bool
	bpeAddEOS      bool
	bpeReverse     bool
	bpeDropout     float64
	bpeDropoutSeed int64
)

func init() {
	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Learn a BPE model from training text",
		RunE:  runBPETrain,
	}
	trainCmd.Flags().StringVar(&bpeInputPath, "input", "", "path to UTF-8 training text (required)")
	trainCmd.Flags().StringVar(&bpeModelPath, "model", "", "path to write the learned model (required)")
	trainCmd.Flags().IntVar(&bpeVocabSize, "vocab-size", 8000, "target vocabulary size")
	trainCmd.Flags().Float64Var(&bpeCoverage, "coverage", 0.9995, "character coverage fraction")
	trainCmd.Flags().IntVar(&bpeThreads, "threads", 0, "worker thread count (0 = hardware concurrency)")
	trainCmd.Flags().IntVar(&bpePadID, "pad-id", -1, "pad token id, -1 to disable")
	trainCmd.Flags().IntVar(&bpeUnkID, "unk-id", 0, "unk token id, -1 to disable")
	trainCmd.Flags().IntVar(&bpeBosID, "bos-id", -1, "bos token id, -1 to disable")
	trainCmd.Flags().IntVar(&bpeEosID, "eos-id", -1, "eos token id, -1 to disable")
	trainCmd.MarkFlagRequired("input")
	trainCmd.MarkFlagRequired("model")

	encodeCmd := &cobra.Command{
		Use:   "encode [text]",
		Short: "Encode text using a trained model",
		Args:  cobra.ExactArgs(1),
		RunE:  runBPEEncode,
	}
	encodeCmd.Flags().StringVar(&bpeModelPath, "model", "", "path to a trained model (required)")
	encodeCmd.Flags().BoolVar(&bpeAddBOS, "bos", false, "prepend the bos token")
	encodeCmd.Flags().BoolVar(&bpeAddEOS, "eos", false, "append the eos token")
	encodeCmd.Flags().BoolVar(&bpeReverse, "reverse", false, "reverse the output token order")
	encodeCmd.Flags().Float64Var(&bpeDropout, "dropout", 0, "BPE-dropout probability in [0,1]")
	encodeCmd.Flags().Int64Var(&bpeDropoutSeed, "dropout-seed", 1, "seed for the dropout PRNG")
	encodeCmd.MarkFlagRequired("model")

	decodeCmd := &cobra.Command{
		Use:   "decode [ids...]",
		Short: "Decode space-separated token ids back into text",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runBPEDecode,
	}
	decodeCmd.Flags().StringVar(&bpeModelPath, "model", "", "path to a trained model (required)")
	decodeCmd.MarkFlagRequired("model")

	vocabCmd := &cobra.Command{
		Use:   "vocab",
		Short: "Print a trained model's vocabulary",
		RunE:  runBPEVocab,
	}
	vocabCmd.Flags().StringVar(&bpeModelPath, "model", "", "path to a trained model (required)")
	vocabCmd.MarkFlagRequired("model")

	bpeCmd.AddCommand(trainCmd, encodeCmd, decodeCmd, vocabCmd)
}

func runBPETrain(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	fileCfg := loadConfig()
	applyConfigDefaults(cmd, fileCfg)

	raw, err := os.ReadFile(bpeInputPath)
	if err != nil {
		return fmt.Errorf("reading training text: %w", err)
	}

	cfg := bpe.TrainConfig{
		VocabSize: bpeVocabSize,
		Coverage:  bpeCoverage,
		NThreads:  bpeThreads,
		SpecialTokens: bpe.SpecialTokens{
			Pad: bpePadID,
			Unk: bpeUnkID,
			Bos: bpeBosID,
			Eos: bpeEosID,
		},
	}

	state, err := bpe.Train(raw, cfg, logger)
	if err != nil {
		return fmt.Errorf("training model: %w", err)
	}

	out, err := os.Create(bpeModelPath)
	if err != nil {
		return fmt.Errorf("creating model file: %w", err)
	}
	defer out.Close()

	if err := state.Dump(out); err != nil {
		return fmt.Errorf("writing model: %w", err)
	}

	fmt.Println(styles.Success.Render(fmt.Sprintf(
		"trained model with %d rules over a %d-character alphabet", len(state.Rules), state.AlphabetSize())))
	return nil
}

// applyConfigDefaults fills any bpe train flag the caller left at its
// zero/unchanged state from the loaded file config, so flags always win
// over config and config always wins over the built-in defaults.
func applyConfigDefaults(cmd *cobra.Command, fileCfg config.Config) {
	flags := cmd.Flags()
	if !flags.Changed("vocab-size") {
		bpeVocabSize = fileCfg.VocabSize
	}
	if !flags.Changed("coverage") {
		bpeCoverage = fileCfg.Coverage
	}
	if !flags.Changed("threads") {
		bpeThreads = fileCfg.NThreads
	}
	if !flags.Changed("pad-id") {
		bpePadID = fileCfg.SpecialTokens.Pad
	}
	if !flags.Changed("unk-id") {
		bpeUnkID = fileCfg.SpecialTokens.Unk
	}
	if !flags.Changed("bos-id") {
		bpeBosID = fileCfg.SpecialTokens.Bos
	}
	if !flags.Changed("eos-id") {
		bpeEosID = fileCfg.SpecialTokens.Eos
	}
}

func loadBPEEncoder(path string) (*bpe.Encoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model: %w", err)
	}
	defer f.Close()

	state, err := bpe.LoadState(f)
	if err != nil {
		return nil, fmt.Errorf("loading model: %w", err)
	}
	return bpe.NewEncoder(state, 0)
}

func runBPEEncode(cmd *cobra.Command, args []string) error {
	enc, err := loadBPEEncoder(bpeModelPath)
	if err != nil {
		return err
	}
	defer enc.Close()

	var opts []bpe.Option
	if bpeAddBOS {
		opts = append(opts, bpe.WithBOS())
	}
	if bpeAddEOS {
		opts = append(opts, bpe.WithEOS())
	}
	if bpeReverse {
		opts = append(opts, bpe.WithReverse())
	}
	if bpeDropout > 0 {
		opts = append(opts, bpe.WithDropout(bpeDropout, rand.New(rand.NewSource(bpeDropoutSeed))))
	}

	ids, subwords, err := enc.EncodeSubwords(args[0], opts...)
	if err != nil {
		return fmt.Errorf("encoding: %w", err)
	}

	printIDsAndSubwords(ids, subwords)
	return nil
}

func runBPEDecode(cmd *cobra.Command, args []string) error {
	enc, err := loadBPEEncoder(bpeModelPath)
	if err != nil {
		return err
	}
	defer enc.Close()

	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	text, err := enc.Decode(ids)
	if err != nil {
		return fmt.Errorf("decoding: %w", err)
	}
	fmt.Println(text)
	return nil
}

func runBPEVocab(cmd *cobra.Command, args []string) error {
	if verbose {
		f, err := os.Open(bpeModelPath)
		if err != nil {
			return fmt.Errorf("opening model: %w", err)
		}
		defer f.Close()
		state, err := bpe.LoadState(f)
		if err != nil {
			return fmt.Errorf("loading model: %w", err)
		}
		return state.DumpDebugYAML(os.Stdout)
	}

	enc, err := loadBPEEncoder(bpeModelPath)
	if err != nil {
		return err
	}
	defer enc.Close()

	for id, surface := range enc.Vocabulary() {
		fmt.Printf("%s\t%s\n", styles.Label.Render(fmt.Sprintf("%d", id)), styles.Value.Render(surface))
	}
	return nil
}

func printIDsAndSubwords(ids []uint32, subwords []string) {
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = fmt.Sprintf("%d", id)
	}
	fmt.Println(styles.Label.Render("ids:     ") + styles.Value.Render(strings.Join(strIDs, " ")))
	fmt.Println(styles.Label.Render("tokens:  ") + styles.Value.Render(strings.Join(subwords, " ")))
}

func parseIDs(args []string) ([]uint32, error) {
	ids := make([]uint32, 0, len(args))
	for _, a := range args {
		var v uint32
		if _, err := fmt.Sscanf(a, "%d", &v); err != nil {
			return nil, fmt.Errorf("parsing id %q: %w", a, err)
		}
		ids = append(ids, v)
	}
	return ids, nil
}
