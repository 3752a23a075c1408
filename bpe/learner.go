package bpe

import (
	"sort"
	"sync"

	"github.com/arrowtok/subword/alphabet"
	"github.com/arrowtok/subword/codec"
	"github.com/arrowtok/subword/status"
	"go.uber.org/zap"
)

// TrainConfig configures a single BPE learning run.
type TrainConfig struct {
	// VocabSize is the target total vocabulary size: special tokens +
	// base alphabet + learned merge rules. The learner stops merging once
	// this is reached or no mergeable pair remains.
	VocabSize int
	// Coverage is the character-coverage fraction passed to alphabet.Build.
	Coverage float64
	// NThreads is forwarded to bpe.NewPool; 0 means hardware concurrency.
	NThreads int
	// SpecialTokens reserves the first ids of the vocabulary.
	SpecialTokens SpecialTokens
}

// trainWord is one distinct whitespace-delimited word, prefixed with the
// SPACE_TOKEN sentinel, represented as a mutable token sequence that
// shrinks as merges are applied. count is how many times the word occurs
// in the training corpus.
type trainWord struct {
	tokens []uint32
	count  int64
}

// Train learns a BPE model from raw UTF-8 training text.
func Train(raw []byte, cfg TrainConfig, logger *zap.Logger) (*State, error) {
	logger = loggerOrNop(logger)

	if cfg.VocabSize <= 0 {
		return nil, status.Configf("vocab_size must be positive, got %d", cfg.VocabSize)
	}

	text, invalidSeen := codec.Decode(raw)
	if invalidSeen {
		logger.Warn("training text contained malformed UTF-8 byte sequences; they were dropped")
	}

	words := splitIntoWords(text)
	if len(words) == 0 {
		logger.Warn("training text is empty after normalization; returning a model with no rules")
		return &State{
			Char2ID:       map[rune]uint32{codec.SpaceToken: uint32(cfg.SpecialTokens.Count())},
			Rules:         nil,
			SpecialTokens: cfg.SpecialTokens,
		}, nil
	}

	normalized := make([]rune, 0, len(words)*8)
	for _, w := range words {
		normalized = append(normalized, w...)
	}

	nSpecial := cfg.SpecialTokens.Count()
	alph, err := alphabet.Build(normalized, cfg.Coverage, nSpecial, logger)
	if err != nil {
		return nil, err
	}
	if base := nSpecial + len(alph.Char2ID); cfg.VocabSize < base {
		return nil, status.Configf("vocab_size %d is below the base vocabulary size %d (special tokens + alphabet)", cfg.VocabSize, base)
	}

	wordCounts := make(map[string]int64, len(words))
	wordRunes := make(map[string][]rune, len(words))
	for _, w := range words {
		kept := alphabet.RemoveRare(append([]rune(nil), w...), alph.Removed)
		if len(kept) == 0 {
			continue
		}
		key := string(kept)
		wordCounts[key]++
		wordRunes[key] = kept
	}

	keys := make([]string, 0, len(wordCounts))
	for k := range wordCounts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	trainWords := make([]*trainWord, 0, len(keys))
	for _, k := range keys {
		runes := wordRunes[k]
		tokens := make([]uint32, len(runes))
		for i, r := range runes {
			tokens[i] = alph.Char2ID[r]
		}
		trainWords = append(trainWords, &trainWord{tokens: tokens, count: wordCounts[k]})
	}

	pool := NewPool(cfg.NThreads)
	defer pool.Close()

	rules, err := mergeLoop(trainWords, alph, nSpecial, cfg.VocabSize, pool, logger)
	if err != nil {
		return nil, err
	}

	return &State{
		Char2ID:       alph.Char2ID,
		Rules:         rules,
		SpecialTokens: cfg.SpecialTokens,
	}, nil
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// splitIntoWords splits decoded text on runs of whitespace and prefixes
// each resulting word with SPACE_TOKEN, the sentencepiece-style convention
// spec §4.2 describes for turning "words" into BPE-able units.
func splitIntoWords(text []rune) [][]rune {
	var words [][]rune
	i := 0
	for i < len(text) {
		for i < len(text) && codec.IsSpace(text[i]) {
			i++
		}
		if i >= len(text) {
			break
		}
		start := i
		for i < len(text) && !codec.IsSpace(text[i]) {
			i++
		}
		word := make([]rune, 0, i-start+1)
		word = append(word, codec.SpaceToken)
		word = append(word, text[start:i]...)
		words = append(words, word)
	}
	return words
}

// pairCount tracks the aggregate occurrence count of one adjacent pair
// across all training words, plus identifying data used only for the
// deterministic tie-break.
type pairCount struct {
	x, y  uint32
	count int64
}

// mergeLoop repeatedly finds the highest-priority adjacent pair across all
// words and folds it into a new rule, until the vocabulary reaches
// targetVocab or no pair remains. Pair counting is parallelized across
// words via pool; the winning-pair selection and the tie-break are always
// computed from the fully combined counts, so the sequence of learned
// rules does not depend on the thread count.
func mergeLoop(words []*trainWord, alph alphabet.Result, nSpecial, targetVocab int, pool *Pool, logger *zap.Logger) ([]Rule, error) {
	nextID := uint32(nSpecial + len(alph.Char2ID))
	var rules []Rule

	for int(nextID) < targetVocab {
		counts := countPairs(words, pool)
		if len(counts) == 0 {
			break
		}

		best := choosePair(counts)

		z := nextID
		nextID++
		rules = append(rules, Rule{X: best.x, Y: best.y, Z: z})

		applyMerge(words, best.x, best.y, z, pool)

		logger.Debug("learned merge rule",
			zap.Uint32("x", best.x), zap.Uint32("y", best.y), zap.Uint32("z", z),
			zap.Int64("pair_count", best.count))
	}

	return rules, nil
}

// countPairs sums adjacent-pair occurrences across all words, parallelized
// by sharding the word list across the pool. Each shard accumulates into
// its own local map lock-free, then folds into the shared result under a
// mutex; the final counts are a plain sum and so do not depend on shard
// boundaries or goroutine scheduling order.
func countPairs(words []*trainWord, pool *Pool) map[uint64]*pairCount {
	merged := make(map[uint64]*pairCount)
	var mu sync.Mutex

	pool.RunSharded(len(words), func(begin, end int) {
		local := make(map[uint64]*pairCount)
		for i := begin; i < end; i++ {
			w := words[i]
			toks := w.tokens
			for j := 0; j+1 < len(toks); {
				x, y := toks[j], toks[j+1]
				key := pairKey(x, y)
				if pc, ok := local[key]; ok {
					pc.count += w.count
				} else {
					local[key] = &pairCount{x: x, y: y, count: w.count}
				}
				// A self-pair (x == y) inside a run of identical tokens is
				// counted non-overlapping, matching how applyMerge/mergeWord
				// consumes the run two tokens at a time: once the pair at
				// (j, j+1) is counted, skip past it when a third copy
				// follows, so "t t t t" counts (t,t) twice, not three times.
				if x == y && j+2 < len(toks) && toks[j+2] == x {
					j += 2
				} else {
					j++
				}
			}
		}

		mu.Lock()
		for key, pc := range local {
			if existing, ok := merged[key]; ok {
				existing.count += pc.count
			} else {
				merged[key] = &pairCount{x: pc.x, y: pc.y, count: pc.count}
			}
		}
		mu.Unlock()
	})

	return merged
}

// choosePair selects the pair to merge next. The tie-break order is: count
// descending, max(x,y) ascending, min(x,y) ascending, x ascending — a
// total order, so the result never depends on map iteration order or on
// how counting was sharded across threads.
func choosePair(counts map[uint64]*pairCount) pairCount {
	var best pairCount
	first := true
	for _, pc := range counts {
		if first || less(*pc, best) {
			best = *pc
			first = false
		}
	}
	return best
}

// less reports whether a should be preferred over b under the learner's
// total tie-break order.
func less(a, b pairCount) bool {
	if a.count != b.count {
		return a.count > b.count
	}
	amax, amin := maxmin(a.x, a.y)
	bmax, bmin := maxmin(b.x, b.y)
	if amax != bmax {
		return amax < bmax
	}
	if amin != bmin {
		return amin < bmin
	}
	return a.x < b.x
}

func maxmin(x, y uint32) (mx, mn uint32) {
	if x > y {
		return x, y
	}
	return y, x
}

// applyMerge rewrites every word's token sequence, replacing each
// non-overlapping left-to-right occurrence of (x, y) with z. Each shard
// owns a disjoint slice of words, so no synchronization is needed here.
func applyMerge(words []*trainWord, x, y, z uint32, pool *Pool) {
	pool.RunSharded(len(words), func(begin, end int) {
		for i := begin; i < end; i++ {
			words[i].tokens = mergeWord(words[i].tokens, x, y, z)
		}
	})
}

func mergeWord(tokens []uint32, x, y, z uint32) []uint32 {
	out := make([]uint32, 0, len(tokens))
	i := 0
	for i < len(tokens) {
		if i+1 < len(tokens) && tokens[i] == x && tokens[i+1] == y {
			out = append(out, z)
			i += 2
			continue
		}
		out = append(out, tokens[i])
		i++
	}
	return out
}
