package bpe

import (
	"math/rand"
	"strings"

	"github.com/arrowtok/subword/codec"
	"github.com/arrowtok/subword/status"
)

const (
	bosSurface = "<s>"
	eosSurface = "</s>"
	unkSurface = "<unk>"
)

// Encoder applies a learned BPE model to arbitrary input text. It owns no
// mutable per-call state; the same Encoder can be used concurrently from
// multiple goroutines, including via EncodeBatchIDs's shared worker pool.
type Encoder struct {
	char2id    map[rune]uint32
	id2subword map[uint32]string
	subword2id map[string]uint32
	rank2id    map[uint64]int
	ruleOut    map[uint64]uint32
	special    SpecialTokens
	nBase      int
	vocabSize  int
	pool       *Pool
}

// NewEncoder builds an Encoder from a trained or loaded State. nThreads is
// forwarded to the shared worker pool used by EncodeBatchIDs.
func NewEncoder(state *State, nThreads int) (*Encoder, error) {
	if len(state.Char2ID) == 0 {
		return nil, status.Configf("cannot build an encoder from a model with an empty alphabet")
	}

	e := &Encoder{
		char2id:    state.Char2ID,
		id2subword: make(map[uint32]string, len(state.Char2ID)+len(state.Rules)),
		subword2id: make(map[string]uint32, len(state.Char2ID)+len(state.Rules)),
		rank2id:    make(map[uint64]int, len(state.Rules)),
		ruleOut:    make(map[uint64]uint32, len(state.Rules)),
		special:    state.SpecialTokens,
		nBase:      len(state.Char2ID),
		pool:       NewPool(nThreads),
	}

	for ch, id := range state.Char2ID {
		e.setSurface(id, string(ch))
	}
	for i, r := range state.Rules {
		key := pairKey(r.X, r.Y)
		if _, exists := e.rank2id[pairKey(r.X, r.Y)]; !exists {
			e.rank2id[key] = i
			e.ruleOut[key] = r.Z
		}
		left, ok := e.id2subword[r.X]
		if !ok {
			return nil, status.Malformedf("rule %d references id %d before it is introduced", i, r.X)
		}
		right, ok := e.id2subword[r.Y]
		if !ok {
			return nil, status.Malformedf("rule %d references id %d before it is introduced", i, r.Y)
		}
		e.setSurface(r.Z, left+right)
	}

	e.setSpecialSurface(state.SpecialTokens.Bos, bosSurface)
	e.setSpecialSurface(state.SpecialTokens.Eos, eosSurface)
	e.setSpecialSurface(state.SpecialTokens.Unk, unkSurface)

	e.vocabSize = e.nBase + len(state.Rules) + state.SpecialTokens.Count()
	return e, nil
}

func (e *Encoder) setSurface(id uint32, surface string) {
	e.id2subword[id] = surface
	if _, exists := e.subword2id[surface]; !exists {
		e.subword2id[surface] = id
	}
}

func (e *Encoder) setSpecialSurface(id int, surface string) {
	if id < 0 {
		return
	}
	e.setSurface(uint32(id), surface)
}

// Close releases the encoder's worker pool.
func (e *Encoder) Close() { e.pool.Close() }

// VocabSize returns the total number of distinct ids the encoder knows
// about: special tokens plus base alphabet plus learned rules.
func (e *Encoder) VocabSize() int { return e.vocabSize }

// Vocabulary returns every known id's surface form, ordered by id.
func (e *Encoder) Vocabulary() []string {
	out := make([]string, e.vocabSize)
	for id, s := range e.id2subword {
		if int(id) < len(out) {
			out[id] = s
		}
	}
	return out
}

// IDToSubword returns the surface form for a single id.
func (e *Encoder) IDToSubword(id uint32) (string, bool) {
	s, ok := e.id2subword[id]
	return s, ok
}

// SubwordToID returns the id for an exact surface form, if one exists.
func (e *Encoder) SubwordToID(s string) (uint32, bool) {
	id, ok := e.subword2id[s]
	return id, ok
}

// Option configures a single Encode call.
type Option func(*encodeConfig)

type encodeConfig struct {
	bos     bool
	eos     bool
	reverse bool
	dropout float64
	rng     *rand.Rand
}

// WithBOS prepends the model's beginning-of-sequence id, if configured.
func WithBOS() Option { return func(c *encodeConfig) { c.bos = true } }

// WithEOS appends the model's end-of-sequence id, if configured.
func WithEOS() Option { return func(c *encodeConfig) { c.eos = true } }

// WithReverse reverses the output token order after BOS/EOS are applied.
func WithReverse() Option { return func(c *encodeConfig) { c.reverse = true } }

// WithDropout enables BPE-dropout: each internal merge boundary of a word
// is independently suppressed with probability prob, drawn once per word
// before any rule is applied, so suppressed boundaries can never be
// re-offered to a later merge and the loop always terminates.
func WithDropout(prob float64, rng *rand.Rand) Option {
	return func(c *encodeConfig) {
		c.dropout = prob
		c.rng = rng
	}
}

func resolveConfig(opts []Option) encodeConfig {
	var cfg encodeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// EncodeIDs tokenizes text into a sequence of vocabulary ids.
func (e *Encoder) EncodeIDs(text string, opts ...Option) ([]uint32, error) {
	ids, _, err := e.encode(text, opts...)
	return ids, err
}

// EncodeSubwords tokenizes text into a sequence of ids and their
// corresponding surface-form strings.
func (e *Encoder) EncodeSubwords(text string, opts ...Option) ([]uint32, []string, error) {
	ids, subwords, err := e.encode(text, opts...)
	return ids, subwords, err
}

func (e *Encoder) encode(text string, opts ...Option) ([]uint32, []string, error) {
	cfg := resolveConfig(opts)
	if cfg.dropout < 0 || cfg.dropout > 1 {
		return nil, nil, status.Configf("dropout_prob must be in [0, 1], got %v", cfg.dropout)
	}

	runes, invalidSeen := codec.Decode([]byte(text))
	_ = invalidSeen

	words := splitIntoWords(runes)

	var ids []uint32
	var subwords []string

	if cfg.bos {
		if e.special.Bos < 0 {
			return nil, nil, status.Configf("BOS requested but the model has no bos token configured")
		}
		ids = append(ids, uint32(e.special.Bos))
		subwords = append(subwords, bosSurface)
	}

	for _, word := range words {
		wordIDs, wordSubwords, err := e.encodeWord(word, cfg)
		if err != nil {
			return nil, nil, err
		}
		ids = append(ids, wordIDs...)
		subwords = append(subwords, wordSubwords...)
	}

	if cfg.eos {
		if e.special.Eos < 0 {
			return nil, nil, status.Configf("EOS requested but the model has no eos token configured")
		}
		ids = append(ids, uint32(e.special.Eos))
		subwords = append(subwords, eosSurface)
	}

	if cfg.reverse {
		reverseInPlace(ids)
		reverseStringsInPlace(subwords)
	}

	return ids, subwords, nil
}

// encodeWord tokenizes one SPACE_TOKEN-prefixed word. A word that contains
// any character absent from the model's alphabet is replaced in its
// entirety by a single UNK id — the learned merges never see it — with its
// surface form recorded as the original (space-stripped) text, since no
// vocabulary entry can represent it.
func (e *Encoder) encodeWord(word []rune, cfg encodeConfig) ([]uint32, []string, error) {
	tokens := make([]uint32, 0, len(word))
	for _, r := range word {
		id, ok := e.char2id[r]
		if !ok {
			return e.unknownWord(word)
		}
		tokens = append(tokens, id)
	}

	var blocked []bool
	if cfg.dropout > 0 && len(tokens) > 1 {
		blocked = make([]bool, len(tokens)-1)
		for i := range blocked {
			blocked[i] = cfg.rng.Float64() < cfg.dropout
		}
	}

	tokens = mergeKnownWord(tokens, e.rank2id, e.ruleOut, blocked)

	subwords := make([]string, len(tokens))
	for i, id := range tokens {
		subwords[i] = e.id2subword[id]
	}
	return tokens, subwords, nil
}

func (e *Encoder) unknownWord(word []rune) ([]uint32, []string, error) {
	if e.special.Unk < 0 {
		return nil, nil, status.Encodingf("encountered an out-of-alphabet character with no unk token configured")
	}
	surface := string(word)
	surface = strings.TrimPrefix(surface, string(codec.SpaceToken))
	return []uint32{uint32(e.special.Unk)}, []string{surface}, nil
}

// mergeKnownWord repeatedly applies the highest-priority (lowest rule
// index) adjacent pair present in tokens, skipping any boundary marked
// blocked, until no mergeable pair remains.
func mergeKnownWord(tokens []uint32, rank2id map[uint64]int, ruleOut map[uint64]uint32, blocked []bool) []uint32 {
	for {
		bestRank := -1
		bestPos := -1
		for i := 0; i+1 < len(tokens); i++ {
			if blocked != nil && i < len(blocked) && blocked[i] {
				continue
			}
			key := pairKey(tokens[i], tokens[i+1])
			rank, ok := rank2id[key]
			if !ok {
				continue
			}
			if bestPos == -1 || rank < bestRank {
				bestRank = rank
				bestPos = i
			}
		}
		if bestPos == -1 {
			return tokens
		}

		z := ruleOut[pairKey(tokens[bestPos], tokens[bestPos+1])]
		merged := make([]uint32, 0, len(tokens)-1)
		merged = append(merged, tokens[:bestPos]...)
		merged = append(merged, z)
		merged = append(merged, tokens[bestPos+2:]...)
		tokens = merged

		if blocked != nil {
			blocked = append(blocked[:bestPos], blocked[bestPos+1:]...)
		}
	}
}

// Decode reassembles ids into text: SPACE_TOKEN surfaces become literal
// spaces, the resulting leading space is trimmed, and BOS/EOS/PAD ids
// contribute nothing to the output.
func (e *Encoder) Decode(ids []uint32) (string, error) {
	var b strings.Builder
	for _, id := range ids {
		if isSpecialID(id, e.special.Bos) || isSpecialID(id, e.special.Eos) || isSpecialID(id, e.special.Pad) {
			continue
		}
		s, ok := e.id2subword[id]
		if !ok {
			return "", status.Encodingf("unknown id %d during decode", id)
		}
		b.WriteString(s)
	}
	out := strings.ReplaceAll(b.String(), string(codec.SpaceToken), " ")
	return strings.TrimPrefix(out, " "), nil
}

func isSpecialID(id uint32, specialID int) bool {
	return specialID >= 0 && uint32(specialID) == id
}

// EncodeBatchIDs encodes many independent texts concurrently using the
// encoder's shared worker pool, preserving input order in the output.
func (e *Encoder) EncodeBatchIDs(texts []string, opts ...Option) ([][]uint32, error) {
	results := make([][]uint32, len(texts))
	errs := make([]error, len(texts))

	e.pool.RunSharded(len(texts), func(begin, end int) {
		for i := begin; i < end; i++ {
			ids, err := e.EncodeIDs(texts[i], opts...)
			results[i] = ids
			errs[i] = err
		}
	})

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func reverseInPlace(s []uint32) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func reverseStringsInPlace(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
