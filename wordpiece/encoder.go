package wordpiece

import (
	"strings"

	"github.com/arrowtok/subword/bpe"
	"github.com/arrowtok/subword/codec"
	"github.com/arrowtok/subword/status"
)

// Encoder applies a loaded Vocabulary to arbitrary input text using the
// greedy longest-match-first segmentation BERT-style WordPiece models use.
type Encoder struct {
	vocab   *Vocabulary
	unkID   uint32
	hasUnk  bool
	unkText string
	pool    *bpe.Pool
}

// NewEncoder builds an Encoder. unkSurface is the vocabulary's reserved
// unknown-token surface (typically "[UNK]"); pass "" if the vocabulary has
// none, in which case encoding a word with no valid segmentation is an error.
func NewEncoder(vocab *Vocabulary, unkSurface string, nThreads int) (*Encoder, error) {
	e := &Encoder{vocab: vocab, pool: bpe.NewPool(nThreads)}
	if unkSurface != "" {
		id, ok := vocab.SurfaceToID(unkSurface)
		if !ok {
			return nil, status.Configf("unk surface %q is not present in the vocabulary", unkSurface)
		}
		e.unkID = id
		e.hasUnk = true
		e.unkText = unkSurface
	}
	return e, nil
}

// Close releases the encoder's worker pool.
func (e *Encoder) Close() { e.pool.Close() }

// EncodeIDs segments text into a sequence of vocabulary ids.
func (e *Encoder) EncodeIDs(text string) ([]uint32, error) {
	ids, _, err := e.encode(text)
	return ids, err
}

// EncodeSubwords segments text into ids and their literal vocab surfaces.
func (e *Encoder) EncodeSubwords(text string) ([]uint32, []string, error) {
	return e.encode(text)
}

func (e *Encoder) encode(text string) ([]uint32, []string, error) {
	runes, _ := codec.Decode([]byte(text))
	words := splitWordsForWordPiece(runes)

	ids := make([][]uint32, len(words))
	subwords := make([][]string, len(words))
	errs := make([]error, len(words))

	e.pool.RunSharded(len(words), func(begin, end int) {
		for i := begin; i < end; i++ {
			wordIDs, wordSubwords, err := e.encodeWord(words[i])
			ids[i] = wordIDs
			subwords[i] = wordSubwords
			errs[i] = err
		}
	})

	var outIDs []uint32
	var outSubwords []string
	for i := range words {
		if errs[i] != nil {
			return nil, nil, errs[i]
		}
		outIDs = append(outIDs, ids[i]...)
		outSubwords = append(outSubwords, subwords[i]...)
	}
	return outIDs, outSubwords, nil
}

// encodeWord segments a single word greedily, left to right: at each
// position it takes the longest matching piece (a bare piece at the
// word's start, a "##"-prefixed piece afterward), bounded by the
// vocabulary's MaxTokenLen. If segmentation cannot reach the end of the
// word — some remaining suffix matches nothing at all — every piece
// matched so far for this word is discarded (tokens_since_prefix resets
// to zero) and the whole word becomes a single unk token.
func (e *Encoder) encodeWord(word []rune) ([]uint32, []string, error) {
	ids, subwords, ok := segmentWord(word, e.vocab)
	if ok {
		return ids, subwords, nil
	}
	if !e.hasUnk {
		return nil, nil, status.Encodingf("no segmentation found for %q and no unk token configured", string(word))
	}
	return []uint32{e.unkID}, []string{e.unkText}, nil
}

func segmentWord(word []rune, vocab *Vocabulary) ([]uint32, []string, bool) {
	var ids []uint32
	var subwords []string

	pos := 0
	tokensSincePrefix := 0
	for pos < len(word) {
		maxEnd := len(word)
		if vocab.MaxTokenLen > 0 && pos+vocab.MaxTokenLen < maxEnd {
			maxEnd = pos + vocab.MaxTokenLen
		}

		matched := false
		for end := maxEnd; end > pos; end-- {
			candidate := string(word[pos:end])
			if tokensSincePrefix > 0 {
				candidate = "##" + candidate
			}
			if id, ok := vocab.Lookup(candidate); ok {
				ids = append(ids, id)
				surface, _ := vocab.IDToSurface(id)
				subwords = append(subwords, surface)
				pos = end
				tokensSincePrefix++
				matched = true
				break
			}
		}
		if !matched {
			return nil, nil, false
		}
	}

	return ids, subwords, true
}

// splitWordsForWordPiece performs BERT-style basic tokenization: runs of
// whitespace separate words, and every spacing character — punctuation or
// a CJK code point, per codec.IsSpacing — is split off as its own
// single-code-point word, matching the pre-tokenization a WordPiece
// vocabulary's CJK and punctuation entries expect to see.
func splitWordsForWordPiece(text []rune) [][]rune {
	var words [][]rune
	var current []rune

	flush := func() {
		if len(current) > 0 {
			words = append(words, current)
			current = nil
		}
	}

	for _, r := range text {
		switch {
		case codec.IsSpace(r):
			flush()
		case codec.IsPunctuation(r), codec.IsCJK(r):
			flush()
			words = append(words, []rune{r})
		default:
			current = append(current, r)
		}
	}
	flush()

	return words
}

// JoinSubwords renders a subword sequence back into a single display
// string, stripping the "##" continuation marker — useful for debug
// output, not a reversible Decode.
func JoinSubwords(subwords []string) string {
	var b strings.Builder
	for i, s := range subwords {
		if i > 0 && !strings.HasPrefix(s, "##") {
			b.WriteByte(' ')
		}
		b.WriteString(strings.TrimPrefix(s, "##"))
	}
	return b.String()
}
