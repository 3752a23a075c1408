package wordpiece

import (
	"bufio"
	"io"
	"unicode/utf8"

	"github.com/arrowtok/subword/internal/logging"
	"github.com/arrowtok/subword/status"
	"go.uber.org/zap"
)

// Vocabulary is a loaded WordPiece vocab file: every line assigned an id
// equal to its line number (0-based), classified into prefix, suffix, or
// special tokens.
type Vocabulary struct {
	Tokens      []Token
	tokenToID   map[string]uint32
	MaxTokenLen int
}

// LoadVocabulary reads one token per line from r, in BERT-vocab-file
// order: line N becomes id N. Malformed lines (empty, a bare "##", invalid
// UTF-8, or all-punctuation text longer than one code point) are kept in
// Tokens so id-indexed surfaces still round-trip through decode, but are
// excluded from the lookup maps and from MaxTokenLen; their presence is
// reported once via logger (falling back to stderr), never as an error.
func LoadVocabulary(r io.Reader, logger *zap.Logger) (*Vocabulary, error) {
	noLoggerWired := logger == nil
	logger = logging.NopIfNil(logger)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	v := &Vocabulary{
		tokenToID: make(map[string]uint32),
	}

	lineNo := 0
	malformed := 0
	for scanner.Scan() {
		tok := classify(scanner.Text())
		v.Tokens = append(v.Tokens, tok)

		if tok.Kind == KindMalformed {
			malformed++
		} else {
			key := tok.matchKey()
			if _, exists := v.tokenToID[key]; !exists {
				v.tokenToID[key] = uint32(lineNo)
			}
			if tok.Kind != KindSpecial {
				if n := utf8.RuneCountInString(tok.Piece); n > v.MaxTokenLen {
					v.MaxTokenLen = n
				}
			}
		}

		lineNo++
	}
	if err := scanner.Err(); err != nil {
		return nil, status.IOErrorf("reading vocabulary: %v", err)
	}
	if len(v.Tokens) == 0 {
		return nil, status.Malformedf("vocabulary is empty")
	}
	if malformed > 0 {
		msg := "vocabulary contains malformed entries; they are excluded from matching but kept for id lookup"
		if noLoggerWired {
			logging.StderrWarner("%s (count=%d)", msg, malformed)
		} else {
			logger.Warn(msg, zap.Int("count", malformed))
		}
	}

	return v, nil
}

// Size returns the number of entries in the vocabulary.
func (v *Vocabulary) Size() int { return len(v.Tokens) }

// Lookup resolves a matchable key ("able" for a prefix, "##able" for a
// suffix) to its id.
func (v *Vocabulary) Lookup(key string) (uint32, bool) {
	id, ok := v.tokenToID[key]
	return id, ok
}

// IDToSurface returns the literal vocab-file text for an id.
func (v *Vocabulary) IDToSurface(id uint32) (string, bool) {
	if int(id) >= len(v.Tokens) {
		return "", false
	}
	return v.Tokens[id].Surface, true
}

// SurfaceToID resolves a special token's literal surface (e.g. "[UNK]")
// to its id.
func (v *Vocabulary) SurfaceToID(surface string) (uint32, bool) {
	id, ok := v.tokenToID[surface]
	return id, ok
}
