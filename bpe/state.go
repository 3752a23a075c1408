package bpe

import (
	"encoding/binary"
	"io"

	"github.com/arrowtok/subword/status"
	"gopkg.in/yaml.v3"
)

// State is the full learned BPE model: the base alphabet, the merge rule
// list in creation order, and the special-token configuration. It is the
// only thing a Train call produces and the only thing an Encoder needs.
type State struct {
	Char2ID       map[rune]uint32
	Rules         []Rule
	SpecialTokens SpecialTokens
}

// AlphabetSize returns the number of base-alphabet entries.
func (s *State) AlphabetSize() int { return len(s.Char2ID) }

// absentMarker is the on-disk bit pattern for a disabled special token id.
const absentMarker uint32 = 0xFFFFFFFF

func encodeSpecialID(id int) uint32 {
	if id < 0 {
		return absentMarker
	}
	return uint32(id)
}

func decodeSpecialID(v uint32) int {
	if v == absentMarker {
		return -1
	}
	return int(v)
}

// Dump writes the model in the little-endian binary layout spec §6 defines:
//
//	u32 n_alphabet
//	u32 n_rules
//	[n_alphabet] {u32 internal_id, u32 code_point}
//	[n_rules]    u32 x
//	[n_rules]    u32 y
//	[n_rules]    u32 z
//	u32 unk_id, pad_id, bos_id, eos_id
func (s *State) Dump(w io.Writer) error {
	bw := &binWriter{w: w}

	bw.writeU32(uint32(len(s.Char2ID)))
	bw.writeU32(uint32(len(s.Rules)))

	// Deterministic order: ascending internal id, matching the ascending
	// assignment order alphabet.Build produces.
	ids := make([]rune, 0, len(s.Char2ID))
	for ch := range s.Char2ID {
		ids = append(ids, ch)
	}
	sortRunesByID(ids, s.Char2ID)
	for _, ch := range ids {
		bw.writeU32(s.Char2ID[ch])
		bw.writeU32(uint32(ch))
	}

	for _, r := range s.Rules {
		bw.writeU32(r.X)
	}
	for _, r := range s.Rules {
		bw.writeU32(r.Y)
	}
	for _, r := range s.Rules {
		bw.writeU32(r.Z)
	}

	bw.writeU32(encodeSpecialID(s.SpecialTokens.Unk))
	bw.writeU32(encodeSpecialID(s.SpecialTokens.Pad))
	bw.writeU32(encodeSpecialID(s.SpecialTokens.Bos))
	bw.writeU32(encodeSpecialID(s.SpecialTokens.Eos))

	return bw.err
}

func sortRunesByID(ids []rune, char2ID map[rune]uint32) {
	// insertion sort is fine: alphabets are small (thousands at most) and
	// this only runs at dump time.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && char2ID[ids[j-1]] > char2ID[ids[j]]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// LoadState reads a model previously written by Dump, validating the
// alphabet-size and rule-reference invariants spec §7 requires ("Malformed
// model" category).
func LoadState(r io.Reader) (*State, error) {
	br := &binReader{r: r}

	nAlphabet := br.readU32()
	nRules := br.readU32()
	if br.err != nil {
		return nil, status.Malformedf("model header: %v", br.err)
	}
	if nAlphabet == 0 {
		return nil, status.Malformedf("alphabet size is 0")
	}

	char2ID := make(map[rune]uint32, nAlphabet)
	for i := uint32(0); i < nAlphabet; i++ {
		id := br.readU32()
		cp := br.readU32()
		if br.err != nil {
			return nil, status.Malformedf("alphabet entry %d: %v", i, br.err)
		}
		char2ID[rune(cp)] = id
	}

	xs := make([]uint32, nRules)
	for i := range xs {
		xs[i] = br.readU32()
	}
	ys := make([]uint32, nRules)
	for i := range ys {
		ys[i] = br.readU32()
	}
	zs := make([]uint32, nRules)
	for i := range zs {
		zs[i] = br.readU32()
	}
	if br.err != nil {
		return nil, status.Malformedf("rule table: %v", br.err)
	}

	rules := make([]Rule, nRules)
	for i := range rules {
		rules[i] = Rule{X: xs[i], Y: ys[i], Z: zs[i]}
	}

	unk := br.readU32()
	pad := br.readU32()
	bos := br.readU32()
	eos := br.readU32()
	if br.err != nil {
		return nil, status.Malformedf("special token footer: %v", br.err)
	}

	state := &State{
		Char2ID: char2ID,
		Rules:   rules,
		SpecialTokens: SpecialTokens{
			Unk: decodeSpecialID(unk),
			Pad: decodeSpecialID(pad),
			Bos: decodeSpecialID(bos),
			Eos: decodeSpecialID(eos),
		},
	}

	if err := validateRuleReferences(state); err != nil {
		return nil, err
	}

	return state, nil
}

// validateRuleReferences checks that every rule references only ids
// introduced by an earlier rule or present in the base alphabet.
func validateRuleReferences(s *State) error {
	known := make(map[uint32]struct{}, len(s.Char2ID)+len(s.Rules))
	for _, id := range s.Char2ID {
		known[id] = struct{}{}
	}
	for i, r := range s.Rules {
		if _, ok := known[r.X]; !ok {
			return status.Malformedf("rule %d references unknown id %d (x)", i, r.X)
		}
		if _, ok := known[r.Y]; !ok {
			return status.Malformedf("rule %d references unknown id %d (y)", i, r.Y)
		}
		known[r.Z] = struct{}{}
	}
	return nil
}

type binWriter struct {
	w   io.Writer
	err error
	buf [4]byte
}

func (bw *binWriter) writeU32(v uint32) {
	if bw.err != nil {
		return
	}
	binary.LittleEndian.PutUint32(bw.buf[:], v)
	_, bw.err = bw.w.Write(bw.buf[:])
}

type binReader struct {
	r   io.Reader
	err error
	buf [4]byte
}

func (br *binReader) readU32() uint32 {
	if br.err != nil {
		return 0
	}
	_, br.err = io.ReadFull(br.r, br.buf[:])
	if br.err != nil {
		return 0
	}
	return binary.LittleEndian.Uint32(br.buf[:])
}

// debugDumpYAML is the shape written by DumpDebugYAML: a human-readable
// companion to the binary model, for `subword bpe vocab --verbose`.
type debugDumpYAML struct {
	Alphabet []debugAlphabetEntry `yaml:"alphabet"`
	Rules    []debugRuleEntry     `yaml:"rules"`
	Special  SpecialTokens        `yaml:"special_tokens"`
}

type debugAlphabetEntry struct {
	ID        uint32 `yaml:"id"`
	CodePoint uint32 `yaml:"code_point"`
}

type debugRuleEntry struct {
	X, Y, Z uint32
}

// DumpDebugYAML writes a human-readable YAML rendering of the model:
// the alphabet table, the rule list, and the special token ids. It is not
// a format LoadState reads back; it exists purely for inspection (the
// `vocab --verbose` CLI path), sibling to the binary Dump format.
func (s *State) DumpDebugYAML(w io.Writer) error {
	ids := make([]rune, 0, len(s.Char2ID))
	for ch := range s.Char2ID {
		ids = append(ids, ch)
	}
	sortRunesByID(ids, s.Char2ID)

	doc := debugDumpYAML{
		Alphabet: make([]debugAlphabetEntry, 0, len(ids)),
		Rules:    make([]debugRuleEntry, 0, len(s.Rules)),
		Special:  s.SpecialTokens,
	}
	for _, ch := range ids {
		doc.Alphabet = append(doc.Alphabet, debugAlphabetEntry{ID: s.Char2ID[ch], CodePoint: uint32(ch)})
	}
	for _, r := range s.Rules {
		doc.Rules = append(doc.Rules, debugRuleEntry{X: r.X, Y: r.Y, Z: r.Z})
	}

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(doc)
}
