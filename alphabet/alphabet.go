// Package alphabet derives the base-character vocabulary a BPE learner
// starts from, honoring a coverage fraction, per spec §4.2. Ported from
// the compute_alphabet_helper logic in youtokentome/cpp/bpe.h.
package alphabet

import (
	"sort"

	"github.com/arrowtok/subword/codec"
	"github.com/arrowtok/subword/status"
	"go.uber.org/zap"
)

// Result is the output of Build: the dense internal-id assignment for
// every kept code point, and the set of code points pruned as rare.
type Result struct {
	Char2ID map[rune]uint32
	Removed map[rune]struct{}
}

// Build counts every non-space code point in text, keeps the shortest
// prefix (sorted by descending count, then ascending code point) whose
// cumulative count reaches coverage*total, always keeps codec.SpaceToken,
// and assigns dense ids starting at nSpecial in ascending code-point order.
//
// logger receives a debug line reporting how many distinct code points
// were pruned; pass zap.NewNop() to silence it.
func Build(text []rune, coverage float64, nSpecial int, logger *zap.Logger) (Result, error) {
	if coverage <= 0 || coverage > 1 {
		return Result{}, status.Configf("character_coverage must be in (0, 1], got %v", coverage)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	counts := make(map[rune]uint64)
	var total uint64
	for _, ch := range text {
		if codec.IsSpace(ch) {
			continue
		}
		counts[ch]++
		total++
	}

	type entry struct {
		ch    rune
		count uint64
	}
	entries := make([]entry, 0, len(counts))
	for ch, c := range counts {
		entries = append(entries, entry{ch, c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].ch < entries[j].ch
	})

	threshold := coverage * float64(total)
	kept := make(map[rune]struct{}, len(entries)+1)
	var cumulative uint64
	for _, e := range entries {
		if float64(cumulative) >= threshold {
			break
		}
		kept[e.ch] = struct{}{}
		cumulative += e.count
	}
	kept[codec.SpaceToken] = struct{}{}

	removed := make(map[rune]struct{})
	for _, e := range entries {
		if _, ok := kept[e.ch]; !ok {
			removed[e.ch] = struct{}{}
		}
	}

	ordered := make([]rune, 0, len(kept))
	for ch := range kept {
		ordered = append(ordered, ch)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	char2ID := make(map[rune]uint32, len(ordered))
	for i, ch := range ordered {
		char2ID[ch] = uint32(nSpecial + i)
	}

	logger.Debug("alphabet built",
		zap.Int("kept", len(ordered)),
		zap.Int("removed", len(removed)),
		zap.Uint64("total_chars", total))

	return Result{Char2ID: char2ID, Removed: removed}, nil
}

// RemoveRare deletes every code point in removed from text, in place,
// returning the shortened slice.
func RemoveRare(text []rune, removed map[rune]struct{}) []rune {
	if len(removed) == 0 {
		return text
	}
	out := text[:0]
	for _, ch := range text {
		if _, gone := removed[ch]; gone {
			continue
		}
		out = append(out, ch)
	}
	return out
}
