package bpe

import (
	"reflect"
	"testing"

	"go.uber.org/zap"
)

func fourSpecials() SpecialTokens {
	return SpecialTokens{Pad: 0, Unk: 1, Bos: 2, Eos: 3}
}

func TestTrainBabaBaaabScenario(t *testing.T) {
	cfg := TrainConfig{
		VocabSize:     9,
		Coverage:      1.0,
		NThreads:      1,
		SpecialTokens: fourSpecials(),
	}
	state, err := Train([]byte("baba baaab"), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	wantAlphabet := map[rune]uint32{'a': 4, 'b': 5, 0x2581: 6}
	if len(state.Char2ID) != len(wantAlphabet) {
		t.Fatalf("Char2ID = %v, want %v", state.Char2ID, wantAlphabet)
	}
	for ch, id := range wantAlphabet {
		if state.Char2ID[ch] != id {
			t.Errorf("Char2ID[%q] = %d, want %d", ch, state.Char2ID[ch], id)
		}
	}

	wantRules := []Rule{
		{X: 5, Y: 4, Z: 7}, // "ba" -> 7
		{X: 6, Y: 7, Z: 8}, // "<space>ba" -> 8
	}
	if !reflect.DeepEqual(state.Rules, wantRules) {
		t.Errorf("Rules = %+v, want %+v", state.Rules, wantRules)
	}
	if state.SpecialTokens != cfg.SpecialTokens {
		t.Errorf("SpecialTokens = %+v, want %+v", state.SpecialTokens, cfg.SpecialTokens)
	}
}

// TestCountPairsSkipsOverlappingSelfPairs verifies the non-overlapping
// counting rule for a run of identical tokens: within "t t t t" the self
// pair (t,t) occurs twice, not three times, matching how applyMerge later
// consumes the same run two tokens at a time.
func TestCountPairsSkipsOverlappingSelfPairs(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	words := []*trainWord{{tokens: []uint32{9, 9, 9, 9}, count: 1}}
	counts := countPairs(words, pool)
	pc, ok := counts[pairKey(9, 9)]
	if !ok {
		t.Fatal("expected a (9,9) pair count entry")
	}
	if pc.count != 2 {
		t.Errorf("count for run of 4 identical tokens = %d, want 2", pc.count)
	}

	words = []*trainWord{{tokens: []uint32{9, 9, 9}, count: 1}}
	counts = countPairs(words, pool)
	pc, ok = counts[pairKey(9, 9)]
	if !ok {
		t.Fatal("expected a (9,9) pair count entry")
	}
	if pc.count != 1 {
		t.Errorf("count for run of 3 identical tokens = %d, want 1", pc.count)
	}
}

// TestCountPairsOverlappingDistinctPairsUnaffected verifies the
// non-overlapping rule only applies to self-pairs: "a b a b" still counts
// (a,b) twice, since no run of three identical tokens ever appears.
func TestCountPairsOverlappingDistinctPairsUnaffected(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	words := []*trainWord{{tokens: []uint32{1, 2, 1, 2}, count: 1}}
	counts := countPairs(words, pool)
	pc, ok := counts[pairKey(1, 2)]
	if !ok {
		t.Fatal("expected a (1,2) pair count entry")
	}
	if pc.count != 2 {
		t.Errorf("count for alternating pair = %d, want 2", pc.count)
	}
}

func TestTrainDeterministicAcrossThreadCounts(t *testing.T) {
	text := []byte("the quick brown fox jumps over the lazy dog the fox runs")
	base := TrainConfig{VocabSize: 60, Coverage: 1.0, SpecialTokens: fourSpecials()}

	var results [][]Rule
	for _, n := range []int{1, 2, 8} {
		cfg := base
		cfg.NThreads = n
		state, err := Train(text, cfg, zap.NewNop())
		if err != nil {
			t.Fatalf("Train(NThreads=%d) failed: %v", n, err)
		}
		results = append(results, state.Rules)
	}

	for i := 1; i < len(results); i++ {
		if !reflect.DeepEqual(results[0], results[i]) {
			t.Errorf("rule set at thread count index %d differs from single-threaded run:\n%+v\nvs\n%+v",
				i, results[i], results[0])
		}
	}
}

func TestTrainEmptyTextReturnsMinimalState(t *testing.T) {
	cfg := TrainConfig{VocabSize: 10, Coverage: 1.0, SpecialTokens: NoSpecialTokens()}
	state, err := Train([]byte(""), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if len(state.Rules) != 0 {
		t.Errorf("expected no rules for empty training text, got %v", state.Rules)
	}
	if len(state.Char2ID) != 1 || state.Char2ID[0x2581] != 0 {
		t.Errorf("expected alphabet {SPACE_TOKEN: 0} for empty training text, got %v", state.Char2ID)
	}
}

func TestTrainWhitespaceOnlyTextReturnsMinimalState(t *testing.T) {
	cfg := TrainConfig{VocabSize: 10, Coverage: 1.0, SpecialTokens: NoSpecialTokens()}
	state, err := Train([]byte("   \n\t  "), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if len(state.Rules) != 0 || len(state.Char2ID) != 1 || state.Char2ID[0x2581] != 0 {
		t.Errorf("expected minimal state, got rules=%v alphabet=%v", state.Rules, state.Char2ID)
	}
}

func TestTrainRejectsBadVocabSize(t *testing.T) {
	cfg := TrainConfig{VocabSize: 0, Coverage: 1.0, SpecialTokens: NoSpecialTokens()}
	if _, err := Train([]byte("abc"), cfg, zap.NewNop()); err == nil {
		t.Error("expected error for vocab_size=0")
	}
}

func TestTrainStopsWhenNoPairsRemain(t *testing.T) {
	// A one-word, two-token corpus ("<space>a") has exactly one mergeable
	// pair; vocab_size is set far above what the corpus could ever reach,
	// so the learner must stop once that single rule exhausts all pairs
	// rather than loop forever.
	cfg := TrainConfig{VocabSize: 10000, Coverage: 1.0, SpecialTokens: NoSpecialTokens()}
	state, err := Train([]byte("a"), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if len(state.Rules) != 1 {
		t.Errorf("expected exactly one learnable rule, got %v", state.Rules)
	}
}
