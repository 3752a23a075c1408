package wordpiece

import (
	"reflect"
	"strings"
	"testing"
)

func mustVocab(t *testing.T, lines string) *Vocabulary {
	t.Helper()
	v, err := LoadVocabulary(strings.NewReader(lines), nil)
	if err != nil {
		t.Fatalf("LoadVocabulary failed: %v", err)
	}
	return v
}

func TestEncodeSimpleTwoWords(t *testing.T) {
	v := mustVocab(t, "[UNK]\nun\n##able\ncap\n##s\n")
	enc, err := NewEncoder(v, "[UNK]", 1)
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	defer enc.Close()

	ids, subwords, err := enc.EncodeSubwords("unable caps")
	if err != nil {
		t.Fatalf("EncodeSubwords failed: %v", err)
	}
	wantIDs := []uint32{1, 2, 3, 4}
	if !reflect.DeepEqual(ids, wantIDs) {
		t.Errorf("ids = %v, want %v", ids, wantIDs)
	}
	wantSubwords := []string{"un", "##able", "cap", "##s"}
	if !reflect.DeepEqual(subwords, wantSubwords) {
		t.Errorf("subwords = %v, want %v", subwords, wantSubwords)
	}
}

func TestEncodeRollsBackToUnkOnTotalFailure(t *testing.T) {
	v := mustVocab(t, "[UNK]\nun\n##able\n")
	enc, err := NewEncoder(v, "[UNK]", 1)
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	defer enc.Close()

	ids, err := enc.EncodeIDs("unknown")
	if err != nil {
		t.Fatalf("EncodeIDs failed: %v", err)
	}
	want := []uint32{0}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

func TestEncodeSplitsPunctuationIntoOwnWord(t *testing.T) {
	v := mustVocab(t, "[UNK]\nhi\n,\n")
	enc, err := NewEncoder(v, "[UNK]", 1)
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	defer enc.Close()

	ids, err := enc.EncodeIDs("hi,")
	if err != nil {
		t.Fatalf("EncodeIDs failed: %v", err)
	}
	want := []uint32{1, 2}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

func TestEncodeSplitsCJKIntoOwnWords(t *testing.T) {
	v := mustVocab(t, "[UNK]\nhi\n中\n文\n")
	enc, err := NewEncoder(v, "[UNK]", 1)
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	defer enc.Close()

	ids, err := enc.EncodeIDs("hi中文")
	if err != nil {
		t.Fatalf("EncodeIDs failed: %v", err)
	}
	want := []uint32{1, 2, 3}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v (CJK code points must split into their own words)", ids, want)
	}
}

func TestEncodeWithoutUnkErrorsOnFailure(t *testing.T) {
	v := mustVocab(t, "un\n##able\n")
	enc, err := NewEncoder(v, "", 1)
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	defer enc.Close()

	if _, err := enc.EncodeIDs("unknown"); err == nil {
		t.Error("expected an error when segmentation fails and no unk is configured")
	}
}

func TestNewEncoderRejectsUnknownUnkSurface(t *testing.T) {
	v := mustVocab(t, "un\n##able\n")
	if _, err := NewEncoder(v, "[UNK]", 1); err == nil {
		t.Error("expected an error when the unk surface is absent from the vocabulary")
	}
}

func TestEncodeChunkingInvarianceAcrossThreadCounts(t *testing.T) {
	v := mustVocab(t, "[UNK]\nun\n##able\ncap\n##s\nhi\n,\n")
	text := "unable caps hi, unable caps hi, unable caps"

	var results [][]uint32
	for _, n := range []int{1, 4} {
		enc, err := NewEncoder(v, "[UNK]", n)
		if err != nil {
			t.Fatalf("NewEncoder failed: %v", err)
		}
		ids, err := enc.EncodeIDs(text)
		enc.Close()
		if err != nil {
			t.Fatalf("EncodeIDs failed: %v", err)
		}
		results = append(results, ids)
	}

	if !reflect.DeepEqual(results[0], results[1]) {
		t.Errorf("thread-count-dependent result: %v vs %v", results[0], results[1])
	}
}

func TestJoinSubwords(t *testing.T) {
	got := JoinSubwords([]string{"un", "##able", "cap", "##s"})
	want := "unable caps"
	if got != want {
		t.Errorf("JoinSubwords = %q, want %q", got, want)
	}
}
