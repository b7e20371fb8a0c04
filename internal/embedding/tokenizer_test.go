package embedding

import "testing"

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	inputIDs, attentionMask := tok.Tokenize("red panda climbing", 16)

	if len(inputIDs) != 16 || len(attentionMask) != 16 {
		t.Fatalf("lengths: %d, %d", len(inputIDs), len(attentionMask))
	}
	if inputIDs[0] != clipStartToken {
		t.Errorf("inputIDs[0] = %d, want start token", inputIDs[0])
	}
	// 3 words + start + end
	if inputIDs[4] != clipEndToken {
		t.Errorf("inputIDs[4] = %d, want end token", inputIDs[4])
	}
	for i := 0; i < 5; i++ {
		if attentionMask[i] != 1 {
			t.Errorf("attentionMask[%d] = %d, want 1", i, attentionMask[i])
		}
	}
	if attentionMask[5] != 0 {
		t.Error("padding should have zero attention")
	}
}

func TestSimpleTokenizer_Truncates(t *testing.T) {
	tok := &SimpleTokenizer{}
	inputIDs, _ := tok.Tokenize("a b c d e f g h", 4)
	if len(inputIDs) != 4 {
		t.Fatalf("length = %d, want 4", len(inputIDs))
	}
}

func TestSplitWords(t *testing.T) {
	words := SplitWords("  a\tdog \n in the  park ")
	want := []string{"a", "dog", "in", "the", "park"}
	if len(words) != len(want) {
		t.Fatalf("got %v", words)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("word %d: got %q, want %q", i, words[i], want[i])
		}
	}
}

func TestHashString_Deterministic(t *testing.T) {
	if HashString("cat") != HashString("cat") {
		t.Error("hash not deterministic")
	}
	if HashString("cat") < 0 {
		t.Error("hash should be non-negative")
	}
}
