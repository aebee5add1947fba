package chunker

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplitEmptyInput(t *testing.T) {
	s := New(100, 10)
	if got := s.Split(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
	if got := s.Split("   \n\t  "); got != nil {
		t.Fatalf("expected nil for whitespace input, got %v", got)
	}
}

func TestSplitShortInput(t *testing.T) {
	s := New(100, 10)
	got := s.Split("roll two dice")
	if len(got) != 1 || got[0] != "roll two dice" {
		t.Fatalf("expected single chunk, got %v", got)
	}
}

func TestSplitDeterministic(t *testing.T) {
	text := strings.Repeat("Players take turns rolling dice. The highest roll wins the round. ", 50)
	s := New(200, 40)
	first := s.Split(text)
	second := s.Split(text)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("repeated splits of the same text differ")
	}
	if len(first) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(first))
	}
}

func TestSplitRespectsSize(t *testing.T) {
	text := strings.Repeat("word ", 1000)
	s := New(200, 20)
	for i, c := range s.Split(text) {
		if n := len([]rune(c)); n > 200 {
			t.Fatalf("chunk %d has %d runes, limit 200", i, n)
		}
	}
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	// One sentence ends comfortably inside the window; the cut should land
	// right after it rather than mid-word at the hard limit.
	text := "The setup phase places every token and card on the main board. " + strings.Repeat("x", 300)
	s := New(100, 0)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if chunks[0] != "The setup phase places every token and card on the main board." {
		t.Fatalf("first chunk not cut at sentence boundary: %q", chunks[0])
	}
}

func TestSplitPrefersBoundaryMultibyte(t *testing.T) {
	// Multibyte runes must not push the boundary out of reach: a paragraph
	// break past the middle of the window wins over a hard cut, same as for
	// ASCII text of the same rune structure.
	para := strings.Repeat("規", 58) + "。"
	text := para + "\n\n" + strings.Repeat("則", 300)
	s := New(100, 0)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if chunks[0] != para {
		t.Fatalf("first chunk not cut at paragraph break: %d runes, %q", len([]rune(chunks[0])), chunks[0])
	}
}

func TestSplitOverlap(t *testing.T) {
	// With no separators at all, cuts are hard and overlap is exact.
	text := strings.Repeat("a", 250)
	s := New(100, 20)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	tail := chunks[0][80:]
	if !strings.HasPrefix(chunks[1], tail) {
		t.Fatalf("second chunk does not start with the overlap of the first")
	}
}

func TestSplitCoversAllText(t *testing.T) {
	text := "Alpha beta gamma. Delta epsilon zeta. Eta theta iota. Kappa lambda mu."
	s := New(30, 5)
	joined := strings.Join(s.Split(text), " ")
	for _, word := range strings.Fields(strings.ReplaceAll(text, ".", "")) {
		if !strings.Contains(joined, word) {
			t.Fatalf("word %q missing from chunks", word)
		}
	}
}

func TestNewDefaults(t *testing.T) {
	s := New(0, -1)
	if s.size != defaultSize {
		t.Fatalf("expected default size %d, got %d", defaultSize, s.size)
	}
	if s.overlap != defaultSize/10 {
		t.Fatalf("expected default overlap %d, got %d", defaultSize/10, s.overlap)
	}
	// overlap >= size would never advance
	s = New(10, 50)
	if s.overlap >= s.size {
		t.Fatalf("overlap %d not clamped below size %d", s.overlap, s.size)
	}
}
