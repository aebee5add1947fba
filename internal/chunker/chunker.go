package chunker

import "strings"

const (
	defaultSize    = 2000
	defaultOverlap = 200
)

// separators in preference order: paragraph break, line break, sentence end,
// word break. A cut falls back to a hard character split when none is found
// in the back half of the window.
var separators = []string{"\n\n", "\n", ". ", " "}

// Splitter splits long text into overlapping character windows, cutting at
// the best boundary available near the window end.
type Splitter struct {
	size    int
	overlap int
}

func New(size, overlap int) *Splitter {
	if size <= 0 {
		size = defaultSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 10
	}
	return &Splitter{size: size, overlap: overlap}
}

// Split returns the chunks of text in order. Chunks are trimmed; empty
// chunks are dropped. The result is deterministic for a fixed input.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(strings.TrimSpace(text)) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + s.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.cutPoint(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - s.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// cutPoint finds the latest separator occurrence in the back half of the
// window and returns the index just past it. Falls back to the hard limit.
func (s *Splitter) cutPoint(runes []rune, start, limit int) int {
	window := string(runes[start:limit])
	floor := (limit - start) / 2
	for _, sep := range separators {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		// LastIndex works on bytes; recover the rune offset.
		runeIdx := len([]rune(window[:idx]))
		if runeIdx < floor {
			continue
		}
		return start + runeIdx + len([]rune(sep))
	}
	return limit
}
