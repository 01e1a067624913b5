package correction

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Chunk is one piece of a split request text.
type Chunk struct {
	// Text is the chunk body, without the separator that followed it.
	Text string

	// Sep is the whitespace that followed Text in the input. It is empty for
	// the last chunk and for chunks cut at the hard limit.
	Sep string

	// Offset is the rune offset of Text within the input.
	Offset int
}

// Split cuts text into chunks of at most size runes. A cut is made only after
// '.', '!' or '?' followed by whitespace or the end of the text, searching
// backwards from the limit for at most lookback runes. When no such boundary
// exists, the chunk is cut at the limit. Text that is not valid UTF-8 is
// never cut.
//
// Concatenating Text+Sep of every chunk yields text again.
func Split(text string, size, lookback int) []Chunk {
	runes := []rune(text)
	n := len(runes)
	if size <= 0 || n <= size || !utf8.ValidString(text) {
		return []Chunk{{Text: text}}
	}

	var chunks []Chunk
	start := 0
	for n-start > size {
		limit := start + size
		end, ok := boundaryBefore(runes, start, limit, lookback)
		if !ok {
			chunks = append(chunks, Chunk{Text: string(runes[start:limit]), Offset: start})
			start = limit
			continue
		}
		sepEnd := end
		for sepEnd < n && unicode.IsSpace(runes[sepEnd]) {
			sepEnd++
		}
		chunks = append(chunks, Chunk{
			Text:   string(runes[start:end]),
			Sep:    string(runes[end:sepEnd]),
			Offset: start,
		})
		start = sepEnd
	}
	if start < n {
		chunks = append(chunks, Chunk{Text: string(runes[start:]), Offset: start})
	}
	return chunks
}

// boundaryBefore returns the largest index i in (start, limit], at most
// lookback runes before limit, at which a sentence ends.
func boundaryBefore(runes []rune, start, limit, lookback int) (int, bool) {
	floor := max(limit-lookback, start+1)
	for i := limit; i >= floor; i-- {
		if isSentenceEnd(runes, i) {
			return i, true
		}
	}
	return 0, false
}

// isSentenceEnd reports whether a sentence ends right before index i.
func isSentenceEnd(runes []rune, i int) bool {
	if i <= 0 || i > len(runes) {
		return false
	}
	switch runes[i-1] {
	case '.', '!', '?':
	default:
		return false
	}
	return i == len(runes) || unicode.IsSpace(runes[i])
}

// closingPunct are the characters that must not be preceded by the space
// inserted after a rewritten chunk.
const closingPunct = ".,!?;:)"

// Merge reassembles chunk outputs in order. outputs[i] is the corrected form
// of chunks[i].Text. An unchanged chunk keeps its original separator. After a
// rewritten chunk a single space is inserted instead, unless the split had
// no separator or the next output starts with closing punctuation.
func Merge(chunks []Chunk, outputs []string) string {
	var b strings.Builder
	for i, c := range chunks {
		out := c.Text
		if i < len(outputs) {
			out = outputs[i]
		}
		b.WriteString(out)

		switch {
		case out == c.Text:
			b.WriteString(c.Sep)
		case c.Sep == "":
		case i+1 < len(outputs) && startsWithClosing(outputs[i+1]):
		case i+1 == len(chunks):
			b.WriteString(c.Sep)
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func startsWithClosing(s string) bool {
	for _, r := range s {
		return strings.ContainsRune(closingPunct, r)
	}
	return false
}
