// Package segment finds sentence boundaries for click-to-select.
package segment

// Bounds is a half-open byte range [Start, End) within a text.
type Bounds struct {
	Start int
	End   int
}

// Text returns the slice of text covered by b.
func (b Bounds) Text(text string) string {
	return text[b.Start:b.End]
}

// FindSentenceBounds returns the sentence containing position.
//
// A sentence ends at '.', '!' or '?' followed by whitespace or end of text,
// or at a line break. Surrounding whitespace is trimmed. ok is false when
// position is out of range or the resulting span is empty.
func FindSentenceBounds(text string, position int) (Bounds, bool) {
	if position < 0 || position > len(text) {
		return Bounds{}, false
	}

	start := 0
	for i := position - 1; i >= 0; i-- {
		if isLineBreak(text[i]) || isTerminatorAt(text, i) {
			start = i + 1
			break
		}
	}

	end := len(text)
	for i := position; i < len(text); i++ {
		if isLineBreak(text[i]) {
			end = i
			break
		}
		if isTerminatorAt(text, i) {
			end = i + 1
			break
		}
	}

	for start < end && isSpace(text[start]) {
		start++
	}
	for end > start && isSpace(text[end-1]) {
		end--
	}

	if start >= end {
		return Bounds{}, false
	}
	return Bounds{Start: start, End: end}, true
}

func isTerminatorAt(text string, i int) bool {
	switch text[i] {
	case '.', '!', '?':
		return i+1 == len(text) || isSpace(text[i+1])
	}
	return false
}

func isLineBreak(c byte) bool {
	return c == '\n' || c == '\r'
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}
