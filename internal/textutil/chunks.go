package textutil

import (
	"strings"
	"unicode"
)

// SplitIntoChunks splits text into pieces of at most maxBytes without
// breaking lines. A single line longer than maxBytes becomes its own chunk.
func SplitIntoChunks(text string, maxBytes int) []string {
	if maxBytes <= 0 {
		maxBytes = 10240
	}
	var chunks []string
	var current strings.Builder
	for _, line := range splitKeepNewlines(text) {
		if current.Len() > 0 && current.Len()+len(line) > maxBytes {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func splitKeepNewlines(text string) []string {
	if text == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}

// cjkPunctuation covers full-width punctuation and symbols that appear in
// otherwise fully translated text and should not trip the non-Latin check.
var cjkPunctuation = map[rune]struct{}{}

func init() {
	for _, r := range "「」『』【】（）〈〉《》・ー〜～！？、。．，：；“”‘’…—–‐≪≫〔〕［］｛｝｢｣ㄴㅡㅋㅣ" {
		cjkPunctuation[r] = struct{}{}
	}
}

// ContainsNonLatinLetters reports whether text carries letters outside the
// Latin script, ignoring common CJK punctuation and full-width symbols.
func ContainsNonLatinLetters(text string) bool {
	for _, r := range text {
		if _, ok := cjkPunctuation[r]; ok {
			continue
		}
		if unicode.IsLetter(r) && !unicode.Is(unicode.Latin, r) {
			return true
		}
	}
	return false
}
