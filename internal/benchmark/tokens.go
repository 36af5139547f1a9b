package benchmark

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Encoding is the tiktoken encoding used for estimates (GPT-4 family).
const Encoding = "cl100k_base"

var (
	encOnce  sync.Once
	encoding *tiktoken.Tiktoken
)

func loadEncoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(Encoding)
		if err == nil {
			encoding = enc
		}
	})
	return encoding
}

// Exact reports whether CountTokens uses the tiktoken encoding rather than
// the character heuristic.
func Exact() bool {
	return loadEncoding() != nil
}

// CountTokens returns the token count of text, falling back to EstimateFast
// when the encoding cannot be loaded.
func CountTokens(text string) int {
	if enc := loadEncoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return EstimateFast(text)
}

// EstimateFast returns max(runes/4, word count), at least 1 for non-blank text.
func EstimateFast(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	estimate := len([]rune(trimmed)) / 4
	if words := len(strings.Fields(trimmed)); estimate < words {
		estimate = words
	}
	if estimate == 0 {
		estimate = 1
	}
	return estimate
}
