// Package server provides the profanity classifier consumed by the gateway
// before a chat message is broadcast.
package server

import "strings"

// ProfanityFilter reports whether a piece of text violates the chat policy.
// The gateway only consumes this single capability.
type ProfanityFilter interface {
	IsProfane(text string) bool
}

// WordListFilter flags text containing any word from a fixed block list,
// compared case-insensitively on whitespace-separated tokens after stripping
// surrounding punctuation.
type WordListFilter struct {
	blocked map[string]struct{}
}

var defaultBlockedWords = []string{
	"damn",
	"hell",
	"crap",
	"bastard",
	"bloody",
}

// NewWordListFilter builds a filter from the given words. An empty list falls
// back to the built-in default block list.
func NewWordListFilter(words []string) *WordListFilter {
	if len(words) == 0 {
		words = defaultBlockedWords
	}

	blocked := make(map[string]struct{}, len(words))
	for _, word := range words {
		word = strings.ToLower(strings.TrimSpace(word))
		if word != "" {
			blocked[word] = struct{}{}
		}
	}
	return &WordListFilter{blocked: blocked}
}

// IsProfane reports whether any token of text is on the block list.
func (f *WordListFilter) IsProfane(text string) bool {
	for _, token := range strings.Fields(text) {
		token = strings.ToLower(strings.Trim(token, ".,!?;:'\"()"))
		if _, bad := f.blocked[token]; bad {
			return true
		}
	}
	return false
}
