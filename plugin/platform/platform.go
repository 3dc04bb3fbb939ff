// Package platform is the social-platform transport: searching mentions,
// fetching single posts and publishing replies.
package platform

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxPostLength is the per-post character limit of the platform.
const MaxPostLength = 280

// SearchMode selects the ordering of search results.
type SearchMode string

const (
	SearchLatest SearchMode = "latest"
	SearchTop    SearchMode = "top"
)

// Mention is an immutable post retrieved from the platform.
type Mention struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Username       string    `json:"username"`
	Name           string    `json:"name"`
	ConversationID string    `json:"conversationId"`
	Text           string    `json:"text"`
	PermanentURL   string    `json:"permanentUrl"`
	Timestamp      time.Time `json:"timestamp"`
	// InReplyToID is empty for posts that start a conversation.
	InReplyToID string `json:"inReplyToId,omitempty"`
}

// Profile identifies an account on the platform.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Client is the narrow transport the pipeline depends on.
type Client interface {
	// Search returns up to limit posts matching query.
	Search(ctx context.Context, query string, limit int, mode SearchMode) ([]*Mention, error)
	// GetMention returns nil, nil when the post does not exist.
	GetMention(ctx context.Context, id string) (*Mention, error)
	// PostReply publishes text as a reply to inReplyTo. Long text is split into
	// several posts, each replying to the previous one; all of them are returned.
	PostReply(ctx context.Context, text string, inReplyTo string) ([]*Mention, error)
}

// SplitPost breaks text into parts of at most max characters. Paragraphs are
// kept together when they fit, otherwise they are broken on word boundaries.
func SplitPost(text string, max int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if max <= 0 {
		max = MaxPostLength
	}
	if utf8.RuneCountInString(text) <= max {
		return []string{text}
	}

	var parts []string
	var current string
	push := func() {
		if current != "" {
			parts = append(parts, current)
			current = ""
		}
	}
	appendChunk := func(chunk, sep string) {
		if current == "" {
			current = chunk
			return
		}
		if utf8.RuneCountInString(current)+utf8.RuneCountInString(sep)+utf8.RuneCountInString(chunk) <= max {
			current += sep + chunk
			return
		}
		push()
		current = chunk
	}

	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		if utf8.RuneCountInString(paragraph) <= max {
			appendChunk(paragraph, "\n\n")
			continue
		}

		push()
		for _, word := range strings.Fields(paragraph) {
			for utf8.RuneCountInString(word) > max {
				push()
				runes := []rune(word)
				parts = append(parts, string(runes[:max]))
				word = string(runes[max:])
			}
			appendChunk(word, " ")
		}
		push()
	}
	push()
	return parts
}
