package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPost(t *testing.T) {
	t.Run("Short", func(t *testing.T) {
		assert.Equal(t, []string{"hello"}, SplitPost("  hello  ", 280))
		assert.Nil(t, SplitPost("   ", 280))
	})

	t.Run("Paragraphs", func(t *testing.T) {
		text := strings.Repeat("a", 10) + "\n\n" + strings.Repeat("b", 10) + "\n\n" + strings.Repeat("c", 10)
		parts := SplitPost(text, 24)
		assert.Equal(t, []string{strings.Repeat("a", 10) + "\n\n" + strings.Repeat("b", 10), strings.Repeat("c", 10)}, parts)
	})

	t.Run("Words", func(t *testing.T) {
		text := strings.TrimSpace(strings.Repeat("word ", 100))
		parts := SplitPost(text, 280)
		require.Len(t, parts, 2)
		for _, p := range parts {
			assert.LessOrEqual(t, utf8.RuneCountInString(p), 280)
			assert.False(t, strings.HasPrefix(p, " "))
		}
		assert.Equal(t, text, parts[0]+" "+parts[1])
	})

	t.Run("LongWord", func(t *testing.T) {
		parts := SplitPost(strings.Repeat("x", 25), 10)
		assert.Equal(t, []string{strings.Repeat("x", 10), strings.Repeat("x", 10), strings.Repeat("x", 5)}, parts)
	})

	t.Run("Runes", func(t *testing.T) {
		parts := SplitPost(strings.Repeat("⏳ ", 10), 6)
		for _, p := range parts {
			assert.LessOrEqual(t, utf8.RuneCountInString(p), 6)
		}
	})
}

type bridge struct {
	mu     sync.Mutex
	posts  []postRequest
	server *httptest.Server
	auth   []string
}

func newBridge(t *testing.T) *bridge {
	b := &bridge{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		assert.Equal(t, "@shillbot", r.URL.Query().Get("q"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "latest", r.URL.Query().Get("mode"))
		_ = json.NewEncoder(w).Encode(searchResponse{Mentions: []*Mention{{ID: "2", Text: "hi"}, {ID: "1", Text: "yo"}}})
	})
	mux.HandleFunc("GET /mentions/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		if r.PathValue("id") != "1" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(Mention{ID: "1", Username: "alice", Text: "root", Timestamp: time.Unix(1700000000, 0).UTC()})
	})
	mux.HandleFunc("POST /mentions", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		var req postRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		b.mu.Lock()
		b.posts = append(b.posts, req)
		id := len(b.posts)
		b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(Mention{ID: "p" + string(rune('0'+id)), Text: req.Text, InReplyToID: req.InReplyTo})
	})
	mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		_ = json.NewEncoder(w).Encode(Profile{ID: "99", Username: "shillbot", Name: "Shill Bot"})
	})
	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *bridge) record(r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.auth = append(b.auth, r.Header.Get("Authorization"))
}

func TestHTTPClient(t *testing.T) {
	ctx := context.Background()
	b := newBridge(t)
	client, err := NewHTTPClient(ctx, &Config{BaseURL: b.server.URL + "/", Token: "secret", PostInterval: time.Millisecond})
	require.NoError(t, err)

	t.Run("Search", func(t *testing.T) {
		mentions, err := client.Search(ctx, "@shillbot", 20, SearchLatest)
		require.NoError(t, err)
		require.Len(t, mentions, 2)
		assert.Equal(t, "2", mentions[0].ID)
	})

	t.Run("GetMention", func(t *testing.T) {
		mention, err := client.GetMention(ctx, "1")
		require.NoError(t, err)
		require.NotNil(t, mention)
		assert.Equal(t, "alice", mention.Username)

		missing, err := client.GetMention(ctx, "404")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("PostReplyChainsParts", func(t *testing.T) {
		text := strings.TrimSpace(strings.Repeat("shill ", 60))
		posted, err := client.PostReply(ctx, text, "1")
		require.NoError(t, err)
		require.Len(t, posted, 2)

		b.mu.Lock()
		defer b.mu.Unlock()
		require.Len(t, b.posts, 2)
		assert.Equal(t, "1", b.posts[0].InReplyTo)
		assert.Equal(t, posted[0].ID, b.posts[1].InReplyTo)
	})

	t.Run("PostReplyRejectsEmpty", func(t *testing.T) {
		_, err := client.PostReply(ctx, "  ", "1")
		assert.Error(t, err)
	})

	t.Run("Me", func(t *testing.T) {
		me, err := client.Me(ctx)
		require.NoError(t, err)
		assert.Equal(t, "shillbot", me.Username)
	})

	b.mu.Lock()
	for _, auth := range b.auth {
		assert.Equal(t, "Bearer secret", auth)
	}
	b.mu.Unlock()
}

func TestHTTPClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	ctx := context.Background()
	client, err := NewHTTPClient(ctx, &Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Search(ctx, "@shillbot", 20, SearchLatest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")

	_, err = client.GetMention(ctx, "1")
	assert.Error(t, err)

	_, err = NewHTTPClient(ctx, &Config{})
	assert.Error(t, err)
}

func TestMockClient(t *testing.T) {
	ctx := context.Background()
	root := &Mention{ID: "1", ConversationID: "1", Text: "root"}
	m := NewMockClient(root)

	got, err := m.GetMention(ctx, "1")
	require.NoError(t, err)
	assert.Same(t, root, got)

	posted, err := m.PostReply(ctx, "thanks", "1")
	require.NoError(t, err)
	require.Len(t, posted, 1)
	assert.Equal(t, "1", posted[0].ConversationID)
	assert.Equal(t, []string{"thanks"}, m.PostedTexts())
}
