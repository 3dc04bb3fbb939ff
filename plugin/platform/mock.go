package platform

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockClient is an in-memory Client for tests.
type MockClient struct {
	mu sync.Mutex

	mentions map[string]*Mention
	// Self authors every post published through PostReply.
	Self Profile
	// SearchResults is returned verbatim by Search.
	SearchResults []*Mention
	// SearchErr, GetErr and PostErr inject failures.
	SearchErr error
	GetErr    map[string]error
	PostErr   error

	Posted   []*Mention
	Searches int
	Gets     map[string]int
	nextID   int
}

var _ Client = (*MockClient)(nil)

// NewMockClient creates a mock pre-populated with the given posts.
func NewMockClient(mentions ...*Mention) *MockClient {
	m := &MockClient{
		mentions: make(map[string]*Mention),
		GetErr:   make(map[string]error),
		Gets:     make(map[string]int),
		Self:     Profile{ID: "agent", Username: "agent", Name: "Agent"},
		nextID:   900000,
	}
	for _, mention := range mentions {
		m.mentions[mention.ID] = mention
	}
	return m
}

// Add registers posts retrievable through GetMention.
func (m *MockClient) Add(mentions ...*Mention) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mention := range mentions {
		m.mentions[mention.ID] = mention
	}
}

func (m *MockClient) Search(_ context.Context, _ string, limit int, _ SearchMode) ([]*Mention, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Searches++
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	results := m.SearchResults
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MockClient) GetMention(_ context.Context, id string) (*Mention, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets[id]++
	if err := m.GetErr[id]; err != nil {
		return nil, err
	}
	return m.mentions[id], nil
}

func (m *MockClient) PostReply(_ context.Context, text string, inReplyTo string) ([]*Mention, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PostErr != nil {
		return nil, m.PostErr
	}

	var posted []*Mention
	replyTo := inReplyTo
	for _, part := range SplitPost(text, MaxPostLength) {
		m.nextID++
		mention := &Mention{
			ID:           fmt.Sprintf("%d", m.nextID),
			UserID:       m.Self.ID,
			Username:     m.Self.Username,
			Name:         m.Self.Name,
			Text:         part,
			PermanentURL: fmt.Sprintf("https://x.com/%s/status/%d", m.Self.Username, m.nextID),
			Timestamp:    time.Now(),
			InReplyToID:  replyTo,
		}
		if parent := m.mentions[inReplyTo]; parent != nil {
			mention.ConversationID = parent.ConversationID
		}
		m.mentions[mention.ID] = mention
		posted = append(posted, mention)
		m.Posted = append(m.Posted, mention)
		replyTo = mention.ID
	}
	return posted, nil
}

// PostedTexts returns the text of every published part in order.
func (m *MockClient) PostedTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	texts := make([]string, 0, len(m.Posted))
	for _, p := range m.Posted {
		texts = append(texts, p.Text)
	}
	return texts
}
