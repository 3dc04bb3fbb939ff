package campaign

import "strings"

// State is a bounded, read-only view of both campaign rooms taken for one
// mention.
type State struct {
	Started   []*Campaign
	Proposals []*Campaign

	byConversation map[string]*Campaign
}

// NewState indexes the listings by conversation. Started campaigns take
// precedence over proposals; within a room the first listed record wins.
func NewState(started, proposals []*Campaign) *State {
	s := &State{
		Started:        started,
		Proposals:      proposals,
		byConversation: make(map[string]*Campaign, len(started)+len(proposals)),
	}
	for _, list := range [][]*Campaign{started, proposals} {
		for _, c := range list {
			if c.ConversationID == "" {
				continue
			}
			if _, ok := s.byConversation[c.ConversationID]; !ok {
				s.byConversation[c.ConversationID] = c
			}
		}
	}
	return s
}

// FindByConversation returns the campaign owned by the conversation, or nil.
func (s *State) FindByConversation(conversationID string) *Campaign {
	if conversationID == "" {
		return nil
	}
	return s.byConversation[conversationID]
}

// FindByTokenMention returns the first started campaign whose token symbol
// occurs in text. The match is case-sensitive.
func (s *State) FindByTokenMention(text string) *Campaign {
	for _, c := range s.Started {
		if c.Token != "" && strings.Contains(text, c.Token) {
			return c
		}
	}
	return nil
}
