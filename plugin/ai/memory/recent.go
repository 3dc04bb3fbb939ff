// Package memory keeps the per-room recent-message window the agent uses to
// chain actions across replies.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Message is one entry of a room's recent history.
type Message struct {
	MemoryID  string
	UserID    string
	Username  string
	Text      string
	Action    string
	Timestamp time.Time
}

// RecentMessages keeps a sliding window of messages per room.
// Thread-safe for concurrent access.
type RecentMessages struct {
	mu      sync.RWMutex
	rooms   map[string]*roomData
	maxSize int
	maxIdle time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type roomData struct {
	messages   []Message
	lastAccess time.Time
}

// NewRecentMessages creates the store. maxSize is the window per room
// (default 10); rooms idle for longer than maxIdle (default 1h) are evicted.
func NewRecentMessages(maxSize int, maxIdle time.Duration) *RecentMessages {
	if maxSize <= 0 {
		maxSize = 10
	}
	if maxIdle <= 0 {
		maxIdle = time.Hour
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &RecentMessages{
		rooms:   make(map[string]*roomData),
		maxSize: maxSize,
		maxIdle: maxIdle,
		ctx:     ctx,
		cancel:  cancel,
	}
	r.wg.Add(1)
	go r.cleanupLoop()
	return r
}

// Close stops the cleanup goroutine.
func (r *RecentMessages) Close() {
	r.cancel()
	r.wg.Wait()
}

// Add appends msg to the room window, dropping the oldest entries.
func (r *RecentMessages) Add(roomID string, msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		room = &roomData{messages: make([]Message, 0, r.maxSize)}
		r.rooms[roomID] = room
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	room.messages = append(room.messages, msg)
	room.lastAccess = time.Now()
	if len(room.messages) > r.maxSize {
		room.messages = room.messages[len(room.messages)-r.maxSize:]
	}
}

// Get returns up to limit of the most recent messages, oldest first.
// limit <= 0 returns the whole window.
func (r *RecentMessages) Get(roomID string, limit int) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok || len(room.messages) == 0 {
		return []Message{}
	}
	room.lastAccess = time.Now()

	messages := room.messages
	if limit > 0 && limit < len(messages) {
		messages = messages[len(messages)-limit:]
	}
	result := make([]Message, len(messages))
	copy(result, messages)
	return result
}

// LastAction returns the action of the newest message in the room, if any.
func (r *RecentMessages) LastAction(roomID string) string {
	messages := r.Get(roomID, 1)
	if len(messages) == 0 {
		return ""
	}
	return messages[0].Action
}

// Format renders the room window for prompt templates.
func (r *RecentMessages) Format(roomID string, limit int) string {
	messages := r.Get(roomID, limit)
	if len(messages) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("# Recent messages\n")
	for _, m := range messages {
		name := m.Username
		if name == "" {
			name = m.UserID
		}
		fmt.Fprintf(&sb, "@%s: %s", name, m.Text)
		if m.Action != "" {
			fmt.Fprintf(&sb, " (%s)", m.Action)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// RoomCount returns the number of tracked rooms.
func (r *RecentMessages) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *RecentMessages) evictIdle(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, room := range r.rooms {
		if now.Sub(room.lastAccess) > r.maxIdle {
			delete(r.rooms, id)
		}
	}
}

func (r *RecentMessages) cleanupLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case now := <-ticker.C:
			r.evictIdle(now)
		}
	}
}
