package services

import (
	"sync"

	"chatbot/models"
)

// ConversationStore maps conversation ids to conversations. There is no
// delete and no size bound; entries live for the life of the process.
type ConversationStore interface {
	Put(id string, conv models.Conversation)
	Get(id string) (models.Conversation, bool)
}

// MemoryStore keeps conversations in a map. The lock only makes a single
// Put or Get atomic; concurrent Puts to one id are last-write-wins.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]models.Conversation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string]models.Conversation)}
}

func (s *MemoryStore) Put(id string, conv models.Conversation) {
	conv = conv.Clone()
	s.mu.Lock()
	s.conversations[id] = conv
	s.mu.Unlock()
}

func (s *MemoryStore) Get(id string) (models.Conversation, bool) {
	s.mu.RLock()
	conv, ok := s.conversations[id]
	s.mu.RUnlock()
	if !ok {
		return models.Conversation{}, false
	}
	return conv.Clone(), true
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}
