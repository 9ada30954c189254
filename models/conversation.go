package models

import (
	"fmt"
	"time"
)

// Source tells who authored a message.
type Source int

const (
	SourceUser Source = iota + 1
	SourceBot
)

func (s Source) String() string {
	switch s {
	case SourceUser:
		return "USER"
	case SourceBot:
		return "BOT"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

func (s Source) MarshalText() ([]byte, error) {
	if s != SourceUser && s != SourceBot {
		return nil, fmt.Errorf("invalid message source %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Source) UnmarshalText(b []byte) error {
	switch string(b) {
	case "USER":
		*s = SourceUser
	case "BOT":
		*s = SourceBot
	default:
		return fmt.Errorf("invalid message source %q", string(b))
	}
	return nil
}

type Message struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Source    Source    `json:"source"`
}

type Conversation struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}

// NewConversation starts a conversation with a single user message.
func NewConversation(id, text string, at time.Time) Conversation {
	return Conversation{
		ID: id,
		Messages: []Message{
			{Text: text, Timestamp: at.UTC(), Source: SourceUser},
		},
	}
}

// WithReply returns a copy of c with a bot message appended. c is left untouched.
func (c Conversation) WithReply(text string, at time.Time) Conversation {
	out := c.Clone()
	out.Messages = append(out.Messages, Message{Text: text, Timestamp: at.UTC(), Source: SourceBot})
	return out
}

// Clone copies the message slice so the result shares no backing array with c.
func (c Conversation) Clone() Conversation {
	msgs := make([]Message, len(c.Messages), len(c.Messages)+1)
	copy(msgs, c.Messages)
	return Conversation{ID: c.ID, Messages: msgs}
}
