package message

import (
	"context"
	"sync"

	"chatgate/module/chat/model"
)

// MemoryLog is an in-process Log for tests.
type MemoryLog struct {
	mu   sync.Mutex
	msgs []*model.Message
}

var _ Log = (*MemoryLog)(nil)

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (s *MemoryLog) Append(_ context.Context, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *msg
	s.msgs = append(s.msgs, &cp)
	return nil
}

func (s *MemoryLog) RecentPublic(_ context.Context, roomID string, limit int) ([]*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Message
	for _, m := range s.msgs {
		if m.Scope == model.ScopePublic && m.RoomID == roomID {
			out = append(out, m)
		}
	}
	return tail(out, limit), nil
}

func (s *MemoryLog) PrivateBetween(_ context.Context, userA, userB, limit int) ([]*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Message
	for _, m := range s.msgs {
		if m.Scope != model.ScopePrivate {
			continue
		}
		if (m.SenderID == userA && m.ReceiverID == userB) ||
			(m.SenderID == userB && m.ReceiverID == userA) {
			out = append(out, m)
		}
	}
	return tail(out, limit), nil
}

// All returns every appended message in order; test helper.
func (s *MemoryLog) All() []*model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

func tail(msgs []*model.Message, limit int) []*model.Message {
	if limit > 0 && len(msgs) > limit {
		return msgs[len(msgs)-limit:]
	}
	return msgs
}
