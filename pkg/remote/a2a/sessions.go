package a2a

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/agentmesh/meshchat/pkg/chat"
)

const maxTitleLength = 48

type transcript struct {
	info     chat.SessionInfo
	messages []chat.Message
	seq      int64
}

// sessions is the in-memory transcript of every conversation started in
// this process.
type sessions struct {
	now func() time.Time

	mu   sync.Mutex
	byID *orderedmap.OrderedMap[string, *transcript]
}

func newSessions(now func() time.Time) *sessions {
	return &sessions{
		now:  now,
		byID: orderedmap.New[string, *transcript](),
	}
}

func (s *sessions) create(id string) chat.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(id).info
}

func (s *sessions) getLocked(id string) *transcript {
	if t, ok := s.byID.Get(id); ok {
		return t
	}
	now := s.now()
	t := &transcript{info: chat.SessionInfo{ID: id, CreatedAt: now, UpdatedAt: now}}
	s.byID.Set(id, t)
	return t
}

// list returns the sessions, most recently updated first.
func (s *sessions) list() []chat.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]chat.SessionInfo, 0, s.byID.Len())
	for pair := s.byID.Newest(); pair != nil; pair = pair.Prev() {
		out = append(out, pair.Value.info)
	}
	slices.SortStableFunc(out, func(a, b chat.SessionInfo) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return out
}

func (s *sessions) messages(id string) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID.Get(id)
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	return slices.Clone(t.messages), nil
}

func (s *sessions) nextSequence(id string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.getLocked(id)
	t.seq++
	return t.seq
}

func (s *sessions) appendUser(id, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.getLocked(id)
	if t.info.Title == "" {
		t.info.Title = title(text)
	}
	t.info.UpdatedAt = s.now()
	t.messages = append(t.messages, chat.Message{
		IsUser:     true,
		Text:       text,
		IsComplete: true,
		Metadata:   chat.Metadata{SessionID: id, LastProcessedEventSequence: t.seq},
	})
}

func (s *sessions) appendAgent(id, text, taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.getLocked(id)
	t.info.UpdatedAt = s.now()
	t.messages = append(t.messages, chat.Message{
		Text:       text,
		IsComplete: true,
		TaskID:     taskID,
		Metadata:   chat.Metadata{SessionID: id, LastProcessedEventSequence: t.seq},
	})
}

func title(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > maxTitleLength {
		return string(r[:maxTitleLength-1]) + "…"
	}
	return text
}
