package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/workhive/internal/ai"
	"github.com/spigell/workhive/internal/marketplace"
)

const (
	DemoReply  = "I'm currently running in demo mode (API Key missing). Please configure the API Key to enable my full neural capabilities."
	ErrorReply = "I encountered a neural disruption. Please try again."

	DefaultIdleTTL = 30 * time.Minute
)

var (
	ErrSessionNotFound = errors.New("chat session not found")
	ErrEmptyMessage    = errors.New("message must not be empty")
)

// Manager owns the open chat sessions.
type Manager struct {
	assistant ai.Assistant
	idleTTL   time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager. A nil assistant runs every session in demo mode.
func NewManager(assistant ai.Assistant, idleTTL time.Duration, logger *zap.Logger) *Manager {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		assistant: assistant,
		idleTTL:   idleTTL,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
}

// Open starts a session for the user owner acting in the given role.
func (m *Manager) Open(owner string, role marketplace.Role) *Session {
	s := &Session{id: uuid.NewString(), owner: owner, role: role}
	s.appendMessage(Message{Sender: SenderBot, Text: Greeting(role), SentAt: m.now()})

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.logger.Debug("chat session opened", zap.String("session_id", s.id), zap.String("role", string(role)))
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Send appends the user's message and the assistant's reply to the session
// and returns the reply. Assistant failures become ErrorReply rather than
// an error.
func (m *Manager) Send(ctx context.Context, id, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	s, err := m.Get(id)
	if err != nil {
		return Message{}, err
	}

	s.send.Lock()
	defer s.send.Unlock()

	s.appendMessage(Message{Sender: SenderUser, Text: text, SentAt: m.now()})

	reply := m.reply(ctx, s, text)
	msg := Message{Sender: SenderBot, Text: reply, SentAt: m.now()}
	s.appendMessage(msg)
	return msg, nil
}

func (m *Manager) reply(ctx context.Context, s *Session, text string) string {
	if m.assistant == nil {
		return DemoReply
	}

	answer, err := m.assistant.Reply(ctx, s.role, s.historyCopy(), text)
	if err != nil {
		m.logger.Warn("assistant reply failed", zap.String("session_id", s.id), zap.Error(err))
		return ErrorReply
	}

	s.remember(text, answer)
	return answer
}

func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// Sweep closes sessions idle for longer than the configured TTL and
// returns how many were closed.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()

	closed := 0
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			closed++
		}
	}
	return closed
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
