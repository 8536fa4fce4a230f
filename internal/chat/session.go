package chat

import (
	"sync"
	"time"

	"github.com/spigell/workhive/internal/ai"
	"github.com/spigell/workhive/internal/marketplace"
)

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type Message struct {
	Sender Sender    `json:"sender"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sentAt"`
}

// Greeting is the first message of every session.
func Greeting(role marketplace.Role) string {
	topic := "freelancing"
	if role == marketplace.RoleClient {
		topic = "hiring"
	}
	return "Hello! I'm HiveMind. How can I assist you with your " + topic + " today?"
}

// Session is one conversation. The transcript is what the user sees; the
// history holds only completed exchanges and is what the model receives.
type Session struct {
	id    string
	owner string
	role  marketplace.Role

	// send serializes exchanges so replies arrive in order.
	send sync.Mutex

	mu         sync.Mutex
	transcript []Message
	history    []ai.Turn
	lastActive time.Time
}

func (s *Session) ID() string { return s.id }

// Owner is the uid of the user who opened the session.
func (s *Session) Owner() string { return s.owner }

func (s *Session) Role() marketplace.Role { return s.role }

// Transcript returns a copy of the visible messages, oldest first.
func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.transcript...)
}

func (s *Session) appendMessage(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, msg)
	s.lastActive = msg.SentAt
}

func (s *Session) historyCopy() []ai.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ai.Turn(nil), s.history...)
}

func (s *Session) remember(question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history,
		ai.Turn{Speaker: ai.SpeakerUser, Text: question},
		ai.Turn{Speaker: ai.SpeakerModel, Text: answer},
	)
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
