package bot

import "sync"

// State of a user's session in the conversation.
type State int

const (
	StateUnregistered State = iota
	StateRoleOffered
	StateRegistered
	StateDeletionPending
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRoleOffered:
		return "role_offered"
	case StateRegistered:
		return "registered"
	case StateDeletionPending:
		return "deletion_pending"
	case StateDeleted:
		return "deleted"
	}
	return "unknown"
}

// session is the state of one user in one chat. mu serializes that user's events.
type session struct {
	mu    sync.Mutex
	state State
	// pendingDeletion is set when the confirmation prompt is shown and cleared on confirm or cancel.
	pendingDeletion bool
}

// sessionKey: в группе у каждого участника своя сессия.
type sessionKey struct {
	chatID int64
	userID int64
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[sessionKey]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[sessionKey]*session)}
}

func (s *sessionStore) get(chatID, userID int64) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey{chatID: chatID, userID: userID}
	sess, ok := s.sessions[key]
	if !ok {
		sess = &session{state: StateUnregistered}
		s.sessions[key] = sess
	}
	return sess
}
