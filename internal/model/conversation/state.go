package conversation

// Message records a single dialogue turn for history and prompt assembly.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SessionState is the root aggregate for one conversation, owned exclusively
// by the session store. The policy mutates it in place turn by turn; the turn
// orchestrator snapshots it beforehand so a failed turn can be rolled back.
type SessionState struct {
	ID                string
	Stage             Stage
	Preferences       Preferences
	Booking           BookingInfo
	History           []Message
	ProposedListingID string
	Dismissed         map[string]struct{}
	LastPrompt        string
}

// NewSessionState returns a fresh session at the greeting stage.
func NewSessionState(id string) *SessionState {
	return &SessionState{
		ID:        id,
		Stage:     StageGreeting,
		Dismissed: make(map[string]struct{}),
	}
}

// AppendUser adds a visitor utterance to the transcript history.
func (s *SessionState) AppendUser(content string) {
	s.History = append(s.History, Message{Role: RoleUser, Content: content})
}

// AppendAssistant adds an agent reply to the transcript history.
func (s *SessionState) AppendAssistant(content string) {
	s.History = append(s.History, Message{Role: RoleAssistant, Content: content})
}

// Dismiss marks a listing as rejected for the rest of the session.
func (s *SessionState) Dismiss(listingID string) {
	if s.Dismissed == nil {
		s.Dismissed = make(map[string]struct{})
	}
	s.Dismissed[listingID] = struct{}{}
}

// IsDismissed reports whether the listing was rejected earlier in the session.
func (s *SessionState) IsDismissed(listingID string) bool {
	_, ok := s.Dismissed[listingID]
	return ok
}

// Snapshot deep-copies the state so the turn orchestrator can restore it when
// a turn fails after mutation.
func (s *SessionState) Snapshot() *SessionState {
	out := *s
	out.Preferences = s.Preferences.clone()

	out.History = make([]Message, len(s.History))
	copy(out.History, s.History)

	out.Dismissed = make(map[string]struct{}, len(s.Dismissed))
	for id := range s.Dismissed {
		out.Dismissed[id] = struct{}{}
	}

	return &out
}
