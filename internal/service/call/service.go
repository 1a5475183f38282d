package call

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kirayalabs/kiraya/backend/internal/model/conversation"
	"github.com/kirayalabs/kiraya/backend/internal/service/agent"
	"github.com/kirayalabs/kiraya/backend/internal/service/ai"
	"github.com/kirayalabs/kiraya/backend/internal/service/session"
)

// ReplyPolisher rewrites a templated policy reply into natural speech and
// reports which model produced it.
type ReplyPolisher interface {
	Polish(ctx context.Context, userText string, turn *conversation.TurnResult, state *conversation.SessionState) (string, string, error)
}

// Outcome carries everything the transport layer needs to answer one
// visitor utterance.
type Outcome struct {
	SessionID  string
	Transcript string
	Reply      string
	Source     string
	Stage      conversation.Stage
	Completed  bool
}

// Service runs the transactional turn: policy, polish, persist. When the
// polisher fails the pre-turn snapshot is restored so a transient outage
// cannot advance or corrupt conversation state.
type Service struct {
	sessions *session.Store
	policy   *agent.Policy
	polisher ReplyPolisher
}

// NewService wires the turn orchestrator. A nil polisher serves the policy
// templates directly.
func NewService(sessions *session.Store, policy *agent.Policy, polisher ReplyPolisher) *Service {
	return &Service{sessions: sessions, policy: policy, polisher: polisher}
}

// Turn advances the conversation with one utterance. An empty sessionID
// starts a fresh conversation under a generated id; an unknown id starts
// fresh under the caller's id so clients survive store eviction.
func (s *Service) Turn(ctx context.Context, sessionID, transcript string) (*Outcome, error) {
	transcript = strings.TrimSpace(transcript)

	state, existing := s.lookup(sessionID)
	snapshot := state.Snapshot()

	turn := s.policy.HandleTurn(state, transcript)

	reply, source := turn.Reply, ai.SourceTemplate
	if s.polisher != nil {
		polished, polishedSource, err := s.polisher.Polish(ctx, transcript, turn, state)
		if err != nil {
			s.rollback(state.ID, snapshot, existing)
			return nil, fmt.Errorf("polish reply: %w", err)
		}
		reply, source = polished, polishedSource
	}

	s.sessions.Save(state)

	return &Outcome{
		SessionID:  state.ID,
		Transcript: transcript,
		Reply:      reply,
		Source:     source,
		Stage:      turn.Stage,
		Completed:  turn.Completed,
	}, nil
}

// End closes the conversation and drops its state.
func (s *Service) End(sessionID string) {
	s.sessions.Clear(sessionID)
}

func (s *Service) lookup(sessionID string) (*conversation.SessionState, bool) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID != "" {
		if state, ok := s.sessions.Get(sessionID); ok {
			return state, true
		}
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return conversation.NewSessionState(sessionID), false
}

// rollback undoes a half-finished turn. Sessions that existed before the
// turn get their snapshot back; brand-new ones are dropped entirely.
func (s *Service) rollback(id string, snapshot *conversation.SessionState, existing bool) {
	if existing {
		s.sessions.Save(snapshot)
		return
	}
	s.sessions.Clear(id)
}
