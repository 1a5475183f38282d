package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/kirayalabs/kiraya/backend/internal/config"
	"github.com/kirayalabs/kiraya/backend/internal/model/conversation"
	"github.com/kirayalabs/kiraya/backend/internal/model/listing"
)

// SourceTemplate marks replies served verbatim from the policy template
// because no language model produced text.
const SourceTemplate = "policy-template"

// ErrUnavailable reports that no language model answered and no scripted
// reply existed to fall back on.
var ErrUnavailable = errors.New("no language model available")

// ModelFactory builds a chat model client for the named model. Kept as an
// injection point so tests can swap in scripted models.
type ModelFactory func(ctx context.Context, modelName string) (model.ChatModel, error)

// Service rewrites the deterministic policy replies into natural speech.
// It walks the configured model candidates in order and falls back to the
// raw policy text when every candidate fails.
type Service struct {
	factory   ModelFactory
	primary   string
	fallbacks []string
	catalog   string

	mu        sync.Mutex
	chains    map[string]compose.Runnable[map[string]any, *schema.Message]
	blacklist map[string]struct{}
}

// NewService wires the polisher from configuration. Missing credentials
// produce a disabled service that always answers with the policy template.
func NewService(cfg config.AIConfig, catalog listing.Store) *Service {
	svc := &Service{
		primary:   cfg.Model,
		fallbacks: cfg.FallbackModels,
		catalog:   composeCatalog(catalog),
		chains:    make(map[string]compose.Runnable[map[string]any, *schema.Message]),
		blacklist: make(map[string]struct{}),
	}
	if cfg.Enabled() {
		svc.factory = func(ctx context.Context, name string) (model.ChatModel, error) {
			return cfg.NewChatModelFor(ctx, name)
		}
	}
	return svc
}

// Polish returns the spoken reply for the visitor utterance along with the
// source that produced it: a model name, or SourceTemplate when the policy
// text was served as-is. A nil turn means freeform chat mode; without a
// template to fall back on, failures surface as ErrUnavailable.
func (s *Service) Polish(ctx context.Context, userText string, turn *conversation.TurnResult, state *conversation.SessionState) (string, string, error) {
	if s.factory == nil {
		if turn != nil {
			log.Printf("[ai] credentials missing, serving policy template reply")
		}
		return s.fallback(turn, nil)
	}

	input := s.buildInput(userText, turn, state)

	var lastErr error
	for _, name := range s.candidates() {
		chain, err := s.chainFor(ctx, name)
		if err != nil {
			log.Printf("[ai] model %s setup failed: %v", name, err)
			lastErr = err
			continue
		}

		resp, err := chain.Invoke(ctx, input)
		if err != nil {
			if isModelNotFound(err) {
				s.blacklistModel(name)
				log.Printf("[ai] model %s not available, blacklisted: %v", name, err)
			} else {
				log.Printf("[ai] model %s generate failed: %v", name, err)
			}
			lastErr = err
			continue
		}

		text := strings.TrimSpace(resp.Content)
		if text != "" {
			return text, name, nil
		}
		// The provider answered with nothing to say. Every candidate sees
		// the same prompt, so retrying would not help.
		return s.fallback(turn, nil)
	}

	return s.fallback(turn, lastErr)
}

func (s *Service) fallback(turn *conversation.TurnResult, lastErr error) (string, string, error) {
	if turn != nil {
		return turn.Reply, SourceTemplate, nil
	}
	if lastErr != nil {
		return "", "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
	}
	return "", "", ErrUnavailable
}

func (s *Service) buildInput(userText string, turn *conversation.TurnResult, state *conversation.SessionState) map[string]any {
	if turn != nil && state != nil {
		return map[string]any{
			"system": agentSystemPrompt,
			"query":  buildAgentQuery(userText, turn, state),
		}
	}
	return map[string]any{
		"system": chatSystemPrompt,
		"query":  buildChatQuery(userText, s.catalog),
	}
}

// candidates lists the usable model names in priority order, deduplicated
// and minus the blacklist.
func (s *Service) candidates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.fallbacks)+1)
	seen := make(map[string]struct{}, len(s.fallbacks)+1)
	for _, name := range append([]string{s.primary}, s.fallbacks...) {
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		if _, banned := s.blacklist[name]; banned {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// chainFor returns the compiled prompt+model chain for the named model,
// building and caching it on first use.
func (s *Service) chainFor(ctx context.Context, name string) (compose.Runnable[map[string]any, *schema.Message], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chain, ok := s.chains[name]; ok {
		return chain, nil
	}

	chatModel, err := s.factory(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("build chat model %s: %w", name, err)
	}

	template := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile chain for %s: %w", name, err)
	}
	s.chains[name] = runnable
	return runnable, nil
}

// blacklistModel removes the model from rotation for the rest of the
// process lifetime.
func (s *Service) blacklistModel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklist[name] = struct{}{}
	delete(s.chains, name)
}

// isModelNotFound detects provider rejections of the model name itself,
// as opposed to transient generation failures.
func isModelNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") ||
		strings.Contains(msg, "notfound") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "404")
}
