package ai

import (
	"fmt"
	"strings"

	"github.com/kirayalabs/kiraya/backend/internal/model/conversation"
	"github.com/kirayalabs/kiraya/backend/internal/model/listing"
)

const chatSystemPrompt = "You are a polite apartment receptionist. Be brief. If the visitor asks about rent or beds, " +
	"answer with short plain sentences. If you do not know a number, say you don’t know. Do not " +
	"ask for payment. One or two sentences only."

const agentSystemPrompt = "You speak as a friendly human leasing assistant over a phone call. Follow the policy guidance " +
	"given, keep the response to one or two short sentences, and do not invent any new facts beyond " +
	"the supplied listing details."

// buildAgentQuery renders the structured turn context the model rewrites
// into speech. The trailing assistant entry is the policy reply itself and
// is dropped from the transcript block.
func buildAgentQuery(userText string, turn *conversation.TurnResult, state *conversation.SessionState) string {
	history := state.History
	if n := len(history); n > 0 && history[n-1].Role == conversation.RoleAssistant {
		history = history[:n-1]
	}

	utterance := strings.TrimSpace(userText)
	if utterance == "" {
		utterance = "..."
	}

	lines := []string{
		"Conversation so far:",
		formatHistory(history),
		"",
		"Latest visitor utterance: " + utterance,
		"",
		"Policy guidance: " + turn.Reply,
		"Current stage: " + turn.Stage.String(),
		"Collected preferences: " + turn.Preferences.Summary(),
		"Highlighted listing: " + summarizeListing(turn.Listing),
	}
	if turn.Completed {
		lines = append(lines, "The booking workflow is already complete.")
	}
	lines = append(lines,
		"",
		"Rewrite the policy guidance into a natural spoken reply. Use friendly, confident tone.",
		"Keep it within two short sentences and do not invent new facts.",
		"Assistant:",
	)
	return strings.Join(lines, "\n")
}

func buildChatQuery(userText, catalog string) string {
	return catalog + "\n\nVisitor: " + strings.TrimSpace(userText) + "\nReceptionist:"
}

// composeCatalog renders the one-line-per-unit inventory shared with the
// freeform chat prompt.
func composeCatalog(store listing.Store) string {
	lines := []string{"Available units:"}
	for _, item := range store.List() {
		notes := ""
		if item.Notes != "" {
			notes = fmt.Sprintf(" (%s)", item.Notes)
		}
		lines = append(lines, fmt.Sprintf("- %s — %d beds, %s in %s%s",
			item.Title, item.Beds, conversation.FormatPKR(item.Rent), item.Area, notes))
	}
	return strings.Join(lines, "\n")
}

func formatHistory(history []conversation.Message) string {
	if len(history) == 0 {
		return "No prior dialogue."
	}
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		lines = append(lines, roleTitle(msg.Role)+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}

func roleTitle(role string) string {
	switch role {
	case conversation.RoleUser:
		return "User"
	case conversation.RoleAssistant:
		return "Assistant"
	}
	return role
}

// summarizeListing compresses the highlighted unit into one prompt line.
func summarizeListing(item *listing.Listing) string {
	if item == nil {
		return "no listing yet"
	}

	parts := []string{
		fmt.Sprintf("%s in %s", item.Title, item.Area),
		conversation.FormatPKR(item.Rent) + " per month",
		"Address: " + item.Address,
	}
	if item.Notes != "" {
		parts = append(parts, "Notes: "+item.Notes)
	}
	if len(item.Amenities) > 0 {
		parts = append(parts, "Amenities: "+strings.Join(item.Amenities, ", "))
	}
	if len(item.ViewingSlots) > 0 {
		slots := item.ViewingSlots
		if len(slots) > 3 {
			slots = slots[:3]
		}
		parts = append(parts, "Viewing slots: "+strings.Join(slots, ", "))
	}
	return strings.Join(parts, "; ")
}
