package agent

import (
	"fmt"
	"strings"

	"github.com/kirayalabs/kiraya/backend/internal/analysis/intent"
	"github.com/kirayalabs/kiraya/backend/internal/model/conversation"
	"github.com/kirayalabs/kiraya/backend/internal/model/listing"
)

// Policy is the deterministic slot-filling dialogue manager. It owns every
// stage transition and always produces a reply; malformed input degrades into
// a re-asked question, never an error.
type Policy struct {
	catalog listing.Store
}

// NewPolicy creates the dialogue policy over the given catalog.
func NewPolicy(catalog listing.Store) *Policy {
	return &Policy{catalog: catalog}
}

const (
	greetingReply = "Hi there! I'm the leasing assistant. I'll help you find an apartment. " +
		"Could you tell me how many bedrooms you need?"
	noMatchReply = "I don't have an exact match yet, but we currently have options in Clifton and Gulshan. " +
		"Would you like to hear about those?"
	catalogExhausted = "No problem. Those are the only units in our demo catalog right now, " +
		"but I can note your preferences for when new listings arrive."
	askNameReply      = "Great choice! Could I have your name to pencil you in for a viewing?"
	reAskNameReply    = "Could you please share your name so I can hold the slot?"
	reAskContactReply = "No worries—could you share a phone number or email so we can confirm the viewing?"
	finalizingReply   = "I'm putting everything together—let me know if you'd like to adjust the viewing details."
	neutralNudgeReply = "Take your time. If you'd like to book a viewing or hear about another listing, just let me know."
	thanksReply       = "You're welcome! Happy to help."
	completedIdle     = "If you need anything else regarding our listings, just let me know."
)

// HandleTurn updates the session from the visitor utterance and returns the
// agent reply. Malformed or empty utterances never fail; the policy degrades
// to re-asking for whatever is still missing.
func (p *Policy) HandleTurn(state *conversation.SessionState, userText string) *conversation.TurnResult {
	cleaned := strings.TrimSpace(userText)
	state.AppendUser(cleaned)
	intent.ExtractPreferences(&state.Preferences, cleaned)
	intent.ResolvePendingBudget(&state.Preferences, cleaned, state.LastPrompt)

	switch state.Stage {
	case conversation.StageGreeting:
		state.Stage = conversation.StageGathering
		state.LastPrompt = "beds"
		return finalizeTurn(state, greetingReply, nil, false)

	case conversation.StageGathering:
		if missing := missingPreferences(&state.Preferences); len(missing) > 0 {
			prompt := missing[0]
			state.LastPrompt = prompt
			return finalizeTurn(state, questionForSlot(prompt), nil, false)
		}

		if proposal := SelectListing(state, p.catalog); proposal != nil {
			state.ProposedListingID = proposal.ID
			state.Stage = conversation.StageRecommending
			return finalizeTurn(state, describeListing(proposal, false), proposal, false)
		}

		state.LastPrompt = "confirm_alt"
		return finalizeTurn(state, noMatchReply, nil, false)

	case conversation.StageRecommending:
		if intent.IsPositive(cleaned) {
			state.Stage = conversation.StageBooking
			state.LastPrompt = "name"
			return finalizeTurn(state, askNameReply, p.currentListing(state), false)
		}

		if intent.IsNegative(cleaned) {
			dismissCurrentListing(state)
			if proposal := SelectListing(state, p.catalog); proposal != nil {
				state.ProposedListingID = proposal.ID
				return finalizeTurn(state, describeListing(proposal, true), proposal, false)
			}
			state.Stage = conversation.StageCompleted
			return finalizeTurn(state, catalogExhausted, nil, true)
		}

		return finalizeTurn(state, neutralNudgeReply, p.currentListing(state), false)

	case conversation.StageBooking:
		return p.handleBookingTurn(state, cleaned)
	}

	// Completed stage is absorbing: only the reply text varies.
	if strings.Contains(strings.ToLower(cleaned), "thank") {
		return finalizeTurn(state, thanksReply, p.currentListing(state), true)
	}
	return finalizeTurn(state, completedIdle, p.currentListing(state), true)
}

func (p *Policy) handleBookingTurn(state *conversation.SessionState, cleaned string) *conversation.TurnResult {
	if state.Booking.Name == "" {
		if name, ok := intent.ExtractName(cleaned); ok {
			state.Booking.Name = name
			state.LastPrompt = "contact"
			reply := fmt.Sprintf("Thanks %s! What's the best phone number or email to reach you for confirmation?", name)
			return finalizeTurn(state, reply, p.currentListing(state), false)
		}
		return finalizeTurn(state, reAskNameReply, p.currentListing(state), false)
	}

	if state.Booking.Contact == "" {
		if contact, method, ok := intent.ExtractContact(cleaned); ok {
			state.Booking.Contact = contact
			state.Booking.ContactMethod = method
			state.Stage = conversation.StageCompleted
			state.LastPrompt = ""

			title := "listing"
			proposal := p.currentListing(state)
			if proposal != nil {
				title = proposal.Title
			}
			reply := fmt.Sprintf(
				"Perfect! I'll reserve the %s and reach out at %s. "+
					"A teammate will confirm the viewing shortly. Is there anything else I can help with?",
				title, contact,
			)
			return finalizeTurn(state, reply, proposal, true)
		}
		return finalizeTurn(state, reAskContactReply, p.currentListing(state), false)
	}

	return finalizeTurn(state, finalizingReply, p.currentListing(state), false)
}

// finalizeTurn appends the assistant reply to history and packages the result.
func finalizeTurn(state *conversation.SessionState, reply string, proposal *listing.Listing, completed bool) *conversation.TurnResult {
	state.AppendAssistant(reply)
	return &conversation.TurnResult{
		Reply:       reply,
		Stage:       state.Stage,
		Listing:     proposal,
		Preferences: state.Preferences,
		Completed:   completed,
	}
}

// missingPreferences lists the unanswered required slots in asking order.
// Bathrooms are never required; area has no open escape.
func missingPreferences(prefs *conversation.Preferences) []string {
	var missing []string
	if !prefs.BedsSatisfied() {
		missing = append(missing, "beds")
	}
	if prefs.Area == "" {
		missing = append(missing, "area")
	}
	if !prefs.BudgetSatisfied() {
		missing = append(missing, "budget")
	}
	return missing
}

func questionForSlot(slot string) string {
	switch slot {
	case "beds":
		return "How many bedrooms are you looking for?"
	case "area":
		return "Which neighborhood suits you best? We currently have Clifton and Gulshan available."
	case "budget":
		return "What's your ideal monthly budget in PKR?"
	case "baths":
		return "Do you have a preference for the number of bathrooms?"
	}
	return "Could you share a bit more about what you're looking for?"
}

// describeListing renders the recommendation template. offerAlternative swaps
// the closing question when the listing is a follow-up proposal.
func describeListing(item *listing.Listing, offerAlternative bool) string {
	base := fmt.Sprintf(
		"I recommend the %s in %s. It's %s per month at %s. %s",
		item.Title, item.Area, conversation.FormatPKR(item.Rent), item.Address, item.Notes,
	)

	amenities := ""
	if len(item.Amenities) > 0 {
		amenities = " Amenities include " + strings.Join(item.Amenities, ", ") + "."
	}

	slots := ""
	if len(item.ViewingSlots) > 0 {
		preview := item.ViewingSlots
		if len(preview) > 2 {
			preview = preview[:2]
		}
		slots = " Available viewing slots include " + strings.Join(preview, ", ") + "."
	}

	closing := " Would you like me to book a viewing?"
	if offerAlternative {
		closing = " Does this sound better?"
	}
	return base + amenities + slots + closing
}

func dismissCurrentListing(state *conversation.SessionState) {
	if state.ProposedListingID != "" {
		state.Dismiss(state.ProposedListingID)
		state.ProposedListingID = ""
	}
}

func (p *Policy) currentListing(state *conversation.SessionState) *listing.Listing {
	if state.ProposedListingID == "" {
		return nil
	}
	if item, ok := p.catalog.FindByID(state.ProposedListingID); ok {
		return &item
	}
	return nil
}
