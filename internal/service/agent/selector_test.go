package agent_test

import (
	"testing"

	"github.com/kirayalabs/kiraya/backend/internal/model/conversation"
	"github.com/kirayalabs/kiraya/backend/internal/model/listing"
	"github.com/kirayalabs/kiraya/backend/internal/service/agent"
)

func TestSelectCheapestWithoutPreferences(t *testing.T) {
	catalog := listing.NewMemoryStore(listing.Seed())
	state := conversation.NewSessionState("s1")

	got := agent.SelectListing(state, catalog)
	if got == nil || got.ID != "1br-gulshan" {
		t.Fatalf("expected the cheapest unit, got %+v", got)
	}
}

func TestSelectFiltersBedsAsMinimum(t *testing.T) {
	catalog := listing.NewMemoryStore(listing.Seed())
	state := conversation.NewSessionState("s2")
	state.Preferences.SetBeds(2)

	got := agent.SelectListing(state, catalog)
	if got == nil || got.ID != "2br-clifton" {
		t.Fatalf("expected the two-bed unit, got %+v", got)
	}

	state.Preferences.SetBeds(1)
	got = agent.SelectListing(state, catalog)
	if got == nil || got.ID != "1br-gulshan" {
		t.Fatalf("one bed keeps both candidates, cheapest wins, got %+v", got)
	}
}

func TestSelectAreaFilterIsCaseInsensitive(t *testing.T) {
	catalog := listing.NewMemoryStore(listing.Seed())
	state := conversation.NewSessionState("s3")
	state.Preferences.Area = "clifton"

	got := agent.SelectListing(state, catalog)
	if got == nil || got.ID != "2br-clifton" {
		t.Fatalf("expected the Clifton unit, got %+v", got)
	}
}

func TestSelectAreaWithoutUnitsReturnsNothing(t *testing.T) {
	catalog := listing.NewMemoryStore(listing.Seed())
	state := conversation.NewSessionState("s4")
	state.Preferences.Area = "DHA"

	if got := agent.SelectListing(state, catalog); got != nil {
		t.Fatalf("expected no proposal for an unknown area, got %+v", got)
	}
}

func TestSelectBudgetIsAdvisory(t *testing.T) {
	catalog := listing.NewMemoryStore(listing.Seed())
	state := conversation.NewSessionState("s5")
	state.Preferences.Area = "Clifton"
	state.Preferences.SetBudget(50000)

	// Nothing in Clifton rents under 50k; the budget filter must fall back
	// rather than empty the candidate set.
	got := agent.SelectListing(state, catalog)
	if got == nil || got.ID != "2br-clifton" {
		t.Fatalf("expected the over-budget fallback, got %+v", got)
	}

	state.Preferences.Area = ""
	got = agent.SelectListing(state, catalog)
	if got == nil || got.ID != "1br-gulshan" {
		t.Fatalf("everything over budget still proposes the cheapest, got %+v", got)
	}
}

func TestSelectSkipsDismissedListings(t *testing.T) {
	catalog := listing.NewMemoryStore(listing.Seed())
	state := conversation.NewSessionState("s6")
	state.Dismiss("1br-gulshan")

	got := agent.SelectListing(state, catalog)
	if got == nil || got.ID != "2br-clifton" {
		t.Fatalf("expected the remaining unit, got %+v", got)
	}

	state.Dismiss("2br-clifton")
	if got := agent.SelectListing(state, catalog); got != nil {
		t.Fatalf("expected nothing once all units are dismissed, got %+v", got)
	}
}

func TestSelectTieKeepsCatalogOrder(t *testing.T) {
	catalog := listing.NewMemoryStore([]listing.Listing{
		{ID: "a", Title: "First", Area: "Clifton", Beds: 1, Baths: 1, Rent: 80000},
		{ID: "b", Title: "Second", Area: "Clifton", Beds: 1, Baths: 1, Rent: 80000},
	})
	state := conversation.NewSessionState("s7")

	got := agent.SelectListing(state, catalog)
	if got == nil || got.ID != "a" {
		t.Fatalf("equal rents must keep catalog order, got %+v", got)
	}
}
