package agent

import (
	"strings"

	"github.com/kirayalabs/kiraya/backend/internal/model/conversation"
	"github.com/kirayalabs/kiraya/backend/internal/model/listing"
)

// SelectListing filters the catalog against the session and returns the
// cheapest surviving candidate, or nil when dismissal, area or bedroom
// filters leave nothing. The budget filter is advisory: when it would empty
// the set, the pre-budget candidates are kept instead.
func SelectListing(state *conversation.SessionState, catalog listing.Store) *listing.Listing {
	prefs := &state.Preferences

	var candidates []listing.Listing
	for _, item := range catalog.List() {
		if !state.IsDismissed(item.ID) {
			candidates = append(candidates, item)
		}
	}

	if prefs.Area != "" {
		candidates = filterByArea(candidates, prefs.Area)
	}

	if prefs.Beds != nil {
		kept := candidates[:0]
		for _, item := range candidates {
			if item.Beds >= *prefs.Beds {
				kept = append(kept, item)
			}
		}
		candidates = kept
	}

	if prefs.Budget != nil {
		var within []listing.Listing
		for _, item := range candidates {
			if item.Rent <= *prefs.Budget {
				within = append(within, item)
			}
		}
		if len(within) > 0 {
			candidates = within
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	// Catalog order breaks rent ties, so keep the first strictly-cheapest.
	cheapest := candidates[0]
	for _, item := range candidates[1:] {
		if item.Rent < cheapest.Rent {
			cheapest = item
		}
	}
	return &cheapest
}

func filterByArea(items []listing.Listing, area string) []listing.Listing {
	kept := items[:0]
	for _, item := range items {
		if strings.EqualFold(item.Area, area) {
			kept = append(kept, item)
		}
	}
	return kept
}
