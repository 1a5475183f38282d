package conversation

import "github.com/kirayalabs/kiraya/backend/internal/model/listing"

// TurnResult is the policy's per-turn output. It is ephemeral: the orchestrator
// consumes it for polishing and response headers but never persists it.
type TurnResult struct {
	Reply       string
	Stage       Stage
	Listing     *listing.Listing
	Preferences Preferences
	Completed   bool
}
