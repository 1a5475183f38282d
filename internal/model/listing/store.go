package listing

// Store exposes catalog retrieval for the agent and HTTP handlers.
type Store interface {
	List() []Listing
	FindByID(id string) (Listing, bool)
}

// MemoryStore implements Store with an in-memory slice, suitable for the demo.
// Order is preserved so selection tie-breaks stay stable.
type MemoryStore struct {
	items []Listing
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied listings.
func NewMemoryStore(items []Listing) *MemoryStore {
	return &MemoryStore{items: append([]Listing(nil), items...)}
}

// List returns the catalog in its seeded order.
func (s *MemoryStore) List() []Listing {
	return append([]Listing(nil), s.items...)
}

// FindByID looks up a listing by identifier.
func (s *MemoryStore) FindByID(id string) (Listing, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Listing{}, false
}
