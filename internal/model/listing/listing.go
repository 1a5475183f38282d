package listing

import "strings"

// Listing captures a rentable unit exposed to the agent and the frontend.
type Listing struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Area         string   `json:"area"`
	Beds         int      `json:"beds"`
	Baths        int      `json:"baths"`
	Rent         int      `json:"rent"`
	Address      string   `json:"address"`
	Notes        string   `json:"notes,omitempty"`
	Amenities    []string `json:"amenities,omitempty"`
	ViewingSlots []string `json:"viewingSlots,omitempty"`
}

// Seed provides the demo catalog required by the product spec.
func Seed() []Listing {
	return []Listing{
		{
			ID:      "2br-clifton",
			Title:   "2BR Clifton",
			Area:    "Clifton",
			Beds:    2,
			Baths:   2,
			Rent:    120000,
			Address: "Block 5, Clifton, Karachi",
			Notes:   "High-rise apartment with sea view and dedicated parking.",
			Amenities: []string{
				"Sea view",
				"Parking",
				"Generator backup",
			},
			ViewingSlots: []string{
				"Tomorrow 4:00 PM",
				"Saturday 11:00 AM",
				"Monday 6:00 PM",
			},
		},
		{
			ID:      "1br-gulshan",
			Title:   "1BR Gulshan",
			Area:    "Gulshan",
			Beds:    1,
			Baths:   1,
			Rent:    65000,
			Address: "Block 7, Gulshan-e-Iqbal, Karachi",
			Notes:   "Cozy unit near the central park with 24/7 security.",
			Amenities: []string{
				"Near park",
				"Security",
				"High-speed internet",
			},
			ViewingSlots: []string{
				"Today 6:30 PM",
				"Friday 5:00 PM",
				"Sunday 2:00 PM",
			},
		},
	}
}

// areaAlias maps a spoken phrase to a canonical catalog area. Table order is
// the match precedence when an utterance mentions several areas.
type areaAlias struct {
	phrase string
	area   string
}

var areaAliases = []areaAlias{
	{phrase: "clifton", area: "Clifton"},
	{phrase: "sea view", area: "Clifton"},
	{phrase: "gulshan", area: "Gulshan"},
	{phrase: "gulshan-e-iqbal", area: "Gulshan"},
}

// ResolveArea returns the canonical area mentioned in the text, or "" when
// no alias matches. The first alias found in the table wins.
func ResolveArea(text string) string {
	lowered := strings.ToLower(text)
	for _, alias := range areaAliases {
		if strings.Contains(lowered, alias.phrase) {
			return alias.area
		}
	}
	return ""
}
