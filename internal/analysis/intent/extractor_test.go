package intent

import (
	"testing"

	"github.com/kirayalabs/kiraya/backend/internal/model/conversation"
)

func TestExtractPreferencesDigitsAndArea(t *testing.T) {
	prefs := &conversation.Preferences{}
	ExtractPreferences(prefs, "I need 2 bedrooms and 2 bathrooms in Clifton")

	if prefs.Beds == nil || *prefs.Beds != 2 {
		t.Fatalf("expected beds=2, got %v", prefs.Beds)
	}
	if prefs.Baths == nil || *prefs.Baths != 2 {
		t.Fatalf("expected baths=2, got %v", prefs.Baths)
	}
	if prefs.Area != "Clifton" {
		t.Fatalf("expected area Clifton, got %q", prefs.Area)
	}
}

func TestExtractPreferencesSpelledNumber(t *testing.T) {
	prefs := &conversation.Preferences{}
	ExtractPreferences(prefs, "Need two bedrooms")

	if prefs.Beds == nil || *prefs.Beds != 2 {
		t.Fatalf("expected beds=2 from spelled number, got %v", prefs.Beds)
	}
	if prefs.BedsOpen {
		t.Fatal("beds_open should stay false when a concrete value was captured")
	}
}

func TestExtractPreferencesOpenBeds(t *testing.T) {
	prefs := &conversation.Preferences{}
	ExtractPreferences(prefs, "Any number of bedrooms works for me")

	if !prefs.BedsOpen {
		t.Fatal("expected beds_open to be set")
	}
	if prefs.Beds != nil {
		t.Fatalf("beds should stay unset, got %d", *prefs.Beds)
	}
}

func TestExtractPreferencesFourSlotsInOneUtterance(t *testing.T) {
	prefs := &conversation.Preferences{}
	ExtractPreferences(prefs, "I dont have any requirement as per bed or bath, i just need a place in clifton under 50000 rupee")

	if !prefs.BedsOpen {
		t.Fatal("expected beds_open to be set")
	}
	if !prefs.BathsOpen {
		t.Fatal("expected baths_open to be set")
	}
	if prefs.Area != "Clifton" {
		t.Fatalf("expected area Clifton, got %q", prefs.Area)
	}
	if prefs.Budget == nil || *prefs.Budget != 50000 {
		t.Fatalf("expected budget=50000, got %v", prefs.Budget)
	}
	if prefs.BudgetOpen {
		t.Fatal("budget_open should stay false when a concrete amount was captured")
	}
}

func TestExtractPreferencesOpenBudgetPhrase(t *testing.T) {
	prefs := &conversation.Preferences{}
	ExtractPreferences(prefs, "I dont have any budget i am open to whatever budget there is")

	if !prefs.BudgetOpen {
		t.Fatal("expected budget_open to be set")
	}
	if prefs.Budget != nil {
		t.Fatalf("budget should stay unset, got %d", *prefs.Budget)
	}
}

func TestExtractPreferencesBudgetScaling(t *testing.T) {
	cases := []struct {
		text   string
		expect int
	}{
		{text: "under 80", expect: 80000},
		{text: "around 15k", expect: 15000},
		{text: "budget is 95000", expect: 95000},
		{text: "about 20 thousand", expect: 20000},
	}

	for _, tc := range cases {
		prefs := &conversation.Preferences{}
		ExtractPreferences(prefs, tc.text)
		if prefs.Budget == nil || *prefs.Budget != tc.expect {
			t.Fatalf("ExtractPreferences(%q) budget = %v, want %d", tc.text, prefs.Budget, tc.expect)
		}
	}
}

func TestExtractPreferencesBudgetKeywordGate(t *testing.T) {
	prefs := &conversation.Preferences{}
	ExtractPreferences(prefs, "3 bedrooms please")

	if prefs.Budget != nil {
		t.Fatalf("bedroom count must not leak into budget, got %d", *prefs.Budget)
	}
}

func TestExtractPreferencesBudgetLastMatchWins(t *testing.T) {
	prefs := &conversation.Preferences{}
	ExtractPreferences(prefs, "my budget was 80 but make that 120")

	if prefs.Budget == nil || *prefs.Budget != 120000 {
		t.Fatalf("expected the last stated number to win, got %v", prefs.Budget)
	}
}

func TestExtractPreferencesOpenHintKeepsConcreteValue(t *testing.T) {
	prefs := &conversation.Preferences{}
	ExtractPreferences(prefs, "2 bedrooms")
	ExtractPreferences(prefs, "actually any bedroom count is fine")

	if prefs.Beds == nil || *prefs.Beds != 2 {
		t.Fatalf("concrete beds value must survive a later open hint, got %v", prefs.Beds)
	}
	if prefs.BedsOpen {
		t.Fatal("beds_open must not be set once a concrete value exists")
	}
}

func TestExtractPreferencesRestatedNumberOverwrites(t *testing.T) {
	prefs := &conversation.Preferences{}
	ExtractPreferences(prefs, "2 bedrooms")
	ExtractPreferences(prefs, "make it 3 bedrooms instead")

	if prefs.Beds == nil || *prefs.Beds != 3 {
		t.Fatalf("expected restated beds=3, got %v", prefs.Beds)
	}
}

func TestExtractPreferencesSeaViewAlias(t *testing.T) {
	prefs := &conversation.Preferences{}
	ExtractPreferences(prefs, "something with a sea view would be lovely")

	if prefs.Area != "Clifton" {
		t.Fatalf("expected sea view to resolve to Clifton, got %q", prefs.Area)
	}
}

func TestExtractPreferencesMoveInNote(t *testing.T) {
	prefs := &conversation.Preferences{}
	ExtractPreferences(prefs, "  I want to move in from October  ")

	if prefs.MoveIn != "I want to move in from October" {
		t.Fatalf("expected trimmed verbatim move-in note, got %q", prefs.MoveIn)
	}
}

func TestResolvePendingBudgetAcceptsBareNumber(t *testing.T) {
	prefs := &conversation.Preferences{}
	ExtractPreferences(prefs, "120000")
	if prefs.Budget != nil {
		t.Fatalf("bare number must not set budget without context, got %d", *prefs.Budget)
	}

	ResolvePendingBudget(prefs, "120000", "budget")
	if prefs.Budget == nil || *prefs.Budget != 120000 {
		t.Fatalf("expected contextual budget=120000, got %v", prefs.Budget)
	}
}

func TestResolvePendingBudgetIgnoresOtherPrompts(t *testing.T) {
	prefs := &conversation.Preferences{}
	ResolvePendingBudget(prefs, "120000", "beds")

	if prefs.Budget != nil {
		t.Fatalf("budget must stay unset for non-budget prompts, got %d", *prefs.Budget)
	}
}

func TestResolvePendingBudgetKeepsOpenFlag(t *testing.T) {
	prefs := &conversation.Preferences{BudgetOpen: true}
	ResolvePendingBudget(prefs, "90000", "budget")

	if prefs.Budget != nil {
		t.Fatalf("open budget must not be overwritten by context fill, got %d", *prefs.Budget)
	}
}

func TestExtractNamePrefixPattern(t *testing.T) {
	name, ok := ExtractName("my name is ali khan")
	if !ok {
		t.Fatal("expected a name match")
	}
	if name != "Ali Khan" {
		t.Fatalf("expected title-cased name, got %q", name)
	}
}

func TestExtractNameShortFallback(t *testing.T) {
	name, ok := ExtractName("Ali")
	if !ok || name != "Ali" {
		t.Fatalf("expected fallback name Ali, got %q (ok=%v)", name, ok)
	}
}

func TestExtractNameStoplist(t *testing.T) {
	if name, ok := ExtractName("hello"); ok {
		t.Fatalf("stoplist word must not become a name, got %q", name)
	}
}

func TestExtractNameRejectsLongUtterance(t *testing.T) {
	if name, ok := ExtractName("that listing was not really for me"); ok {
		t.Fatalf("long utterance must not become a name, got %q", name)
	}
}

func TestExtractContactPrefersEmail(t *testing.T) {
	value, method, ok := ExtractContact("reach me at ali@example.com or 0300 1234567")
	if !ok {
		t.Fatal("expected a contact match")
	}
	if method != "email" || value != "ali@example.com" {
		t.Fatalf("expected the email to win, got %q via %s", value, method)
	}
}

func TestExtractContactPhoneWhitespaceCollapse(t *testing.T) {
	value, method, ok := ExtractContact("call 0300  123   4567 in the evening")
	if !ok {
		t.Fatal("expected a phone match")
	}
	if method != "phone" {
		t.Fatalf("expected phone method, got %s", method)
	}
	if value != "0300 123 4567" {
		t.Fatalf("expected collapsed whitespace, got %q", value)
	}
}

func TestExtractContactNoneFound(t *testing.T) {
	if value, _, ok := ExtractContact("I will share it later"); ok {
		t.Fatalf("expected no contact, got %q", value)
	}
}

func TestIntentMatching(t *testing.T) {
	cases := []struct {
		text     string
		positive bool
		negative bool
	}{
		{text: "yes please", positive: true},
		{text: "sounds good to me", positive: true},
		{text: "book it", positive: true},
		{text: "no thanks", negative: true},
		{text: "show me another one", negative: true},
		{text: "not really my style", negative: true},
		{text: "nope", negative: false},
		{text: "hmm let me think", positive: false, negative: false},
	}

	for _, tc := range cases {
		if got := IsPositive(tc.text); got != tc.positive {
			t.Fatalf("IsPositive(%q) = %v, want %v", tc.text, got, tc.positive)
		}
		if got := IsNegative(tc.text); got != tc.negative {
			t.Fatalf("IsNegative(%q) = %v, want %v", tc.text, got, tc.negative)
		}
	}
}
