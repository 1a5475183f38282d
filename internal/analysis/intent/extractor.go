package intent

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/kirayalabs/kiraya/backend/internal/model/conversation"
	"github.com/kirayalabs/kiraya/backend/internal/model/listing"
)

// Extraction is heuristic by design: concrete-value patterns run before open-hint
// checks, and for budgets the last stated number in an utterance is authoritative.
// The tables below are the ordering-sensitive part of that behavior.

var numberWords = []struct {
	word  string
	value int
}{
	{"one", 1},
	{"two", 2},
	{"three", 3},
	{"four", 4},
	{"five", 5},
	{"six", 6},
	{"seven", 7},
	{"eight", 8},
	{"nine", 9},
}

var (
	positivePattern      = regexp.MustCompile(`(?i)\b(yes|yeah|book|schedule|sounds good|interested|sure|ok|okay)\b`)
	negativePattern      = regexp.MustCompile(`(?i)\b(no|another|different|other|not really)\b`)
	bedsPattern          = regexp.MustCompile(`(?i)(\d+)\s*(?:bed|bedroom)`)
	bathsPattern         = regexp.MustCompile(`(?i)(\d+)\s*(?:bath|bathroom)`)
	genericNumberPattern = regexp.MustCompile(`(?i)(\d+)(?:\s*(k|thousand))?`)
	emailPattern         = regexp.MustCompile(`[\w.\-]+@[\w.\-]+\.[a-zA-Z]{2,}`)
	phonePattern         = regexp.MustCompile(`\+?\d[\d\s\-]{6,}`)
	whitespacePattern    = regexp.MustCompile(`\s+`)
)

var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)my name is ([a-zA-Z\s']+)`),
	regexp.MustCompile(`(?i)this is ([a-zA-Z\s']+)`),
	regexp.MustCompile(`(?i)i am ([a-zA-Z\s']+)`),
}

var nameStoplist = map[string]struct{}{
	"yes":   {},
	"yeah":  {},
	"no":    {},
	"hi":    {},
	"hello": {},
}

var bedKeywords = []string{"bed", "beds", "bedroom", "bedrooms"}

var bathKeywords = []string{"bath", "baths", "bathroom", "bathrooms"}

var budgetKeywords = []string{
	"budget",
	"rent",
	"under",
	"rupee",
	"rupees",
	"rs",
	"pkr",
	"price",
	"cost",
	"around",
	"approx",
	"approximately",
	"about",
	"within",
}

var bedsOpenHints = []string{
	"no requirement",
	"no specific",
	"no preference",
	"dont care",
	"don't care",
	"any bed",
	"any bedroom",
	"whatever bed",
	"no beds needed",
	"no bedroom requirement",
	"bed doesn't matter",
}

var bathsOpenHints = []string{
	"no requirement",
	"no specific",
	"no preference",
	"dont care",
	"don't care",
	"any bath",
	"any bathroom",
	"whatever bath",
	"bath doesn't matter",
}

var budgetOpenHints = []string{
	"no budget",
	"dont have any budget",
	"don't have any budget",
	"budget doesn't matter",
	"open to whatever budget",
	"any budget",
	"whatever budget",
	"budget is flexible",
	"price doesn't matter",
	"no price limit",
	"no price requirement",
	"open budget",
	"i'm open on budget",
}

var openGeneralHints = []string{
	"any",
	"whatever",
	"either",
	"no preference",
	"no requirement",
	"dont care",
	"don't care",
	"no specific",
	"not fussed",
	"no particular",
	"open to any",
	"open on",
}

func containsAny(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// hasOpenPreference reports whether the text mentions the slot at all and pairs
// it with either a slot-specific or a general "no requirement" hint.
func hasOpenPreference(text string, keywords, hints []string) bool {
	if !containsAny(text, keywords) {
		return false
	}
	if containsAny(text, hints) {
		return true
	}
	return containsAny(text, openGeneralHints)
}

// ExtractPreferences updates prefs with every slot the utterance mentions. Slots
// are independent; a concrete value overwrites an earlier one and clears the
// matching open flag, while an open hint never retracts a concrete value.
func ExtractPreferences(prefs *conversation.Preferences, text string) {
	lowered := strings.ToLower(text)

	if match := bedsPattern.FindStringSubmatch(lowered); match != nil {
		if value, err := strconv.Atoi(match[1]); err == nil {
			prefs.SetBeds(value)
		}
	} else {
		for _, entry := range numberWords {
			if strings.Contains(lowered, entry.word+" bed") {
				prefs.SetBeds(entry.value)
				break
			}
		}
	}

	if prefs.Beds == nil && hasOpenPreference(lowered, bedKeywords, bedsOpenHints) {
		prefs.BedsOpen = true
	}

	if match := bathsPattern.FindStringSubmatch(lowered); match != nil {
		if value, err := strconv.Atoi(match[1]); err == nil {
			prefs.SetBaths(value)
		}
	} else if hasOpenPreference(lowered, bathKeywords, bathsOpenHints) {
		prefs.BathsOpen = true
	}

	if area := listing.ResolveArea(lowered); area != "" {
		prefs.Area = area
	}

	if budget := extractBudget(lowered, true); budget > 0 {
		prefs.SetBudget(budget)
	} else if containsAny(lowered, budgetOpenHints) {
		prefs.BudgetOpen = true
	}

	if strings.Contains(lowered, "move") || strings.Contains(lowered, "from") {
		prefs.MoveIn = strings.TrimSpace(text)
	}
}

// ResolvePendingBudget accepts a bare number as a budget answer when the agent
// just asked for one, so the keyword gate implied by context is skipped.
func ResolvePendingBudget(prefs *conversation.Preferences, text, lastPrompt string) {
	if prefs.Budget != nil || prefs.BudgetOpen {
		return
	}
	if lastPrompt != "budget" {
		return
	}
	if value := extractBudget(strings.ToLower(text), false); value > 0 {
		prefs.SetBudget(value)
	}
}

// extractBudget scans every number in the text and keeps the last one. A
// k/thousand suffix scales by 1000, as does a bare value under 500, which is
// read as PKR shorthand ("120" means 120,000).
func extractBudget(text string, requireKeyword bool) int {
	if requireKeyword && !containsAny(text, budgetKeywords) {
		return 0
	}

	best := 0
	for _, match := range genericNumberPattern.FindAllStringSubmatch(text, -1) {
		value, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if match[2] != "" {
			value *= 1000
		} else if value < 500 {
			value *= 1000
		}
		best = value
	}
	return best
}

// ExtractName pulls a visitor name from a booking-stage utterance. Prefix
// patterns run first; a short utterance that is not a bare yes/no style token
// is accepted verbatim as a fallback.
func ExtractName(text string) (string, bool) {
	for _, pattern := range namePatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			return titleCase(strings.TrimSpace(match[1])), true
		}
	}

	if len(strings.Fields(text)) <= 3 {
		candidate := titleCase(strings.TrimSpace(text))
		if candidate != "" {
			if _, stopped := nameStoplist[strings.ToLower(candidate)]; !stopped {
				return candidate, true
			}
		}
	}
	return "", false
}

// ExtractContact finds an email or, failing that, a phone number. Email wins
// when both appear. Whitespace inside a phone match collapses to single spaces.
func ExtractContact(text string) (value, method string, ok bool) {
	if email := emailPattern.FindString(text); email != "" {
		return email, "email", true
	}

	if phone := phonePattern.FindString(text); phone != "" {
		cleaned := strings.TrimSpace(whitespacePattern.ReplaceAllString(phone, " "))
		return cleaned, "phone", true
	}
	return "", "", false
}

// IsPositive reports whether the utterance accepts the current proposal.
func IsPositive(text string) bool {
	return positivePattern.MatchString(text)
}

// IsNegative reports whether the utterance rejects the current proposal.
func IsNegative(text string) bool {
	return negativePattern.MatchString(text)
}

// titleCase upper-cases the first letter of every alphabetic run and
// lower-cases the rest, so "ali khan" becomes "Ali Khan".
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		isLetter := unicode.IsLetter(r)
		switch {
		case isLetter && !prevLetter:
			b.WriteRune(unicode.ToUpper(r))
		case isLetter:
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prevLetter = isLetter
	}
	return b.String()
}
