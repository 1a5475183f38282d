package conversation

import (
	"fmt"
	"strconv"
	"strings"
)

// Preferences holds the slot values extracted from visitor utterances. A nil
// numeric field means the slot is still unanswered; the matching open flag
// means the visitor explicitly has no requirement for it. Setting a concrete
// value clears the open flag, while a later open hint never erases a value.
type Preferences struct {
	Beds       *int
	Baths      *int
	Area       string
	Budget     *int
	MoveIn     string
	BedsOpen   bool
	BathsOpen  bool
	BudgetOpen bool
}

// SetBeds records a concrete bedroom count and clears the open flag.
func (p *Preferences) SetBeds(n int) {
	p.Beds = &n
	p.BedsOpen = false
}

// SetBaths records a concrete bathroom count and clears the open flag.
func (p *Preferences) SetBaths(n int) {
	p.Baths = &n
	p.BathsOpen = false
}

// SetBudget records a concrete monthly budget and clears the open flag.
func (p *Preferences) SetBudget(amount int) {
	p.Budget = &amount
	p.BudgetOpen = false
}

// BedsSatisfied reports whether the bedroom slot no longer needs asking.
func (p *Preferences) BedsSatisfied() bool {
	return p.Beds != nil || p.BedsOpen
}

// BudgetSatisfied reports whether the budget slot no longer needs asking.
func (p *Preferences) BudgetSatisfied() bool {
	return p.Budget != nil || p.BudgetOpen
}

// Summary flattens the captured preferences for prompt building and logs.
func (p *Preferences) Summary() string {
	var details []string

	switch {
	case p.BedsOpen && p.Beds == nil:
		details = append(details, "beds=any")
	case p.Beds != nil:
		details = append(details, fmt.Sprintf("beds=%d", *p.Beds))
	}

	switch {
	case p.BathsOpen && p.Baths == nil:
		details = append(details, "baths=any")
	case p.Baths != nil:
		details = append(details, fmt.Sprintf("baths=%d", *p.Baths))
	}

	if p.Area != "" {
		details = append(details, "area="+p.Area)
	}

	switch {
	case p.BudgetOpen && p.Budget == nil:
		details = append(details, "budget=open")
	case p.Budget != nil:
		details = append(details, "budget≈"+FormatPKR(*p.Budget))
	}

	if p.MoveIn != "" {
		details = append(details, "move_in mentioned")
	}

	if len(details) == 0 {
		return "none captured yet"
	}
	return strings.Join(details, ", ")
}

// clone deep-copies the preferences, including the optional numeric slots.
func (p *Preferences) clone() Preferences {
	out := *p
	out.Beds = cloneInt(p.Beds)
	out.Baths = cloneInt(p.Baths)
	out.Budget = cloneInt(p.Budget)
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// BookingInfo carries the visitor details collected during the booking stage.
// Fields fill monotonically and are never cleared once captured.
type BookingInfo struct {
	Name          string
	Contact       string
	ContactMethod string
	PreferredSlot string
}

// FormatPKR renders a rupee amount with thousands grouping, e.g. "PKR 120,000".
func FormatPKR(amount int) string {
	digits := strconv.Itoa(amount)
	negative := strings.HasPrefix(digits, "-")
	if negative {
		digits = digits[1:]
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}

	grouped := b.String()
	if negative {
		grouped = "-" + grouped
	}
	return "PKR " + grouped
}
