// internal/game/rules.go
package game

import "fmt"

// Team assignment schemes.
const (
	TeamsAlternate = "alternate" // even seats vs odd seats
	TeamsSplit     = "split"     // first half vs second half
)

// HouseRules defines the optional rule variants a table can be created with.
type HouseRules struct {
	TeamAssignment             string `json:"teamAssignment"`             // "alternate" (default) or "split"
	RetireCardsOnFailedDeclare bool   `json:"retireCardsOnFailedDeclare"` // remove the six cards even when a declaration is wrong
	BotDelayMs                 int    `json:"botDelayMs"`                 // pause before bots act; presentation only
}

// DefaultHouseRules returns the rules used when a table does not override them.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		TeamAssignment:             TeamsAlternate,
		RetireCardsOnFailedDeclare: true,
		BotDelayMs:                 800,
	}
}

// TeamOf returns the team (0 or 1) of a seat at a table of n players.
func (rules HouseRules) TeamOf(seat, n int) int {
	if rules.TeamAssignment == TeamsSplit {
		if seat < n/2 {
			return 0
		}
		return 1
	}
	return seat % 2
}

// Update will update the house rules with the new rules provided.
// Keys that are absent or null are ignored and the old value persists.
func (rules *HouseRules) Update(newRules map[string]interface{}) error {
	if val, exists := newRules["teamAssignment"]; exists && val != nil {
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("invalid type for teamAssignment")
		}
		if s != TeamsAlternate && s != TeamsSplit {
			return fmt.Errorf("teamAssignment must be %q or %q", TeamsAlternate, TeamsSplit)
		}
		rules.TeamAssignment = s
	}

	if val, exists := newRules["retireCardsOnFailedDeclare"]; exists && val != nil {
		b, ok := val.(bool)
		if !ok {
			return fmt.Errorf("invalid type for retireCardsOnFailedDeclare")
		}
		rules.RetireCardsOnFailedDeclare = b
	}

	if val, exists := newRules["botDelayMs"]; exists && val != nil {
		// JSON numbers decode as float64
		var n int
		switch v := val.(type) {
		case float64:
			n = int(v)
		case int:
			n = v
		default:
			return fmt.Errorf("invalid type for botDelayMs")
		}
		if n < 0 {
			return fmt.Errorf("botDelayMs must be non-negative")
		}
		rules.BotDelayMs = n
	}
	return nil
}

// ParseRules applies a map of overrides on top of current and validates the types.
func ParseRules(rules map[string]interface{}, current HouseRules) (HouseRules, error) {
	houseRules := current
	err := houseRules.Update(rules)
	return houseRules, err
}
