// internal/game/set.go
package game

import (
	"fmt"
	"strings"
)

// SetTier splits each suit into two families.
type SetTier int

const (
	Low  SetTier = iota // 2 through 7
	High                // 9 through Ace
)

func (t SetTier) String() string {
	switch t {
	case Low:
		return "Low"
	case High:
		return "High"
	}
	return fmt.Sprintf("SetTier(%d)", int(t))
}

// SetSize is the number of cards in every family.
const SetSize = 6

// NumSets is the number of families in the deck.
const NumSets = 8

// SetID names one family, e.g. "Low Hearts".
type SetID struct {
	Tier SetTier
	Suit Suit
}

func (s SetID) String() string {
	return s.Tier.String() + " " + s.Suit.String()
}

func (s SetID) valid() bool {
	return (s.Tier == Low || s.Tier == High) && s.Suit.valid()
}

// ParseSetID reads "Low Hearts" or "High Spades". "Minor"/"Major" and an underscore separator are also accepted.
func ParseSetID(s string) (SetID, error) {
	parts := strings.Fields(strings.ReplaceAll(strings.TrimSpace(s), "_", " "))
	if len(parts) != 2 {
		return SetID{}, fmt.Errorf("%w: %q", ErrUnknownSet, s)
	}
	var tier SetTier
	switch strings.ToLower(parts[0]) {
	case "low", "minor":
		tier = Low
	case "high", "major":
		tier = High
	default:
		return SetID{}, fmt.Errorf("%w: %q", ErrUnknownSet, s)
	}
	suit, err := ParseSuit(parts[1])
	if err != nil {
		return SetID{}, fmt.Errorf("%w: %q", ErrUnknownSet, s)
	}
	return SetID{Tier: tier, Suit: suit}, nil
}

// MarshalText makes set IDs usable as JSON values and map keys.
func (s SetID) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SetID) UnmarshalText(text []byte) error {
	parsed, err := ParseSetID(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// SetMembers returns the six cards of a family in ascending rank order.
func SetMembers(id SetID) ([]Card, error) {
	if !id.valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnknownSet, id)
	}
	ranks := lowRanks
	if id.Tier == High {
		ranks = highRanks
	}
	members := make([]Card, 0, SetSize)
	for _, r := range ranks {
		members = append(members, Card{Suit: id.Suit, Rank: r})
	}
	return members, nil
}

// AllSets lists the eight families in deck order.
func AllSets() []SetID {
	sets := make([]SetID, 0, NumSets)
	for _, suit := range Suits {
		sets = append(sets, SetID{Tier: Low, Suit: suit}, SetID{Tier: High, Suit: suit})
	}
	return sets
}
