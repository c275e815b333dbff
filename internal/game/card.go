// internal/game/card.go
package game

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Suit is one of the four French suits.
type Suit int

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

var suitNames = [...]string{"Hearts", "Diamonds", "Clubs", "Spades"}

// Suits lists every suit in deck order.
var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

func (s Suit) String() string {
	if !s.valid() {
		return "Suit(" + strconv.Itoa(int(s)) + ")"
	}
	return suitNames[s]
}

func (s Suit) valid() bool {
	return s >= Hearts && s <= Spades
}

// ParseSuit accepts the full suit name (case-insensitive) or its initial letter.
func ParseSuit(s string) (Suit, error) {
	s = strings.TrimSpace(s)
	for i, name := range suitNames {
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:1]) {
			return Suit(i), nil
		}
	}
	return 0, fmt.Errorf("unknown suit %q", s)
}

// Rank is the face value of a card. The numeric value of the number ranks matches their pip count.
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight // never in play; exists so "8" can be parsed and rejected
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

var (
	lowRanks  = []Rank{Two, Three, Four, Five, Six, Seven}
	highRanks = []Rank{Nine, Ten, Jack, Queen, King, Ace}
)

func (r Rank) String() string {
	switch r {
	case Jack:
		return "Jack"
	case Queen:
		return "Queen"
	case King:
		return "King"
	case Ace:
		return "Ace"
	}
	if r >= Two && r <= Ten {
		return strconv.Itoa(int(r))
	}
	return "Rank(" + strconv.Itoa(int(r)) + ")"
}

// Playable reports whether cards of this rank are part of the 48-card deck.
func (r Rank) Playable() bool {
	return (r >= Two && r <= Seven) || (r >= Nine && r <= Ace)
}

// ParseRank accepts "2".."10", the face names, and the single-letter forms J, Q, K, A (and T for ten).
func ParseRank(s string) (Rank, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "J", "JACK":
		return Jack, nil
	case "Q", "QUEEN":
		return Queen, nil
	case "K", "KING":
		return King, nil
	case "A", "ACE":
		return Ace, nil
	case "T":
		return Ten, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < int(Two) || n > int(Ten) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRank, s)
	}
	return Rank(n), nil
}

// Card identifies a single playing card. Cards compare by value.
type Card struct {
	Suit Suit
	Rank Rank
}

// NewCard builds a card and rejects ranks that are not in play.
func NewCard(rank Rank, suit Suit) (Card, error) {
	if !suit.valid() {
		return Card{}, fmt.Errorf("unknown suit %d", suit)
	}
	if !rank.Playable() {
		return Card{}, fmt.Errorf("%w: %s", ErrInvalidRank, rank)
	}
	return Card{Suit: suit, Rank: rank}, nil
}

// String renders the card for humans, e.g. "Queen of Spades".
func (c Card) String() string {
	return c.Rank.String() + " of " + c.Suit.String()
}

// Key is the wire form of the card, e.g. "10_Hearts".
func (c Card) Key() string {
	return c.Rank.String() + "_" + c.Suit.String()
}

// Set returns the family this card belongs to.
func (c Card) Set() (SetID, error) {
	if !c.Suit.valid() {
		return SetID{}, fmt.Errorf("%w: unknown suit %d", ErrInvalidRank, c.Suit)
	}
	switch {
	case c.Rank >= Two && c.Rank <= Seven:
		return SetID{Tier: Low, Suit: c.Suit}, nil
	case c.Rank >= Nine && c.Rank <= Ace:
		return SetID{Tier: High, Suit: c.Suit}, nil
	}
	return SetID{}, fmt.Errorf("%w: %s is not in play", ErrInvalidRank, c.Rank)
}

// ParseCard reads the wire form "<rank>_<suit>". A space or "of" separator is also accepted.
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	var rankStr, suitStr string
	if i := strings.Index(s, "_"); i >= 0 {
		rankStr, suitStr = s[:i], s[i+1:]
	} else if parts := strings.Fields(s); len(parts) == 2 {
		rankStr, suitStr = parts[0], parts[1]
	} else if len(parts) == 3 && strings.EqualFold(parts[1], "of") {
		rankStr, suitStr = parts[0], parts[2]
	} else {
		return Card{}, fmt.Errorf("malformed card %q", s)
	}
	rank, err := ParseRank(rankStr)
	if err != nil {
		return Card{}, err
	}
	suit, err := ParseSuit(suitStr)
	if err != nil {
		return Card{}, err
	}
	return NewCard(rank, suit)
}

type cardJSON struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

// MarshalJSON renders {"rank":"10","suit":"Hearts"}.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(cardJSON{Rank: c.Rank.String(), Suit: c.Suit.String()})
}

// UnmarshalJSON accepts either the object form or the "10_Hearts" string form.
func (c *Card) UnmarshalJSON(data []byte) error {
	var key string
	if err := json.Unmarshal(data, &key); err == nil {
		parsed, err := ParseCard(key)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}
	var obj cardJSON
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid card: %w", err)
	}
	parsed, err := ParseCard(obj.Rank + "_" + obj.Suit)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalText makes cards usable as JSON object keys.
func (c Card) MarshalText() ([]byte, error) {
	return []byte(c.Key()), nil
}

// UnmarshalText parses the key form.
func (c *Card) UnmarshalText(text []byte) error {
	parsed, err := ParseCard(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
