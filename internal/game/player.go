// internal/game/player.go
package game

import (
	"fmt"

	"github.com/google/uuid"
)

// ControlKind says who makes decisions for a seat.
type ControlKind int

const (
	ControlHuman ControlKind = iota
	ControlBot
)

// Control tags a seat as human-driven or bot-driven. Bots carry the policy that plays for them.
type Control struct {
	Kind   ControlKind
	Policy Policy
}

// HumanControl marks a seat as played by a connected user.
func HumanControl() Control {
	return Control{Kind: ControlHuman}
}

// BotControl marks a seat as played by the given policy.
func BotControl(p Policy) Control {
	return Control{Kind: ControlBot, Policy: p}
}

// Player is one seat at the table together with the hand it holds.
// The hand is only changed through the game's request and declare operations.
type Player struct {
	Seat      int       `json:"id"`
	Name      string    `json:"name"`
	Team      int       `json:"team"`
	Control   Control   `json:"-"`
	UserID    uuid.UUID `json:"-"`
	Connected bool      `json:"connected"`

	hand []Card
}

// NewPlayer returns a player with an empty hand.
func NewPlayer(seat int, name string, team int, control Control) *Player {
	return &Player{
		Seat:    seat,
		Name:    name,
		Team:    team,
		Control: control,
		hand:    []Card{},
	}
}

// IsBot reports whether a policy plays this seat.
func (p *Player) IsBot() bool {
	return p.Control.Kind == ControlBot
}

// AddCard puts a card in the hand.
func (p *Player) AddCard(c Card) error {
	if p.HasCard(c) {
		return fmt.Errorf("%w: %s (seat %d)", ErrDuplicateCard, c, p.Seat)
	}
	p.hand = append(p.hand, c)
	return nil
}

// RemoveCard takes a card out of the hand, preserving the order of the rest.
func (p *Player) RemoveCard(c Card) (Card, error) {
	for i, held := range p.hand {
		if held == c {
			p.hand = append(p.hand[:i], p.hand[i+1:]...)
			return held, nil
		}
	}
	return Card{}, fmt.Errorf("%w: %s (seat %d)", ErrCardNotFound, c, p.Seat)
}

func (p *Player) HasCard(c Card) bool {
	for _, held := range p.hand {
		if held == c {
			return true
		}
	}
	return false
}

// HasCardOfSet is the root-card rule: a player may only ask for cards of a family they already hold.
func (p *Player) HasCardOfSet(id SetID) bool {
	for _, held := range p.hand {
		if s, err := held.Set(); err == nil && s == id {
			return true
		}
	}
	return false
}

func (p *Player) HandSize() int {
	return len(p.hand)
}

// Cards returns a copy of the hand.
func (p *Player) Cards() []Card {
	out := make([]Card, len(p.hand))
	copy(out, p.hand)
	return out
}
