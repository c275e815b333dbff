// internal/game/deck.go
package game

import (
	"fmt"
	"math/rand"
	"time"
)

const (
	MinPlayers = 4
	MaxPlayers = 8
	DeckSize   = NumSets * SetSize
)

// Deck is an ordered pile of unique cards. The end of the slice is the top of the pile.
type Deck struct {
	cards []Card
}

// NewDeck builds the 48 playable cards in a fixed order: suit-major (Hearts, Diamonds,
// Clubs, Spades) with ranks ascending 2..7, 9..Ace inside each suit.
func NewDeck() *Deck {
	d := &Deck{}
	d.Restack()
	return d
}

// Restack discards whatever is left and rebuilds the full unshuffled deck.
func (d *Deck) Restack() {
	cards := make([]Card, 0, DeckSize)
	for _, suit := range Suits {
		for _, r := range lowRanks {
			cards = append(cards, Card{Suit: suit, Rank: r})
		}
		for _, r := range highRanks {
			cards = append(cards, Card{Suit: suit, Rank: r})
		}
	}
	d.cards = cards
}

// Shuffle permutes the deck in place (Fisher-Yates). A nil source falls back to a time-seeded one.
func (d *Deck) Shuffle(r *rand.Rand) {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	for i := len(d.cards) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

func (d *Deck) Len() int {
	return len(d.cards)
}

// Cards returns a copy of the remaining cards, bottom first.
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}

// Draw removes and returns the top card.
func (d *Deck) Draw() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	idx := len(d.cards) - 1
	c := d.cards[idx]
	d.cards = d.cards[:idx]
	return c, true
}

// Deal hands out cardsPerPlayer cards to every player round-robin: one card to each player
// in seat order per round, drawing from the top.
func (d *Deck) Deal(players []*Player, cardsPerPlayer int) error {
	if !ValidPlayerCount(len(players)) {
		return fmt.Errorf("%w: got %d", ErrInvalidPlayerCount, len(players))
	}
	if cardsPerPlayer < 0 || len(players)*cardsPerPlayer > len(d.cards) {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientCards, len(players)*cardsPerPlayer, len(d.cards))
	}
	for round := 0; round < cardsPerPlayer; round++ {
		for _, p := range players {
			c, _ := d.Draw()
			if err := p.AddCard(c); err != nil {
				return fmt.Errorf("deal round %d: %w", round, err)
			}
		}
	}
	return nil
}

// ValidPlayerCount reports whether n players can form two equal teams at one table.
func ValidPlayerCount(n int) bool {
	return n >= MinPlayers && n <= MaxPlayers && n%2 == 0
}

// CardsPerPlayer splits the whole deck evenly: 12 for 4 players, 8 for 6, 6 for 8.
func CardsPerPlayer(n int) int {
	if n <= 0 {
		return 0
	}
	return DeckSize / n
}
