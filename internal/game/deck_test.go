// internal/game/deck_test.go
package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetMembersCoverDeck(t *testing.T) {
	seen := make(map[Card]int)
	for _, id := range AllSets() {
		members, err := SetMembers(id)
		require.NoError(t, err)
		require.Len(t, members, SetSize)
		for _, c := range members {
			set, err := c.Set()
			require.NoError(t, err)
			assert.Equal(t, id, set, "%s", c)
			seen[c]++
		}
	}
	deck := NewDeck().Cards()
	require.Len(t, deck, DeckSize)
	assert.Len(t, seen, DeckSize)
	for _, c := range deck {
		assert.Equal(t, 1, seen[c], "%s", c)
	}

	_, err := SetMembers(SetID{Tier: High, Suit: Suit(9)})
	assert.ErrorIs(t, err, ErrUnknownSet)
}

func TestParseSetID(t *testing.T) {
	for in, want := range map[string]SetID{
		"Low Hearts":     {Tier: Low, Suit: Hearts},
		"high_spades":    {Tier: High, Suit: Spades},
		"Minor Clubs":    {Tier: Low, Suit: Clubs},
		"Major Diamonds": {Tier: High, Suit: Diamonds},
	} {
		got, err := ParseSetID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "Middle Hearts", "Low", "Low Stars"} {
		_, err := ParseSetID(in)
		assert.ErrorIs(t, err, ErrUnknownSet, in)
	}
	assert.Equal(t, "High Spades", SetID{Tier: High, Suit: Spades}.String())
}

func TestNewDeckOrder(t *testing.T) {
	cards := NewDeck().Cards()
	assert.Equal(t, Card{Suit: Hearts, Rank: Two}, cards[0])
	assert.Equal(t, Card{Suit: Hearts, Rank: Seven}, cards[5])
	assert.Equal(t, Card{Suit: Hearts, Rank: Nine}, cards[6])
	assert.Equal(t, Card{Suit: Diamonds, Rank: Two}, cards[12])
	assert.Equal(t, Card{Suit: Spades, Rank: Ace}, cards[DeckSize-1])
	for _, c := range cards {
		assert.NotEqual(t, Eight, c.Rank)
	}
}

func TestShuffleIsSeededAndKeepsCards(t *testing.T) {
	a, b := NewDeck(), NewDeck()
	a.Shuffle(rand.New(rand.NewSource(7)))
	b.Shuffle(rand.New(rand.NewSource(7)))
	assert.Equal(t, a.Cards(), b.Cards())
	assert.Equal(t, DeckSize, a.Len())
	assert.ElementsMatch(t, NewDeck().Cards(), a.Cards())
	assert.NotEqual(t, NewDeck().Cards(), a.Cards())
}

func TestDealRoundRobin(t *testing.T) {
	d := NewDeck()
	order := d.Cards()
	players := make([]*Player, 4)
	for i := range players {
		players[i] = NewPlayer(i, "", i%2, HumanControl())
	}
	require.NoError(t, d.Deal(players, 3))
	assert.Equal(t, DeckSize-12, d.Len())

	// Draws come off the end: seat 0 gets the last card, seat 1 the one before it, and so on.
	top := len(order) - 1
	for round := 0; round < 3; round++ {
		for seat, p := range players {
			assert.Equal(t, order[top-(round*4+seat)], p.Cards()[round], "round %d seat %d", round, seat)
		}
	}
}

func TestDealErrors(t *testing.T) {
	mk := func(n int) []*Player {
		ps := make([]*Player, n)
		for i := range ps {
			ps[i] = NewPlayer(i, "", i%2, HumanControl())
		}
		return ps
	}
	d := NewDeck()
	assert.ErrorIs(t, d.Deal(mk(3), 1), ErrInvalidPlayerCount)
	assert.ErrorIs(t, d.Deal(mk(5), 1), ErrInvalidPlayerCount)
	assert.ErrorIs(t, d.Deal(mk(10), 1), ErrInvalidPlayerCount)
	assert.ErrorIs(t, d.Deal(mk(4), 13), ErrInsufficientCards)
	assert.Equal(t, DeckSize, d.Len(), "failed deals leave the deck alone")

	require.NoError(t, d.Deal(mk(8), CardsPerPlayer(8)))
	assert.Equal(t, 0, d.Len())
	_, ok := d.Draw()
	assert.False(t, ok)

	d.Restack()
	assert.Equal(t, DeckSize, d.Len())
}

func TestCardsPerPlayer(t *testing.T) {
	assert.Equal(t, 12, CardsPerPlayer(4))
	assert.Equal(t, 8, CardsPerPlayer(6))
	assert.Equal(t, 6, CardsPerPlayer(8))
	assert.Equal(t, 0, CardsPerPlayer(0))
}

func TestPlayerHand(t *testing.T) {
	p := NewPlayer(2, "p", 0, HumanControl())
	c := Card{Suit: Clubs, Rank: King}
	require.NoError(t, p.AddCard(c))
	assert.ErrorIs(t, p.AddCard(c), ErrDuplicateCard)
	assert.True(t, p.HasCard(c))
	assert.True(t, p.HasCardOfSet(SetID{Tier: High, Suit: Clubs}))
	assert.False(t, p.HasCardOfSet(SetID{Tier: Low, Suit: Clubs}))

	cards := p.Cards()
	cards[0] = Card{Suit: Hearts, Rank: Two}
	assert.True(t, p.HasCard(c), "Cards returns a copy")

	got, err := p.RemoveCard(c)
	require.NoError(t, err)
	assert.Equal(t, c, got)
	assert.Equal(t, 0, p.HandSize())
	_, err = p.RemoveCard(c)
	assert.ErrorIs(t, err, ErrCardNotFound)
}
