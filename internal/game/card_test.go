// internal/game/card_test.go
package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCard(t *testing.T) {
	tests := []struct {
		in   string
		want Card
	}{
		{"10_Hearts", Card{Suit: Hearts, Rank: Ten}},
		{"Queen_Spades", Card{Suit: Spades, Rank: Queen}},
		{"Q_Spades", Card{Suit: Spades, Rank: Queen}},
		{"A of Clubs", Card{Suit: Clubs, Rank: Ace}},
		{"2 D", Card{Suit: Diamonds, Rank: Two}},
	}
	for _, tc := range tests {
		got, err := ParseCard(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseCard("8_Hearts")
	assert.ErrorIs(t, err, ErrInvalidRank)
	_, err = ParseCard("1_Hearts")
	assert.ErrorIs(t, err, ErrInvalidRank)
	_, err = ParseCard("Jack_Stars")
	assert.Error(t, err)
	_, err = ParseCard("nonsense")
	assert.Error(t, err)
}

func TestCardSet(t *testing.T) {
	set, err := Card{Suit: Hearts, Rank: Seven}.Set()
	require.NoError(t, err)
	assert.Equal(t, SetID{Tier: Low, Suit: Hearts}, set)

	set, err = Card{Suit: Spades, Rank: Nine}.Set()
	require.NoError(t, err)
	assert.Equal(t, SetID{Tier: High, Suit: Spades}, set)

	_, err = Card{Suit: Clubs, Rank: Eight}.Set()
	assert.ErrorIs(t, err, ErrInvalidRank)

	_, err = NewCard(Eight, Clubs)
	assert.ErrorIs(t, err, ErrInvalidRank)
}

func TestCardStrings(t *testing.T) {
	c := Card{Suit: Spades, Rank: Queen}
	assert.Equal(t, "Queen of Spades", c.String())
	assert.Equal(t, "Queen_Spades", c.Key())
	assert.Equal(t, "10_Hearts", Card{Suit: Hearts, Rank: Ten}.Key())
}

func TestCardJSON(t *testing.T) {
	c := Card{Suit: Diamonds, Rank: Jack}
	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rank":"Jack","suit":"Diamonds"}`, string(data))

	var fromObject, fromKey Card
	require.NoError(t, json.Unmarshal(data, &fromObject))
	require.NoError(t, json.Unmarshal([]byte(`"Jack_Diamonds"`), &fromKey))
	assert.Equal(t, c, fromObject)
	assert.Equal(t, c, fromKey)

	var bad Card
	assert.ErrorIs(t, json.Unmarshal([]byte(`"8_Diamonds"`), &bad), ErrInvalidRank)

	// Cards work as JSON object keys through the text form.
	byCard := map[Card]int{c: 3}
	data, err = json.Marshal(byCard)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Jack_Diamonds":3}`, string(data))
	decoded := map[Card]int{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, byCard, decoded)
}
