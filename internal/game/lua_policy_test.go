// internal/game/lua_policy_test.go
package game

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greedyScript = `
function choose(view)
  local counts = {}
  for _, card in ipairs(view.hand) do
    local s = set_of(card)
    counts[s] = (counts[s] or 0) + 1
    if counts[s] == 6 then
      local assignment = {}
      for _, m in ipairs(members(s)) do assignment[m] = view.seat end
      return {action = "declare", set = s, assignment = assignment}
    end
  end
  if #view.hand == 0 then return {action = "skip"} end

  local held = {}
  for _, card in ipairs(view.hand) do held[card] = true end
  for _, m in ipairs(members(set_of(view.hand[1]))) do
    if not held[m] then
      for _, opp in ipairs(view.opponents) do
        if opp.count > 0 then
          return {action = "request", target = opp.seat, card = m}
        end
      end
    end
  end
  return {action = "skip"}
end
`

func TestLuaPolicyRequests(t *testing.T) {
	p, err := NewLuaPolicy(greedyScript, &scriptedPolicy{})
	require.NoError(t, err)
	defer p.Close()

	view := BotView{
		Seat: 1,
		Hand: []Card{{Suit: Spades, Rank: Three}},
		Opponents: []SeatView{
			{Seat: 0, CardCount: 0},
			{Seat: 2, CardCount: 4},
		},
	}
	a := p.Choose(view)
	require.Equal(t, BotRequest, a.Kind)
	assert.Equal(t, 2, a.Target)
	assert.Equal(t, Card{Suit: Spades, Rank: Two}, a.Card)
}

func TestLuaPolicyDeclares(t *testing.T) {
	p, err := NewLuaPolicy(greedyScript, nil)
	require.NoError(t, err)
	defer p.Close()

	set := SetID{Tier: High, Suit: Diamonds}
	members, _ := SetMembers(set)
	a := p.Choose(BotView{Seat: 5, Hand: members})
	require.Equal(t, BotDeclare, a.Kind)
	assert.Equal(t, set, a.Set)
	assert.Equal(t, declareOwnSet(5, set).Assignment, a.Assignment)
}

func TestLuaPolicyFallsBack(t *testing.T) {
	fallback := &scriptedPolicy{actions: []BotAction{{Kind: BotRequest, Target: 9}}}
	p, err := NewLuaPolicy(`function choose(view) error("boom") end`, fallback)
	require.NoError(t, err)
	defer p.Close()

	a := p.Choose(BotView{Seat: 0})
	assert.Equal(t, 9, a.Target)
	assert.Len(t, fallback.views, 1)

	bad, err := NewLuaPolicy(`function choose(view) return {action = "request", target = 1, card = "8_Hearts"} end`, &scriptedPolicy{})
	require.NoError(t, err)
	defer bad.Close()
	assert.Equal(t, BotSkip, bad.Choose(BotView{}).Kind)
}

func TestLuaPolicyLoadErrors(t *testing.T) {
	_, err := NewLuaPolicy(`this is not lua`, nil)
	assert.Error(t, err)
	_, err = NewLuaPolicy(`x = 1`, nil)
	assert.Error(t, err)

	_, err = LoadLuaPolicyFile(filepath.Join(t.TempDir(), "missing.lua"), nil)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bot.lua")
	require.NoError(t, os.WriteFile(path, []byte(greedyScript), 0o644))
	p, err := LoadLuaPolicyFile(path, nil)
	require.NoError(t, err)
	p.Close()
	p.Close()
}
