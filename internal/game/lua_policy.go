// internal/game/lua_policy.go
package game

import (
	"fmt"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"
)

// LuaPolicy runs a bot strategy written in Lua. The script must define a global
//
//	function choose(view) ... end
//
// where view has fields seat, team, hand (card keys like "10_Hearts"), opponents and
// teammates (lists of {seat=, team=, count=}) and claimed (set names). choose returns one of
//
//	{action="skip"}
//	{action="request", target=<seat>, card="<card key>"}
//	{action="declare", set="Low Hearts", assignment={["2_Hearts"]=<seat>, ...}}
//
// The helpers set_of(card) and members(set) are available to the script. Any script error or
// malformed result falls back to the wrapped policy.
type LuaPolicy struct {
	mu       sync.Mutex
	state    *lua.LState
	fallback Policy
}

// NewLuaPolicy compiles script into a fresh interpreter. fallback nil means RandomPolicy.
func NewLuaPolicy(script string, fallback Policy) (*LuaPolicy, error) {
	if fallback == nil {
		fallback = NewRandomPolicy(nil)
	}
	L := lua.NewState()
	L.SetGlobal("set_of", L.NewFunction(luaSetOf))
	L.SetGlobal("members", L.NewFunction(luaMembers))
	if err := L.DoString(script); err != nil {
		L.Close()
		return nil, fmt.Errorf("loading bot script: %w", err)
	}
	if L.GetGlobal("choose").Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("bot script does not define a choose function")
	}
	return &LuaPolicy{state: L, fallback: fallback}, nil
}

// LoadLuaPolicyFile reads and compiles a script from disk.
func LoadLuaPolicyFile(path string, fallback Policy) (*LuaPolicy, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bot script %s: %w", path, err)
	}
	return NewLuaPolicy(string(src), fallback)
}

// Close releases the interpreter.
func (p *LuaPolicy) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != nil {
		p.state.Close()
		p.state = nil
	}
}

func (p *LuaPolicy) Choose(view BotView) BotAction {
	action, err := p.run(view)
	if err != nil {
		log.WithField("seat", view.Seat).Warnf("lua policy failed, using fallback: %v", err)
		return p.fallback.Choose(view)
	}
	return action
}

func (p *LuaPolicy) run(view BotView) (BotAction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == nil {
		return BotAction{}, fmt.Errorf("policy closed")
	}
	L := p.state
	if err := L.CallByParam(lua.P{
		Fn:      L.GetGlobal("choose"),
		NRet:    1,
		Protect: true,
	}, viewTable(L, view)); err != nil {
		return BotAction{}, err
	}
	ret := L.Get(-1)
	L.Pop(1)
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return BotAction{}, fmt.Errorf("choose returned %s, want table", ret.Type())
	}
	return actionFromTable(tbl)
}

func viewTable(L *lua.LState, view BotView) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("seat", lua.LNumber(view.Seat))
	t.RawSetString("team", lua.LNumber(view.Team))

	hand := L.NewTable()
	for _, c := range view.LiveHand() {
		hand.Append(lua.LString(c.Key()))
	}
	t.RawSetString("hand", hand)

	seats := func(list []SeatView) *lua.LTable {
		out := L.NewTable()
		for _, s := range list {
			e := L.NewTable()
			e.RawSetString("seat", lua.LNumber(s.Seat))
			e.RawSetString("team", lua.LNumber(s.Team))
			e.RawSetString("count", lua.LNumber(s.CardCount))
			out.Append(e)
		}
		return out
	}
	t.RawSetString("opponents", seats(view.Opponents))
	t.RawSetString("teammates", seats(view.Teammates))

	claimed := L.NewTable()
	for _, id := range AllSets() {
		if view.Claimed[id] {
			claimed.Append(lua.LString(id.String()))
		}
	}
	t.RawSetString("claimed", claimed)
	return t
}

func actionFromTable(t *lua.LTable) (BotAction, error) {
	kind := lua.LVAsString(t.RawGetString("action"))
	switch kind {
	case "", "skip":
		return BotAction{Kind: BotSkip}, nil
	case "request":
		target, ok := t.RawGetString("target").(lua.LNumber)
		if !ok {
			return BotAction{}, fmt.Errorf("request without numeric target")
		}
		card, err := ParseCard(lua.LVAsString(t.RawGetString("card")))
		if err != nil {
			return BotAction{}, err
		}
		return BotAction{Kind: BotRequest, Target: int(target), Card: card}, nil
	case "declare":
		set, err := ParseSetID(lua.LVAsString(t.RawGetString("set")))
		if err != nil {
			return BotAction{}, err
		}
		raw, ok := t.RawGetString("assignment").(*lua.LTable)
		if !ok {
			return BotAction{}, fmt.Errorf("declare without assignment table")
		}
		assignment := make(map[Card]int)
		var perr error
		raw.ForEach(func(k, v lua.LValue) {
			if perr != nil {
				return
			}
			c, err := ParseCard(lua.LVAsString(k))
			if err != nil {
				perr = err
				return
			}
			seat, ok := v.(lua.LNumber)
			if !ok {
				perr = fmt.Errorf("assignment for %s is not a seat", c)
				return
			}
			assignment[c] = int(seat)
		})
		if perr != nil {
			return BotAction{}, perr
		}
		return BotAction{Kind: BotDeclare, Set: set, Assignment: assignment}, nil
	default:
		return BotAction{}, fmt.Errorf("unknown action %q", kind)
	}
}

// set_of("10_Hearts") -> "High Hearts", or nil for an unplayable card.
func luaSetOf(L *lua.LState) int {
	c, err := ParseCard(L.CheckString(1))
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}
	set, err := c.Set()
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(set.String()))
	return 1
}

// members("High Hearts") -> list of six card keys.
func luaMembers(L *lua.LState) int {
	set, err := ParseSetID(L.CheckString(1))
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}
	cards, _ := SetMembers(set)
	out := L.NewTable()
	for _, c := range cards {
		out.Append(lua.LString(c.Key()))
	}
	L.Push(out)
	return 1
}
