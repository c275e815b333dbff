package game

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// GameStore keeps every live table in memory.
type GameStore struct {
	mu    sync.Mutex
	games map[uuid.UUID]*LiteratureGame
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[uuid.UUID]*LiteratureGame),
	}
}

func (s *GameStore) AddGame(game *LiteratureGame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.ID] = game
}

func (s *GameStore) GetGame(id uuid.UUID) (*LiteratureGame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, exists := s.games[id]
	return g, exists
}

func (s *GameStore) DeleteGame(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
}

// ListGames returns the IDs of all stored games in a stable order.
func (s *GameStore) ListGames() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(s.games))
	for id := range s.games {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
