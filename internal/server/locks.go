package server

import "sync"

// gameLocks serializes world-state writes per game. Two concurrent
// diplomacy interactions (or a diplomacy interaction racing a turn
// submission) on the same game would otherwise clobber each other's
// briefing ring insert or trust update.
type gameLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newGameLocks() *gameLocks {
	return &gameLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the write section for one game and returns its
// release func.
func (g *gameLocks) lock(gameID string) func() {
	g.mu.Lock()
	m, ok := g.locks[gameID]
	if !ok {
		m = &sync.Mutex{}
		g.locks[gameID] = m
	}
	g.mu.Unlock()

	m.Lock()
	return m.Unlock
}
