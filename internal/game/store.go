package game

import (
	"context"
	"errors"
	"sync"

	"github.com/detekoi/chatsage-sub000/internal/domain"
	"github.com/detekoi/chatsage-sub000/internal/shared/logger"
)

// GameStateStore maps channel identifiers onto their GameState records.
// Records are created lazily; configuration loading happens outside the
// store lock so a slow load for one channel never stalls the others.
type GameStateStore struct {
	locker sync.RWMutex
	states map[string]*GameState
}

func NewGameStateStore() *GameStateStore {
	return &GameStateStore{states: make(map[string]*GameState)}
}

// Get returns the state for channel if one exists.
func (s *GameStateStore) Get(channel string) (*GameState, bool) {
	s.locker.RLock()
	defer s.locker.RUnlock()
	st, ok := s.states[channel]
	return st, ok
}

// GetOrCreate returns the state for channel, creating it with loadConfig
// on first access. Two racing creators may both invoke loadConfig; the
// loser's record is discarded.
func (s *GameStateStore) GetOrCreate(channel string, loadConfig func() domain.ChannelConfig) *GameState {
	if st, ok := s.Get(channel); ok {
		return st
	}

	config := loadConfig()

	s.locker.Lock()
	defer s.locker.Unlock()
	if st, ok := s.states[channel]; ok {
		return st
	}
	st := newGameState(channel, config)
	s.states[channel] = st
	logger.Debugf("[GameStore] Created state for channel %s", channel)
	return st
}

// All snapshots the current set of states for the ticker.
func (s *GameStateStore) All() []*GameState {
	s.locker.RLock()
	defer s.locker.RUnlock()
	states := make([]*GameState, 0, len(s.states))
	for _, st := range s.states {
		states = append(states, st)
	}
	return states
}

// loadConfigOrDefault fetches the channel's persisted configuration,
// falling back to (and persisting) the defaults on miss or failure.
func (e *Engine) loadConfigOrDefault(channel string) domain.ChannelConfig {
	ctx, cancel := context.WithTimeout(context.Background(), COLLABORATOR_TIMEOUT)
	defer cancel()

	cfg, err := e.repo.LoadChannelConfig(ctx, channel)
	if err == nil {
		return cfg
	}
	if !errors.Is(err, domain.ErrConfigNotFound) {
		logger.Warningf("[Engine %s] Loading channel config failed: %v", channel, err)
	}

	cfg = domain.DefaultChannelConfig()
	if err := e.repo.SaveChannelConfig(ctx, channel, cfg); err != nil {
		logger.Warningf("[Engine %s] Persisting default config failed: %v", channel, err)
	}
	return cfg
}
