package lifecycle

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Common lifecycle errors.
var (
	ErrNotRunning        = errors.New("not running")
	ErrAlreadyRunning    = errors.New("already running")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Manager guards the server state machine.
type Manager struct {
	mu           sync.RWMutex
	state        State
	logger       zerolog.Logger
	eventEmitter EventEmitter
}

// NewManager creates a new lifecycle manager in StateStopped.
// emitter may be nil.
func NewManager(logger zerolog.Logger, emitter EventEmitter) *Manager {
	return &Manager{
		state:        StateStopped,
		logger:       logger,
		eventEmitter: emitter,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// TransitionTo attempts to transition to a new state.
// Returns an error wrapping ErrInvalidTransition if the transition is not valid.
func (m *Manager) TransitionTo(newState State, reason string) error {
	m.mu.Lock()
	oldState := m.state
	if !CanTransition(oldState, newState) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, oldState, newState)
	}
	m.state = newState
	m.mu.Unlock()

	// Emit event outside of lock
	if m.eventEmitter != nil {
		m.eventEmitter.OnStateChange(oldState, newState, reason)
	}

	m.logger.Debug().
		Str("from", oldState.String()).
		Str("to", newState.String()).
		Str("reason", reason).
		Msg("state transition")

	return nil
}

// Begin moves the manager into StateStarting.
// Returns ErrAlreadyRunning unless the manager is stopped or crashed.
func (m *Manager) Begin(reason string) error {
	if !m.CanStart() {
		return ErrAlreadyRunning
	}
	return m.TransitionTo(StateStarting, reason)
}

// CanStart returns true if the server can be started.
func (m *Manager) CanStart() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateStopped || m.state == StateCrashed
}

// CanStop returns true if the server can be stopped.
func (m *Manager) CanStop() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateListening
}
