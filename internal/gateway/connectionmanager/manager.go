package connectionmanager

import (
	csmap "github.com/mhmtszr/concurrent-swiss-map"

	"gitlab.com/judge-dispatch.net/internal/core/ports/primary"
)

// ConnectionManager maps connection ids to live, ready connections
type ConnectionManager struct {
	connections *csmap.CsMap[string, *ConnectionState]
	Logger      primary.Logger
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(logger primary.Logger) *ConnectionManager {
	return &ConnectionManager{
		connections: csmap.Create[string, *ConnectionState](),
		Logger:      logger,
	}
}

// Register adds a connection once its session began
func (cm *ConnectionManager) Register(connectionID string, state *ConnectionState) {
	cm.connections.Store(connectionID, state)
}

// Lookup returns the registered connection, if any
func (cm *ConnectionManager) Lookup(connectionID string) (*ConnectionState, bool) {
	return cm.connections.Load(connectionID)
}

// Unregister removes a connection; it reports whether the id was registered
func (cm *ConnectionManager) Unregister(connectionID string) bool {
	return cm.connections.Delete(connectionID)
}

// ForJudgeClient returns every registered connection of a judge client
func (cm *ConnectionManager) ForJudgeClient(judgeClientID int) []*ConnectionState {
	var states []*ConnectionState
	cm.connections.Range(func(_ string, state *ConnectionState) bool {
		if client := state.JudgeClient(); client != nil && client.ID == judgeClientID {
			states = append(states, state)
		}
		return false
	})
	return states
}

func (cm *ConnectionManager) Count() int {
	return cm.connections.Count()
}

// CloseAll closes every registered connection
func (cm *ConnectionManager) CloseAll(reason string) {
	var states []*ConnectionState
	cm.connections.Range(func(_ string, state *ConnectionState) bool {
		states = append(states, state)
		return false
	})
	for _, state := range states {
		state.Close(reason)
	}
	cm.Logger.Info("Closed all judge connections", "count", len(states))
}
