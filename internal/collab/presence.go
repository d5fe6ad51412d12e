package collab

import (
	"encoding/json"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// PresenceManager keeps the latest cursor, hover point, selection and held
// gizmo handle of every user in a room.
type PresenceManager struct {
	mu        sync.RWMutex
	presences map[string]*PresencePayload // userID -> presence
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		presences: make(map[string]*PresencePayload),
	}
}

func (pm *PresenceManager) Update(userID string, p *PresencePayload) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.presences[userID] = p
}

func (pm *PresenceManager) Remove(userID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.presences, userID)
}

func (pm *PresenceManager) GetAll() map[string]*PresencePayload {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return maps.Clone(pm.presences)
}

// PruneSelections drops ids that no longer exist from every user's
// advertised selection, e.g. after a delete or ungroup.
func (pm *PresenceManager) PruneSelections(exists func(id string) bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	for userID, p := range pm.presences {
		if len(p.Selection) == 0 {
			continue
		}
		kept := slices.DeleteFunc(slices.Clone(p.Selection), func(id string) bool { return !exists(id) })
		if len(kept) == len(p.Selection) {
			continue
		}
		next := *p
		next.Selection = kept
		pm.presences[userID] = &next
	}
}

func (pm *PresenceManager) StateMessage() *Message {
	all := pm.GetAll()
	payload, err := json.Marshal(PresenceStatePayload{Presences: all})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return &Message{
		Type:    TypePresenceState,
		Payload: payload,
	}
}
