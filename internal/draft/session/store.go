package session

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/renegades-league/draftd/internal/draft/outbox"
	"github.com/renegades-league/draftd/internal/models"
)

// Snapshot is a full authoritative state fetched over the HTTP API. It is
// loaded on connect and re-loaded before incremental patching resumes after
// a reconnect.
type Snapshot struct {
	Settings models.DraftSettings `json:"settings"`
	Picks    []models.DraftPick   `json:"picks"`
	Players  []models.Player      `json:"players"`
	Teams    []models.Team        `json:"teams"`
}

type rowKey struct {
	table string
	id    uuid.UUID
}

// store holds the session's materialized view of the ledger, keyed by row id.
// Change events are reconciled last-write-wins per row using the outbox seq.
type store struct {
	mu       sync.RWMutex
	settings models.DraftSettings
	picks    map[uuid.UUID]models.DraftPick
	players  map[uuid.UUID]models.Player
	teams    map[uuid.UUID]models.Team
	lastSeq  map[rowKey]int64
}

func newStore() *store {
	return &store{
		picks:   make(map[uuid.UUID]models.DraftPick),
		players: make(map[uuid.UUID]models.Player),
		teams:   make(map[uuid.UUID]models.Team),
		lastSeq: make(map[rowKey]int64),
	}
}

// reset replaces the entire view with a fresh snapshot. Seq watermarks are
// cleared: events redelivered after a resync re-apply cleanly because
// reconciliation is per row and newer events overwrite older ones.
func (s *store) reset(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = snap.Settings
	s.picks = make(map[uuid.UUID]models.DraftPick, len(snap.Picks))
	for _, p := range snap.Picks {
		s.picks[p.ID] = p
	}
	s.players = make(map[uuid.UUID]models.Player, len(snap.Players))
	for _, p := range snap.Players {
		s.players[p.ID] = p
	}
	s.teams = make(map[uuid.UUID]models.Team, len(snap.Teams))
	for _, t := range snap.Teams {
		s.teams[t.ID] = t
	}
	s.lastSeq = make(map[rowKey]int64)
}

func (s *store) resetPicks(picks []models.DraftPick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.picks = make(map[uuid.UUID]models.DraftPick, len(picks))
	for _, p := range picks {
		s.picks[p.ID] = p
	}
}

func (s *store) resetPlayers(players []models.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players = make(map[uuid.UUID]models.Player, len(players))
	for _, p := range players {
		s.players[p.ID] = p
	}
}

// apply reconciles a single change event into the view. It returns false
// when the event is stale, i.e. an older seq than one already applied for
// the same row arrived out of order.
func (s *store) apply(ev outbox.Event) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := rowKey{table: ev.Change.Table, id: ev.Change.RowID}
	if last, ok := s.lastSeq[key]; ok && ev.Seq <= last {
		return false, nil
	}

	// Updates decode onto a copy of the current row, so partial payloads
	// (the pick transaction emits only the player fields it changed) merge
	// instead of zeroing the rest.
	switch ev.Change.Table {
	case "draft_picks":
		if ev.Change.EventType == outbox.EventDelete {
			delete(s.picks, ev.Change.RowID)
			break
		}
		p := s.picks[ev.Change.RowID]
		if err := json.Unmarshal(ev.Change.New, &p); err != nil {
			return false, fmt.Errorf("failed to decode draft_picks event: %w", err)
		}
		s.picks[ev.Change.RowID] = p
	case "players":
		if ev.Change.EventType == outbox.EventDelete {
			delete(s.players, ev.Change.RowID)
			break
		}
		p := s.players[ev.Change.RowID]
		if err := json.Unmarshal(ev.Change.New, &p); err != nil {
			return false, fmt.Errorf("failed to decode players event: %w", err)
		}
		s.players[ev.Change.RowID] = p
	case "teams":
		if ev.Change.EventType == outbox.EventDelete {
			delete(s.teams, ev.Change.RowID)
			break
		}
		t := s.teams[ev.Change.RowID]
		if err := json.Unmarshal(ev.Change.New, &t); err != nil {
			return false, fmt.Errorf("failed to decode teams event: %w", err)
		}
		s.teams[ev.Change.RowID] = t
	case "draft_settings":
		var cfg models.DraftSettings
		if err := json.Unmarshal(ev.Change.New, &cfg); err != nil {
			return false, fmt.Errorf("failed to decode draft_settings event: %w", err)
		}
		s.settings = cfg
	default:
		return false, nil
	}

	s.lastSeq[key] = ev.Seq
	return true, nil
}

func (s *store) snapshotPicks() []models.DraftPick {
	s.mu.RLock()
	defer s.mu.RUnlock()
	picks := make([]models.DraftPick, 0, len(s.picks))
	for _, p := range s.picks {
		picks = append(picks, p)
	}
	return picks
}

func (s *store) snapshotPlayers() []models.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players := make([]models.Player, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, p)
	}
	return players
}

func (s *store) getSettings() models.DraftSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *store) teamName(id uuid.UUID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.teams[id].Name
}
