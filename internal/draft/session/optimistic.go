package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/renegades-league/draftd/internal/draft/engine"
	"github.com/renegades-league/draftd/internal/models"
)

// preimage captures the rows an optimistic local write touches so a rejected
// remote write can restore them exactly. Capture and restore live in one
// place instead of being re-implemented at each call site.
type preimage struct {
	st      *store
	picks   map[uuid.UUID]*models.DraftPick // nil value means the row was absent
	players map[uuid.UUID]*models.Player
}

// captureLocked copies the named rows. The caller holds the store lock.
func (s *store) captureLocked(pickIDs, playerIDs []uuid.UUID) *preimage {
	pre := &preimage{
		st:      s,
		picks:   make(map[uuid.UUID]*models.DraftPick, len(pickIDs)),
		players: make(map[uuid.UUID]*models.Player, len(playerIDs)),
	}
	for _, id := range pickIDs {
		if p, ok := s.picks[id]; ok {
			cp := p
			pre.picks[id] = &cp
		} else {
			pre.picks[id] = nil
		}
	}
	for _, id := range playerIDs {
		if p, ok := s.players[id]; ok {
			cp := p
			pre.players[id] = &cp
		} else {
			pre.players[id] = nil
		}
	}
	return pre
}

// restore replays the captured rows, undoing the tentative local write.
func (p *preimage) restore() {
	p.st.mu.Lock()
	defer p.st.mu.Unlock()

	for id, row := range p.picks {
		if row == nil {
			delete(p.st.picks, id)
			continue
		}
		p.st.picks[id] = *row
	}
	for id, row := range p.players {
		if row == nil {
			delete(p.st.players, id)
			continue
		}
		p.st.players[id] = *row
	}
}

// stagePick tentatively applies a pick in the local view so the UI reflects
// it immediately. The returned preimage undoes it if the server rejects the
// write; a confirming change event overwrites it if the server accepts.
func (s *store) stagePick(teamID, playerID uuid.UUID) (*preimage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	picks := make([]models.DraftPick, 0, len(s.picks))
	for _, p := range s.picks {
		picks = append(picks, p)
	}
	current, ok := engine.ResolveCurrentPick(picks)
	if !ok {
		return nil, fmt.Errorf("no unused pick to stage")
	}

	pre := s.captureLocked([]uuid.UUID{current.ID}, []uuid.UUID{playerID})

	now := time.Now()
	staged := s.picks[current.ID]
	staged.PlayerID = &playerID
	staged.IsUsed = true
	staged.PickedAt = &now
	s.picks[current.ID] = staged

	if playerRow, found := s.players[playerID]; found {
		playerRow.IsDrafted = true
		playerRow.DraftedByTeamID = &teamID
		s.players[playerID] = playerRow
	}

	return pre, nil
}
