package engine

import (
	"github.com/renegades-league/draftd/internal/models"
)

// ResolveCurrentPick returns the lowest-overall unused pick in the ledger.
// ok is false when every slot is used, i.e. the draft is complete. The
// resolution is a pure projection of the snapshot: every client that holds
// the same ledger contents resolves the same pick, regardless of how the
// snapshot was obtained.
func ResolveCurrentPick(picks []models.DraftPick) (current *models.DraftPick, ok bool) {
	for i := range picks {
		p := &picks[i]
		if p.IsUsed {
			continue
		}
		if current == nil || p.OverallPick < current.OverallPick {
			current = p
		}
	}
	return current, current != nil
}

// ComputeDraftStats recomputes the derived draft statistics from current
// snapshots. No state is carried between calls.
func ComputeDraftStats(settings models.DraftSettings, picks []models.DraftPick, players []models.Player) models.DraftStats {
	stats := models.DraftStats{
		TotalPicks: settings.TotalPicks(),
	}
	for _, p := range picks {
		if p.IsUsed {
			stats.CompletedPicks++
		}
	}
	for i := range players {
		if players[i].Eligible() {
			stats.AvailablePlayers++
		}
	}
	if stats.TotalPicks > 0 {
		stats.Progress = int(float64(stats.CompletedPicks)/float64(stats.TotalPicks)*100 + 0.5)
	}
	return stats
}
