package engine

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/renegades-league/draftd/internal/models"
)

// TeamIndexForSlot maps a (round, pickNumber) ledger slot to an index into
// the draft order. Snake order reverses the sequence every even round;
// linear keeps the same sequence every round. Manual drafts start from a
// snake layout and are rearranged by trades afterwards.
// pickNumber is 1-indexed within the round.
func TeamIndexForSlot(draftType models.DraftType, round, pickNumber, teamCount int) int {
	if draftType == models.DraftTypeLinear {
		return pickNumber - 1
	}
	if round%2 == 0 {
		return teamCount - pickNumber
	}
	return pickNumber - 1
}

// GeneratePicks builds the full pick ledger for the given settings. The
// pairing is reproducible from (round, pickNumber, teamCount) alone so that
// traded picks (which mutate only CurrentTeamID) stay distinguishable from
// the original order.
func GeneratePicks(settings models.DraftSettings, teams []models.Team) ([]models.DraftPick, error) {
	order := settings.DraftOrder
	if len(order) == 0 {
		order = make([]uuid.UUID, len(teams))
		for i, t := range teams {
			order[i] = t.ID
		}
	}
	if len(order) != settings.LeagueSize {
		return nil, fmt.Errorf("draft order has %d teams, settings expect %d", len(order), settings.LeagueSize)
	}

	picks := make([]models.DraftPick, 0, settings.TotalPicks())
	for round := 1; round <= settings.RosterSize; round++ {
		for pickNumber := 1; pickNumber <= settings.LeagueSize; pickNumber++ {
			teamID := order[TeamIndexForSlot(settings.DraftType, round, pickNumber, settings.LeagueSize)]
			picks = append(picks, models.DraftPick{
				ID:             uuid.New(),
				Round:          round,
				PickNumber:     pickNumber,
				OverallPick:    (round-1)*settings.LeagueSize + pickNumber,
				OriginalTeamID: teamID,
				CurrentTeamID:  teamID,
			})
		}
	}
	return picks, nil
}
