package settings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renegades-league/draftd/internal/models"
)

type fakeRepo struct {
	settings     *models.DraftSettings
	appliedPicks []models.DraftPick
	applyCalls   int
}

func (f *fakeRepo) GetSettings(ctx context.Context) (*models.DraftSettings, error) {
	return f.settings, nil
}

func (f *fakeRepo) ApplySettings(ctx context.Context, s models.DraftSettings, picks []models.DraftPick) (*models.DraftSettings, error) {
	f.applyCalls++
	f.settings = &s
	f.appliedPicks = picks
	return &s, nil
}

type fakeTeams struct {
	teams []models.Team
}

func (f *fakeTeams) GetTeams(ctx context.Context) ([]models.Team, error) {
	return f.teams, nil
}

func leagueTeams(n int) []models.Team {
	teams := make([]models.Team, n)
	for i := range teams {
		teams[i] = models.Team{ID: uuid.New(), Name: string(rune('A' + i))}
	}
	return teams
}

func validSettings() models.DraftSettings {
	return models.DraftSettings{
		LeagueSize: 4,
		RosterSize: 3,
		DraftType:  models.DraftTypeSnake,
		Season:     "2025-26",
	}
}

func TestUpdateSettingsRebuildsLedger(t *testing.T) {
	repo := &fakeRepo{}
	app := NewApp(repo, &fakeTeams{teams: leagueTeams(4)})

	applied, err := app.UpdateSettings(context.Background(), validSettings())
	require.NoError(t, err)
	require.Equal(t, 1, repo.applyCalls)
	assert.NotEqual(t, uuid.Nil, applied.ID)

	// Full ledger regenerated: league_size * roster_size slots, all unused.
	require.Len(t, repo.appliedPicks, 12)
	seen := make(map[int]bool)
	for _, p := range repo.appliedPicks {
		assert.False(t, p.IsUsed)
		assert.Nil(t, p.PlayerID)
		assert.False(t, seen[p.OverallPick], "duplicate overall pick %d", p.OverallPick)
		seen[p.OverallPick] = true
	}
	for overall := 1; overall <= 12; overall++ {
		assert.True(t, seen[overall], "missing overall pick %d", overall)
	}
}

func TestUpdateSettingsKeepsExistingID(t *testing.T) {
	existing := validSettings()
	existing.ID = uuid.New()
	repo := &fakeRepo{settings: &existing}
	app := NewApp(repo, &fakeTeams{teams: leagueTeams(4)})

	next := validSettings()
	next.RosterSize = 5
	applied, err := app.UpdateSettings(context.Background(), next)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, applied.ID)
	assert.Len(t, repo.appliedPicks, 20)
}

func TestUpdateSettingsHonorsExplicitDraftOrder(t *testing.T) {
	teams := leagueTeams(3)
	repo := &fakeRepo{}
	app := NewApp(repo, &fakeTeams{teams: teams})

	s := validSettings()
	s.LeagueSize = 3
	s.DraftType = models.DraftTypeLinear
	s.DraftOrder = []uuid.UUID{teams[2].ID, teams[0].ID, teams[1].ID}

	_, err := app.UpdateSettings(context.Background(), s)
	require.NoError(t, err)

	require.Len(t, repo.appliedPicks, 9)
	assert.Equal(t, teams[2].ID, repo.appliedPicks[0].CurrentTeamID)
	// Linear order repeats every round instead of snaking.
	assert.Equal(t, teams[2].ID, repo.appliedPicks[3].CurrentTeamID)
}

func TestUpdateSettingsValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.DraftSettings)
	}{
		{"zero league size", func(s *models.DraftSettings) { s.LeagueSize = 0 }},
		{"zero roster size", func(s *models.DraftSettings) { s.RosterSize = 0 }},
		{"negative time limit", func(s *models.DraftSettings) { s.PickTimeLimitSec = -1 }},
		{"unknown draft type", func(s *models.DraftSettings) { s.DraftType = "auction" }},
		{"missing season", func(s *models.DraftSettings) { s.Season = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{}
			app := NewApp(repo, &fakeTeams{teams: leagueTeams(4)})

			s := validSettings()
			tt.mutate(&s)
			_, err := app.UpdateSettings(context.Background(), s)
			assert.Error(t, err)
			assert.Zero(t, repo.applyCalls)
		})
	}
}

func TestUpdateSettingsRejectsOrderMismatch(t *testing.T) {
	repo := &fakeRepo{}
	app := NewApp(repo, &fakeTeams{teams: leagueTeams(4)})

	s := validSettings()
	s.DraftOrder = []uuid.UUID{uuid.New(), uuid.New()} // 2 teams for a 4 team league

	_, err := app.UpdateSettings(context.Background(), s)
	assert.Error(t, err)
	assert.Zero(t, repo.applyCalls)
}
