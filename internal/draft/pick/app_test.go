package pick

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renegades-league/draftd/internal/draft/engine"
	"github.com/renegades-league/draftd/internal/models"
)

// fakeStore emulates the storage layer including its write-time conflict
// detection: AssignPick re-checks is_used and is_drafted under a lock the
// way the database enforces its conditional updates and unique constraint.
type fakeStore struct {
	mu       sync.Mutex
	picks    []models.DraftPick
	players  map[uuid.UUID]*models.Player
	teams    map[uuid.UUID]string
	keepers  map[uuid.UUID]string // playerID -> season
	settings models.DraftSettings

	// resolveBarrier, when set, holds every caller at the end of
	// GetCurrentPick until all expected callers have resolved. It forces the
	// interleaving where concurrent clients act on the same stale snapshot.
	resolveBarrier *sync.WaitGroup
}

func newFakeStore(teamCount, rounds, playerCount int) *fakeStore {
	teams := make([]models.Team, teamCount)
	teamNames := make(map[uuid.UUID]string, teamCount)
	order := make([]uuid.UUID, teamCount)
	for i := range teams {
		teams[i] = models.Team{ID: uuid.New(), Name: string(rune('A' + i))}
		teamNames[teams[i].ID] = teams[i].Name
		order[i] = teams[i].ID
	}

	settings := models.DraftSettings{
		LeagueSize: teamCount,
		RosterSize: rounds,
		DraftType:  models.DraftTypeSnake,
		Season:     "2025-26",
		DraftOrder: order,
	}
	picks, err := engine.GeneratePicks(settings, teams)
	if err != nil {
		panic(err)
	}

	players := make(map[uuid.UUID]*models.Player, playerCount)
	for i := 0; i < playerCount; i++ {
		p := &models.Player{ID: uuid.New(), Name: "player"}
		players[p.ID] = p
	}

	return &fakeStore{
		picks:    picks,
		players:  players,
		teams:    teamNames,
		keepers:  map[uuid.UUID]string{},
		settings: settings,
	}
}

func (f *fakeStore) GetCurrentPick(ctx context.Context) (*CurrentPick, error) {
	f.mu.Lock()
	current, ok := engine.ResolveCurrentPick(f.picks)
	var out *CurrentPick
	if ok {
		out = &CurrentPick{DraftPick: *current, TeamName: f.teams[current.CurrentTeamID]}
	}
	f.mu.Unlock()

	if f.resolveBarrier != nil {
		f.resolveBarrier.Done()
		f.resolveBarrier.Wait()
	}
	if out == nil {
		return nil, nil
	}
	return out, nil
}

func (f *fakeStore) GetDraftPicks(ctx context.Context) ([]models.DraftPick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.DraftPick, len(f.picks))
	copy(out, f.picks)
	return out, nil
}

func (f *fakeStore) AssignPick(ctx context.Context, req AssignPickRequest) (*models.DraftPick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var slot *models.DraftPick
	for i := range f.picks {
		if f.picks[i].ID == req.PickID {
			slot = &f.picks[i]
			break
		}
	}
	if slot == nil || slot.IsUsed {
		return nil, ErrPickAlreadyUsed
	}

	player, ok := f.players[req.PlayerID]
	if !ok || player.IsDrafted {
		return nil, ErrPlayerAlreadyDrafted
	}
	if player.IsKeeper {
		return nil, ErrPlayerIsKeeper
	}

	now := time.Now()
	slot.PlayerID = &req.PlayerID
	slot.IsUsed = true
	slot.PickedAt = &now
	player.IsDrafted = true
	player.DraftedByTeamID = &req.TeamID

	out := *slot
	return &out, nil
}

func (f *fakeStore) TradePick(ctx context.Context, req TradePickRequest) (*models.DraftPick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.picks {
		if f.picks[i].ID != req.PickID {
			continue
		}
		if f.picks[i].IsUsed {
			return nil, ErrPickAlreadyUsed
		}
		f.picks[i].CurrentTeamID = req.ToTeamID
		out := f.picks[i]
		return &out, nil
	}
	return nil, ErrPickNotFound
}

func (f *fakeStore) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[id]
	if !ok {
		return nil, errors.New("player not found")
	}
	out := *p
	return &out, nil
}

func (f *fakeStore) IsKeeper(ctx context.Context, playerID uuid.UUID, season string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keepers[playerID] == season, nil
}

func (f *fakeStore) GetSettings(ctx context.Context) (*models.DraftSettings, error) {
	s := f.settings
	return &s, nil
}

func (f *fakeStore) playerIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(f.players))
	for id := range f.players {
		ids = append(ids, id)
	}
	return ids
}

func newTestApp(store *fakeStore) *App {
	return NewApp(store, store, store, store)
}

func TestMakePickHappyPath(t *testing.T) {
	store := newFakeStore(4, 2, 10)
	app := newTestApp(store)
	ctx := context.Background()

	current, err := store.GetCurrentPick(ctx)
	require.NoError(t, err)

	playerID := store.playerIDs()[0]
	updated, err := app.MakePick(ctx, MakePickRequest{TeamID: current.CurrentTeamID, PlayerID: playerID})
	require.NoError(t, err)

	assert.True(t, updated.IsUsed)
	require.NotNil(t, updated.PlayerID)
	assert.Equal(t, playerID, *updated.PlayerID)
	assert.Equal(t, 1, updated.OverallPick)

	player, err := store.GetPlayer(ctx, playerID)
	require.NoError(t, err)
	assert.True(t, player.IsDrafted)
	require.NotNil(t, player.DraftedByTeamID)
	assert.Equal(t, current.CurrentTeamID, *player.DraftedByTeamID)

	// Turn advances to the next slot.
	next, err := store.GetCurrentPick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, next.OverallPick)
}

func TestMakePickNotYourTurn(t *testing.T) {
	store := newFakeStore(4, 2, 10)
	app := newTestApp(store)
	ctx := context.Background()

	current, err := store.GetCurrentPick(ctx)
	require.NoError(t, err)

	// Pick a team that is not on the clock.
	var wrongTeam uuid.UUID
	for id := range store.teams {
		if id != current.CurrentTeamID {
			wrongTeam = id
			break
		}
	}

	_, err = app.MakePick(ctx, MakePickRequest{TeamID: wrongTeam, PlayerID: store.playerIDs()[0]})
	var turnErr *NotYourTurnError
	require.ErrorAs(t, err, &turnErr)
	assert.Equal(t, current.TeamName, turnErr.OnClockTeam)
}

func TestMakePickPlayerAlreadyDrafted(t *testing.T) {
	store := newFakeStore(4, 2, 10)
	app := newTestApp(store)
	ctx := context.Background()

	playerID := store.playerIDs()[0]
	store.players[playerID].IsDrafted = true

	current, err := store.GetCurrentPick(ctx)
	require.NoError(t, err)

	_, err = app.MakePick(ctx, MakePickRequest{TeamID: current.CurrentTeamID, PlayerID: playerID})
	assert.ErrorIs(t, err, ErrPlayerAlreadyDrafted)
}

func TestMakePickKeeperExcluded(t *testing.T) {
	store := newFakeStore(4, 2, 10)
	app := newTestApp(store)
	ctx := context.Background()

	playerID := store.playerIDs()[0]
	store.keepers[playerID] = store.settings.Season

	current, err := store.GetCurrentPick(ctx)
	require.NoError(t, err)

	// A keeper is never draftable, even while is_drafted is false.
	_, err = app.MakePick(ctx, MakePickRequest{TeamID: current.CurrentTeamID, PlayerID: playerID})
	assert.ErrorIs(t, err, ErrPlayerIsKeeper)

	// Keeper flag on the player row is enough on its own.
	other := store.playerIDs()[1]
	store.players[other].IsKeeper = true
	_, err = app.MakePick(ctx, MakePickRequest{TeamID: current.CurrentTeamID, PlayerID: other})
	assert.ErrorIs(t, err, ErrPlayerIsKeeper)
}

func TestMakePickDraftComplete(t *testing.T) {
	store := newFakeStore(2, 1, 10)
	app := newTestApp(store)
	ctx := context.Background()

	for i := range store.picks {
		store.picks[i].IsUsed = true
	}

	_, err := app.MakePick(ctx, MakePickRequest{TeamID: uuid.New(), PlayerID: store.playerIDs()[0]})
	assert.ErrorIs(t, err, ErrDraftComplete)
}

func TestTradePickMovesTurnToNewOwner(t *testing.T) {
	store := newFakeStore(4, 2, 10)
	app := newTestApp(store)
	ctx := context.Background()

	current, err := store.GetCurrentPick(ctx)
	require.NoError(t, err)

	var other uuid.UUID
	for id := range store.teams {
		if id != current.CurrentTeamID {
			other = id
			break
		}
	}

	traded, err := app.TradePick(ctx, TradePickRequest{PickID: current.ID, ToTeamID: other})
	require.NoError(t, err)
	assert.Equal(t, other, traded.CurrentTeamID)
	// The original owner stays on the row for trade history.
	assert.Equal(t, current.OriginalTeamID, traded.OriginalTeamID)

	// The clock follows the new owner without reordering the ledger.
	next, err := store.GetCurrentPick(ctx)
	require.NoError(t, err)
	assert.Equal(t, current.OverallPick, next.OverallPick)
	assert.Equal(t, other, next.CurrentTeamID)

	// The new owner can use the slot.
	_, err = app.MakePick(ctx, MakePickRequest{TeamID: other, PlayerID: store.playerIDs()[0]})
	require.NoError(t, err)
}

func TestTradePickRejectsUsedSlot(t *testing.T) {
	store := newFakeStore(2, 1, 4)
	app := newTestApp(store)
	ctx := context.Background()

	current, err := store.GetCurrentPick(ctx)
	require.NoError(t, err)
	_, err = app.MakePick(ctx, MakePickRequest{TeamID: current.CurrentTeamID, PlayerID: store.playerIDs()[0]})
	require.NoError(t, err)

	_, err = app.TradePick(ctx, TradePickRequest{PickID: current.ID, ToTeamID: uuid.New()})
	assert.ErrorIs(t, err, ErrPickAlreadyUsed)
}

func TestTradePickUnknownPick(t *testing.T) {
	store := newFakeStore(2, 1, 4)
	app := newTestApp(store)

	_, err := app.TradePick(context.Background(), TradePickRequest{PickID: uuid.New(), ToTeamID: uuid.New()})
	assert.ErrorIs(t, err, ErrPickNotFound)
}

func TestMakePickExactlyOneWinner(t *testing.T) {
	store := newFakeStore(4, 2, 10)
	app := newTestApp(store)
	ctx := context.Background()

	current, err := store.GetCurrentPick(ctx)
	require.NoError(t, err)
	teamID := current.CurrentTeamID
	ids := store.playerIDs()

	// Both clients resolve the same current pick before either writes.
	var barrier sync.WaitGroup
	barrier.Add(2)
	store.resolveBarrier = &barrier

	// Two clients race for the same slot with different valid players.
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(playerID uuid.UUID) {
			defer wg.Done()
			_, err := app.MakePick(ctx, MakePickRequest{TeamID: teamID, PlayerID: playerID})
			errs <- err
		}(ids[i])
	}
	wg.Wait()
	close(errs)

	var wins, losses int
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		losses++
		assert.True(t,
			errors.Is(err, ErrPickAlreadyUsed) || errors.Is(err, ErrPlayerAlreadyDrafted),
			"loser must observe a stale-snapshot error, got %v", err)
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)

	// Exactly one additional used pick, and no player double-drafted.
	picks, err := store.GetDraftPicks(ctx)
	require.NoError(t, err)
	used := 0
	seen := map[uuid.UUID]bool{}
	for _, p := range picks {
		if p.IsUsed {
			used++
			require.NotNil(t, p.PlayerID)
			assert.False(t, seen[*p.PlayerID], "player assigned to two slots")
			seen[*p.PlayerID] = true
		} else {
			assert.Nil(t, p.PlayerID)
		}
	}
	assert.Equal(t, 1, used)
}
