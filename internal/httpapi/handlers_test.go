package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renegades-league/draftd/internal/auth"
	"github.com/renegades-league/draftd/internal/draft/pick"
	"github.com/renegades-league/draftd/internal/models"
)

type fakePickService struct {
	makePickErr error
	madePick    *models.DraftPick
	gotReq      pick.MakePickRequest
	tradeErr    error
	tradedPick  *models.DraftPick
	gotTrade    pick.TradePickRequest
	picks       []models.DraftPick
	current     *pick.CurrentPick
}

func (f *fakePickService) MakePick(ctx context.Context, req pick.MakePickRequest) (*models.DraftPick, error) {
	f.gotReq = req
	if f.makePickErr != nil {
		return nil, f.makePickErr
	}
	return f.madePick, nil
}

func (f *fakePickService) TradePick(ctx context.Context, req pick.TradePickRequest) (*models.DraftPick, error) {
	f.gotTrade = req
	if f.tradeErr != nil {
		return nil, f.tradeErr
	}
	return f.tradedPick, nil
}

func (f *fakePickService) GetDraftPicks(ctx context.Context) ([]models.DraftPick, error) {
	return f.picks, nil
}

func (f *fakePickService) GetCurrentPick(ctx context.Context) (*pick.CurrentPick, error) {
	return f.current, nil
}

type fakeSettingsService struct {
	settings *models.DraftSettings
	updated  *models.DraftSettings
}

func (f *fakeSettingsService) GetSettings(ctx context.Context) (*models.DraftSettings, error) {
	return f.settings, nil
}

func (f *fakeSettingsService) UpdateSettings(ctx context.Context, s models.DraftSettings) (*models.DraftSettings, error) {
	f.updated = &s
	return &s, nil
}

type fakeTeamService struct {
	teams []models.Team
}

func (f *fakeTeamService) GetTeams(ctx context.Context) ([]models.Team, error) { return f.teams, nil }

func (f *fakeTeamService) CreateTeam(ctx context.Context, name string, ownerEmail *string) (*models.Team, error) {
	return &models.Team{ID: uuid.New(), Name: name, OwnerEmail: ownerEmail}, nil
}

type fakePlayerService struct {
	players []models.Player
}

func (f *fakePlayerService) GetPlayers(ctx context.Context) ([]models.Player, error) {
	return f.players, nil
}

func (f *fakePlayerService) GetAvailablePlayers(ctx context.Context) ([]models.Player, error) {
	return f.players, nil
}

func (f *fakePlayerService) ImportPlayers(ctx context.Context, players []models.Player) (int, error) {
	return len(players), nil
}

type fakeKeeperService struct{}

func (f *fakeKeeperService) GetKeepers(ctx context.Context, season string) ([]models.Keeper, error) {
	return nil, nil
}

func (f *fakeKeeperService) CreateKeeper(ctx context.Context, teamID, playerID uuid.UUID, season string) (*models.Keeper, error) {
	return &models.Keeper{ID: uuid.New(), TeamID: teamID, PlayerID: playerID, Season: season}, nil
}

func (f *fakeKeeperService) DeleteKeeper(ctx context.Context, id uuid.UUID) error { return nil }

func newTestServer(t *testing.T, picks *fakePickService) (http.Handler, *auth.Verifier) {
	t.Helper()
	verifier := auth.NewVerifier("test-secret")
	h := NewHandler(
		picks,
		&fakeSettingsService{settings: &models.DraftSettings{LeagueSize: 2, RosterSize: 2, DraftType: models.DraftTypeSnake, Season: "2025-26"}},
		&fakeTeamService{},
		&fakePlayerService{},
		&fakeKeeperService{},
		nil,
		zerolog.Nop(),
	)
	ws := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusSwitchingProtocols) }
	return NewRouter(h, verifier, ws), verifier
}

func bearerToken(t *testing.T, verifier *auth.Verifier, teamID uuid.UUID) string {
	t.Helper()
	token, err := verifier.Sign(auth.Identity{UserID: "user-1", TeamID: teamID}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func postPick(t *testing.T, srv http.Handler, authorization string, playerID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]string{"player_id": playerID.String()})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/draft/pick", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func postTrade(t *testing.T, srv http.Handler, authorization string, pickID uuid.UUID, toTeamID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]string{"to_team_id": toTeamID.String()})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/draft/picks/"+pickID.String()+"/trade", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestMakePickRequiresTeamAuth(t *testing.T) {
	srv, _ := newTestServer(t, &fakePickService{})
	rec := postPick(t, srv, "", uuid.New())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMakePickRejectsSpectatorToken(t *testing.T) {
	srv, verifier := newTestServer(t, &fakePickService{})
	// A valid token without a team binding is a spectator and cannot pick.
	rec := postPick(t, srv, bearerToken(t, verifier, uuid.Nil), uuid.New())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMakePickUsesAuthenticatedTeam(t *testing.T) {
	teamID := uuid.New()
	playerID := uuid.New()
	picks := &fakePickService{madePick: &models.DraftPick{ID: uuid.New(), IsUsed: true}}
	srv, verifier := newTestServer(t, picks)

	rec := postPick(t, srv, bearerToken(t, verifier, teamID), playerID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, teamID, picks.gotReq.TeamID)
	assert.Equal(t, playerID, picks.gotReq.PlayerID)
}

func TestMakePickErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"draft complete", pick.ErrDraftComplete, http.StatusConflict, "draft_complete"},
		{"not your turn", &pick.NotYourTurnError{OnClockTeam: "Bravo"}, http.StatusForbidden, "not_your_turn"},
		{"player drafted", pick.ErrPlayerAlreadyDrafted, http.StatusConflict, "player_already_drafted"},
		{"player keeper", pick.ErrPlayerIsKeeper, http.StatusConflict, "player_is_keeper"},
		{"lost race", pick.ErrPickAlreadyUsed, http.StatusConflict, "pick_already_used"},
		{"wrapped", fmt.Errorf("failed to make pick: %w", pick.ErrPickAlreadyUsed), http.StatusConflict, "pick_already_used"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, verifier := newTestServer(t, &fakePickService{makePickErr: tt.err})
			rec := postPick(t, srv, bearerToken(t, verifier, uuid.New()), uuid.New())
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body apiError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}

func TestNotYourTurnIncludesOnClockTeam(t *testing.T) {
	srv, verifier := newTestServer(t, &fakePickService{makePickErr: &pick.NotYourTurnError{OnClockTeam: "Bravo"}})
	rec := postPick(t, srv, bearerToken(t, verifier, uuid.New()), uuid.New())

	var body apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Bravo", body.OnClockTeam)
}

func TestTradePickReassignsOwner(t *testing.T) {
	pickID := uuid.New()
	toTeamID := uuid.New()
	picks := &fakePickService{tradedPick: &models.DraftPick{ID: pickID, CurrentTeamID: toTeamID}}
	srv, verifier := newTestServer(t, picks)

	rec := postTrade(t, srv, bearerToken(t, verifier, uuid.New()), pickID, toTeamID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pickID, picks.gotTrade.PickID)
	assert.Equal(t, toTeamID, picks.gotTrade.ToTeamID)
}

func TestTradePickRequiresTeamAuth(t *testing.T) {
	srv, _ := newTestServer(t, &fakePickService{})
	rec := postTrade(t, srv, "", uuid.New(), uuid.New())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTradePickErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"used slot", pick.ErrPickAlreadyUsed, http.StatusConflict, "pick_already_used"},
		{"unknown pick", pick.ErrPickNotFound, http.StatusNotFound, "not_found"},
		{"unknown team", pick.ErrTeamNotFound, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, verifier := newTestServer(t, &fakePickService{tradeErr: tt.err})
			rec := postTrade(t, srv, bearerToken(t, verifier, uuid.New()), uuid.New(), uuid.New())
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body apiError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}

func TestGetStateComputesStats(t *testing.T) {
	used := models.DraftPick{ID: uuid.New(), Round: 1, PickNumber: 1, OverallPick: 1, IsUsed: true}
	open := models.DraftPick{ID: uuid.New(), Round: 1, PickNumber: 2, OverallPick: 2}
	srv, _ := newTestServer(t, &fakePickService{
		picks:   []models.DraftPick{used, open},
		current: &pick.CurrentPick{DraftPick: open, TeamName: "Bravo"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/draft/state", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp stateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Stats.TotalPicks)
	assert.Equal(t, 1, resp.Stats.CompletedPicks)
	assert.Equal(t, 25, resp.Stats.Progress)
	require.NotNil(t, resp.CurrentPick)
	assert.Equal(t, "Bravo", resp.CurrentPick.TeamName)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &fakePickService{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSpectatorCanReadPicks(t *testing.T) {
	srv, _ := newTestServer(t, &fakePickService{picks: []models.DraftPick{{ID: uuid.New()}}})
	req := httptest.NewRequest(http.MethodGet, "/api/draft/picks", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var picks []models.DraftPick
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &picks))
	assert.Len(t, picks, 1)
}
