package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/renegades-league/draftd/internal/auth"
	"github.com/renegades-league/draftd/internal/draft/engine"
	"github.com/renegades-league/draftd/internal/draft/pick"
	"github.com/renegades-league/draftd/internal/draft/presence"
	"github.com/renegades-league/draftd/internal/models"
)

// PickService is the slice of the pick app the handlers use.
type PickService interface {
	MakePick(ctx context.Context, req pick.MakePickRequest) (*models.DraftPick, error)
	TradePick(ctx context.Context, req pick.TradePickRequest) (*models.DraftPick, error)
	GetDraftPicks(ctx context.Context) ([]models.DraftPick, error)
	GetCurrentPick(ctx context.Context) (*pick.CurrentPick, error)
}

// SettingsService reads and replaces the league settings.
type SettingsService interface {
	GetSettings(ctx context.Context) (*models.DraftSettings, error)
	UpdateSettings(ctx context.Context, s models.DraftSettings) (*models.DraftSettings, error)
}

// TeamService lists and creates teams.
type TeamService interface {
	GetTeams(ctx context.Context) ([]models.Team, error)
	CreateTeam(ctx context.Context, name string, ownerEmail *string) (*models.Team, error)
}

// PlayerService serves the player pool.
type PlayerService interface {
	GetPlayers(ctx context.Context) ([]models.Player, error)
	GetAvailablePlayers(ctx context.Context) ([]models.Player, error)
	ImportPlayers(ctx context.Context, players []models.Player) (int, error)
}

// KeeperService manages season keepers.
type KeeperService interface {
	GetKeepers(ctx context.Context, season string) ([]models.Keeper, error)
	CreateKeeper(ctx context.Context, teamID, playerID uuid.UUID, season string) (*models.Keeper, error)
	DeleteKeeper(ctx context.Context, id uuid.UUID) error
}

// Handler carries the API's dependencies.
type Handler struct {
	picks    PickService
	settings SettingsService
	teams    TeamService
	players  PlayerService
	keepers  KeeperService
	presence *presence.Tracker
	logger   zerolog.Logger
}

func NewHandler(picks PickService, settings SettingsService, teams TeamService, players PlayerService, keepers KeeperService, tracker *presence.Tracker, logger zerolog.Logger) *Handler {
	return &Handler{
		picks:    picks,
		settings: settings,
		teams:    teams,
		players:  players,
		keepers:  keepers,
		presence: tracker,
		logger:   logger.With().Str("component", "httpapi").Logger(),
	}
}

type apiError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	OnClockTeam string `json:"on_clock_team,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, apiError{Code: code, Message: message})
}

// writePickError maps the pick error taxonomy to HTTP statuses. All of the
// precondition failures are conflict-shaped except NotYourTurn, which is an
// authorization result.
func (h *Handler) writePickError(w http.ResponseWriter, err error) {
	var notYourTurn *pick.NotYourTurnError
	switch {
	case errors.As(err, &notYourTurn):
		h.writeJSON(w, http.StatusForbidden, apiError{
			Code:        pick.CodeNotYourTurn,
			Message:     err.Error(),
			OnClockTeam: notYourTurn.OnClockTeam,
		})
	case errors.Is(err, pick.ErrDraftComplete):
		h.writeError(w, http.StatusConflict, pick.CodeDraftComplete, err.Error())
	case errors.Is(err, pick.ErrPlayerAlreadyDrafted):
		h.writeError(w, http.StatusConflict, pick.CodePlayerAlreadyDrafted, err.Error())
	case errors.Is(err, pick.ErrPlayerIsKeeper):
		h.writeError(w, http.StatusConflict, pick.CodePlayerIsKeeper, err.Error())
	case errors.Is(err, pick.ErrPickAlreadyUsed):
		h.writeError(w, http.StatusConflict, pick.CodePickAlreadyUsed, err.Error())
	default:
		h.logger.Error().Err(err).Msg("pick failed")
		h.writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleGetPicks(w http.ResponseWriter, r *http.Request) {
	picks, err := h.picks.GetDraftPicks(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to get draft picks")
		h.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	h.writeJSON(w, http.StatusOK, picks)
}

// stateResponse is the one-round-trip snapshot clients load before applying
// incremental change events.
type stateResponse struct {
	Settings    models.DraftSettings `json:"settings"`
	Picks       []models.DraftPick   `json:"picks"`
	Players     []models.Player      `json:"players"`
	Teams       []models.Team        `json:"teams"`
	CurrentPick *pick.CurrentPick    `json:"current_pick,omitempty"`
	Stats       models.DraftStats    `json:"stats"`
}

func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	settings, err := h.settings.GetSettings(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to get settings")
		h.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	resp := stateResponse{}
	if settings != nil {
		resp.Settings = *settings
	}

	if resp.Picks, err = h.picks.GetDraftPicks(ctx); err != nil {
		h.logger.Error().Err(err).Msg("failed to get draft picks")
		h.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if resp.Players, err = h.players.GetPlayers(ctx); err != nil {
		h.logger.Error().Err(err).Msg("failed to get players")
		h.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if resp.Teams, err = h.teams.GetTeams(ctx); err != nil {
		h.logger.Error().Err(err).Msg("failed to get teams")
		h.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if resp.CurrentPick, err = h.picks.GetCurrentPick(ctx); err != nil {
		h.logger.Error().Err(err).Msg("failed to resolve current pick")
		h.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	resp.Stats = engine.ComputeDraftStats(resp.Settings, resp.Picks, resp.Players)

	h.writeJSON(w, http.StatusOK, resp)
}

type makePickRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
}

func (h *Handler) handleMakePick(w http.ResponseWriter, r *http.Request) {
	// auth.RequireTeam on the route guarantees a team identity.
	identity, _ := auth.FromContext(r.Context())

	var req makePickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.PlayerID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", "player_id is required")
		return
	}

	made, err := h.picks.MakePick(r.Context(), pick.MakePickRequest{
		TeamID:   identity.TeamID,
		PlayerID: req.PlayerID,
	})
	if err != nil {
		h.writePickError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, made)
}

type tradePickRequest struct {
	ToTeamID uuid.UUID `json:"to_team_id"`
}

func (h *Handler) handleTradePick(w http.ResponseWriter, r *http.Request) {
	pickID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", "invalid pick id")
		return
	}

	var req tradePickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.ToTeamID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", "to_team_id is required")
		return
	}

	traded, err := h.picks.TradePick(r.Context(), pick.TradePickRequest{PickID: pickID, ToTeamID: req.ToTeamID})
	switch {
	case errors.Is(err, pick.ErrPickNotFound), errors.Is(err, pick.ErrTeamNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	case errors.Is(err, pick.ErrPickAlreadyUsed):
		h.writeError(w, http.StatusConflict, pick.CodePickAlreadyUsed, err.Error())
		return
	case err != nil:
		h.logger.Error().Err(err).Msg("trade failed")
		h.writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, traded)
}

func (h *Handler) handleGetPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.players.GetPlayers(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to get players")
		h.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	h.writeJSON(w, http.StatusOK, players)
}

func (h *Handler) handleGetAvailablePlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.players.GetAvailablePlayers(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to get available players")
		h.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	h.writeJSON(w, http.StatusOK, players)
}

func (h *Handler) handleImportPlayers(w http.ResponseWriter, r *http.Request) {
	var players []models.Player
	if err := json.NewDecoder(r.Body).Decode(&players); err != nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	count, err := h.players.ImportPlayers(r.Context(), players)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"imported": count})
}

func (h *Handler) handleGetTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teams.GetTeams(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to get teams")
		h.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	h.writeJSON(w, http.StatusOK, teams)
}

type createTeamRequest struct {
	Name       string  `json:"name"`
	OwnerEmail *string `json:"owner_email,omitempty"`
}

func (h *Handler) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "bad_request", "name is required")
		return
	}

	team, err := h.teams.CreateTeam(r.Context(), req.Name, req.OwnerEmail)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, team)
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.GetSettings(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to get settings")
		h.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if settings == nil {
		h.writeError(w, http.StatusNotFound, "not_found", "draft settings not configured")
		return
	}
	h.writeJSON(w, http.StatusOK, settings)
}

// handleUpdateSettings replaces the settings and, with them, the entire pick
// ledger. Callers are expected to know the reset is destructive.
func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req models.DraftSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	updated, err := h.settings.UpdateSettings(r.Context(), req)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleGetKeepers(w http.ResponseWriter, r *http.Request) {
	season := r.URL.Query().Get("season")
	if season == "" {
		settings, err := h.settings.GetSettings(r.Context())
		if err != nil || settings == nil {
			h.writeError(w, http.StatusBadRequest, "bad_request", "season is required")
			return
		}
		season = settings.Season
	}

	keepers, err := h.keepers.GetKeepers(r.Context(), season)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to get keepers")
		h.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	h.writeJSON(w, http.StatusOK, keepers)
}

type createKeeperRequest struct {
	TeamID   uuid.UUID `json:"team_id"`
	PlayerID uuid.UUID `json:"player_id"`
	Season   string    `json:"season"`
}

func (h *Handler) handleCreateKeeper(w http.ResponseWriter, r *http.Request) {
	var req createKeeperRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	created, err := h.keepers.CreateKeeper(r.Context(), req.TeamID, req.PlayerID, req.Season)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleDeleteKeeper(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", "invalid keeper id")
		return
	}

	if err := h.keepers.DeleteKeeper(r.Context(), id); err != nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetPresence(w http.ResponseWriter, r *http.Request) {
	if h.presence == nil {
		h.writeJSON(w, http.StatusOK, []presence.Announcement{})
		return
	}
	h.writeJSON(w, http.StatusOK, h.presence.ActiveTeams())
}
