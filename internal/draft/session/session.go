package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/renegades-league/draftd/internal/draft/engine"
	"github.com/renegades-league/draftd/internal/draft/outbox"
	"github.com/renegades-league/draftd/internal/draft/pick"
	"github.com/renegades-league/draftd/internal/models"
)

// Status is the session's connection state, surfaced to the UI instead of
// raising transport failures as user-facing errors.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
)

// StateClient refetches targeted slices of the draft state over the HTTP
// API when a rejected pick proves the local view stale. Full snapshots ride
// the WebSocket itself, so nothing can land between fetch and subscribe.
type StateClient interface {
	Picks(ctx context.Context) ([]models.DraftPick, error)
	Players(ctx context.Context) ([]models.Player, error)
}

// PickClient submits pick requests. Errors come back as the typed pick
// precondition failures.
type PickClient interface {
	MakePick(ctx context.Context, req pick.MakePickRequest) error
}

// Config holds the session's connection parameters.
type Config struct {
	WebSocketURL     string
	TeamID           uuid.UUID
	HandshakeTimeout time.Duration
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
}

// DefaultConfig returns a Config with the standard reconnect timings.
func DefaultConfig(wsURL string, teamID uuid.UUID) Config {
	return Config{
		WebSocketURL:     wsURL,
		TeamID:           teamID,
		HandshakeTimeout: 10 * time.Second,
		InitialBackoff:   500 * time.Millisecond,
		MaxBackoff:       30 * time.Second,
	}
}

// Session is one client's live view of the draft. It owns the authoritative
// in-memory snapshots, reconciles the change feed into them, and fans out to
// registered subscribers. A Session is an explicit constructed object, not a
// package-level singleton.
type Session struct {
	cfg    Config
	state  StateClient
	picker PickClient
	clock  clockwork.Clock
	dialer *websocket.Dialer
	store  *store
	logger zerolog.Logger

	mu               sync.Mutex
	status           Status
	changeSubs       []func(outbox.Event)
	statusSubs       []func(Status)
	conn             *websocket.Conn
	synced           bool
	pending          []outbox.Event
	currentPickID    uuid.UUID
	currentPickStart time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewSession constructs a disconnected session. Start begins syncing.
func NewSession(cfg Config, state StateClient, picker PickClient, clock clockwork.Clock, logger zerolog.Logger) *Session {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &Session{
		cfg:    cfg,
		state:  state,
		picker: picker,
		clock:  clock,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		store:  newStore(),
		logger: logger.With().Str("component", "draft_session").Logger(),
		status: StatusDisconnected,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// OnChange registers a callback invoked after every applied change event.
// Register before Start; callbacks run on the session's read goroutine.
func (s *Session) OnChange(fn func(outbox.Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changeSubs = append(s.changeSubs, fn)
}

// OnStatus registers a callback invoked on every connection status change.
func (s *Session) OnStatus(fn func(Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusSubs = append(s.statusSubs, fn)
}

// Start launches the connect/sync loop and returns immediately.
func (s *Session) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop tears the session down. Safe to call more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
		}
		s.mu.Unlock()
	})
	<-s.done
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer s.setStatus(StatusDisconnected)

	backoff := s.cfg.InitialBackoff
	first := true
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if first {
			s.setStatus(StatusConnecting)
		} else {
			s.setStatus(StatusReconnecting)
		}

		conn, _, err := s.dialer.DialContext(ctx, s.cfg.WebSocketURL, nil)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", s.cfg.WebSocketURL).Msg("websocket dial failed")
			if !s.wait(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, s.cfg.MaxBackoff)
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.synced = false
		s.pending = nil
		s.mu.Unlock()

		// Subscribe before syncing: the gateway answers the request on this
		// same connection, and events read while the snapshot is in flight
		// are buffered, so nothing can slip between the two.
		if err := conn.WriteJSON(clientFrame{Type: frameSnapshotRequest}); err != nil {
			s.logger.Warn().Err(err).Msg("snapshot request failed")
			conn.Close()
			if !s.wait(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, s.cfg.MaxBackoff)
			continue
		}
		backoff = s.cfg.InitialBackoff
		first = false

		s.readLoop(conn)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()

		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}
	}
}

// Wire frames shared with the gateway. Change events carry no type field;
// only snapshot traffic does.
const (
	frameSnapshotRequest = "snapshot_request"
	frameSnapshot        = "snapshot"
)

type clientFrame struct {
	Type string `json:"type"`
}

type serverFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}

		var frame serverFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.logger.Warn().Err(err).Msg("failed to decode frame")
			continue
		}
		if frame.Type == frameSnapshot {
			var snap Snapshot
			if err := json.Unmarshal(frame.Data, &snap); err != nil {
				s.logger.Warn().Err(err).Msg("failed to decode snapshot frame")
				continue
			}
			s.applySnapshot(&snap)
			continue
		}

		var ev outbox.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.logger.Warn().Err(err).Msg("failed to decode change event")
			continue
		}
		s.dispatch(ev)
	}
}

// applySnapshot installs a full state frame and replays the events buffered
// while it was in flight. Events the snapshot already reflects re-apply
// cleanly: reconciliation is per row with identical payloads.
func (s *Session) applySnapshot(snap *Snapshot) {
	s.store.reset(snap)
	s.trackCurrentPick()

	s.mu.Lock()
	s.synced = true
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	s.setStatus(StatusConnected)
	for _, ev := range pending {
		s.dispatch(ev)
	}
}

// resync discards the synced view and requests a fresh snapshot in band.
// Events keep arriving and buffer until it lands.
func (s *Session) resync() {
	s.mu.Lock()
	s.synced = false
	s.pending = nil
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return
	}
	if err := conn.WriteJSON(clientFrame{Type: frameSnapshotRequest}); err != nil {
		s.logger.Warn().Err(err).Msg("snapshot request failed")
		// The reconnect loop resyncs from scratch.
		conn.Close()
	}
}

func (s *Session) dispatch(ev outbox.Event) {
	s.mu.Lock()
	if !s.synced {
		s.pending = append(s.pending, ev)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	applied, err := s.store.apply(ev)
	if err != nil {
		s.logger.Warn().Err(err).Int64("seq", ev.Seq).Str("table", ev.Change.Table).Msg("failed to apply change event")
		return
	}
	if !applied {
		return
	}
	s.trackCurrentPick()

	// A settings change regenerates the whole ledger server-side, but the
	// event carries only the settings row. The deleted pick rows and
	// cleared player flags have to come from a fresh snapshot.
	if ev.Change.Table == "draft_settings" {
		s.resync()
	}

	s.mu.Lock()
	subs := make([]func(outbox.Event), len(s.changeSubs))
	copy(subs, s.changeSubs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// trackCurrentPick records when the on-clock pick changed, so PickDeadline
// can surface the pick clock.
func (s *Session) trackCurrentPick() {
	current, ok := engine.ResolveCurrentPick(s.store.snapshotPicks())
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok {
		s.currentPickID = uuid.Nil
		return
	}
	if current.ID != s.currentPickID {
		s.currentPickID = current.ID
		s.currentPickStart = s.clock.Now()
	}
}

func (s *Session) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-s.clock.After(d):
		return true
	case <-s.stopCh:
		return false
	case <-ctx.Done():
		return false
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func (s *Session) setStatus(status Status) {
	s.mu.Lock()
	if s.status == status {
		s.mu.Unlock()
		return
	}
	s.status = status
	subs := make([]func(Status), len(s.statusSubs))
	copy(subs, s.statusSubs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(status)
	}
}

// ConnectionStatus returns the current connection state.
func (s *Session) ConnectionStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// CurrentPick resolves the on-clock pick from the local ledger view. The
// returned name is the owning team's, empty if unknown. ok is false when the
// draft is complete or no snapshot has loaded yet.
func (s *Session) CurrentPick() (models.DraftPick, string, bool) {
	current, ok := engine.ResolveCurrentPick(s.store.snapshotPicks())
	if !ok {
		return models.DraftPick{}, "", false
	}
	return *current, s.store.teamName(current.CurrentTeamID), true
}

// CurrentTeamID returns the team on the clock, uuid.Nil when none.
func (s *Session) CurrentTeamID() uuid.UUID {
	current, ok := engine.ResolveCurrentPick(s.store.snapshotPicks())
	if !ok {
		return uuid.Nil
	}
	return current.CurrentTeamID
}

// DraftStats recomputes the derived stats from the local view.
func (s *Session) DraftStats() models.DraftStats {
	return engine.ComputeDraftStats(s.store.getSettings(), s.store.snapshotPicks(), s.store.snapshotPlayers())
}

// Settings returns the local view of the league settings.
func (s *Session) Settings() models.DraftSettings {
	return s.store.getSettings()
}

// Picks returns the local ledger view, unordered.
func (s *Session) Picks() []models.DraftPick {
	return s.store.snapshotPicks()
}

// Players returns the local player pool view, unordered.
func (s *Session) Players() []models.Player {
	return s.store.snapshotPlayers()
}

// PickDeadline returns when the pick clock for the on-clock pick expires.
// ok is false when there is no pick on the clock or no time limit is set.
// Display only; the server never auto-picks.
func (s *Session) PickDeadline() (time.Time, bool) {
	limit := s.store.getSettings().PickTimeLimitSec
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || s.currentPickID == uuid.Nil {
		return time.Time{}, false
	}
	return s.currentPickStart.Add(time.Duration(limit) * time.Second), true
}

// MakePick submits a pick for the session's team. The pick is applied
// optimistically to the local view first; a rejection restores the captured
// pre-image and, where the failure implies staleness, refetches the affected
// snapshot.
func (s *Session) MakePick(ctx context.Context, playerID uuid.UUID) error {
	if s.cfg.TeamID == uuid.Nil {
		return fmt.Errorf("session has no team binding")
	}

	pre, stageErr := s.store.stagePick(s.cfg.TeamID, playerID)
	if stageErr != nil {
		s.logger.Debug().Err(stageErr).Msg("skipping optimistic apply")
	}

	if err := s.picker.MakePick(ctx, pick.MakePickRequest{TeamID: s.cfg.TeamID, PlayerID: playerID}); err != nil {
		if pre != nil {
			pre.restore()
		}
		s.refetchFor(ctx, err)
		return err
	}
	return nil
}

// refetchFor resynchronizes the snapshot a failure proves stale.
func (s *Session) refetchFor(ctx context.Context, pickErr error) {
	switch {
	case errors.Is(pickErr, pick.ErrPlayerAlreadyDrafted), errors.Is(pickErr, pick.ErrPlayerIsKeeper):
		players, err := s.state.Players(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("player pool refetch failed")
			return
		}
		s.store.resetPlayers(players)
	case errors.Is(pickErr, pick.ErrPickAlreadyUsed):
		picks, err := s.state.Picks(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("ledger refetch failed")
			return
		}
		s.store.resetPicks(picks)
		s.trackCurrentPick()
	}
}
