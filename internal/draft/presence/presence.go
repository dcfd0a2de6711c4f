package presence

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// DefaultSubject is the shared ephemeral channel presence heartbeats are
// published on. Core NATS, not JetStream: presence is advisory and losing
// a heartbeat costs nothing.
const DefaultSubject = "draft.presence"

// DefaultInterval is the heartbeat period.
const DefaultInterval = 10 * time.Second

// Announcement is one client's heartbeat.
type Announcement struct {
	TeamID    uuid.UUID `json:"team_id"`
	TeamName  string    `json:"team_name"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher is the slice of the NATS connection the announcer needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Announcer periodically publishes the local client's heartbeat.
type Announcer struct {
	pub      Publisher
	subject  string
	interval time.Duration
	clock    clockwork.Clock
	logger   zerolog.Logger

	teamID   uuid.UUID
	teamName string
	userID   string

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func NewAnnouncer(pub Publisher, teamID uuid.UUID, teamName, userID string, interval time.Duration, clock clockwork.Clock, logger zerolog.Logger) *Announcer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Announcer{
		pub:      pub,
		subject:  DefaultSubject,
		interval: interval,
		clock:    clock,
		logger:   logger.With().Str("component", "presence_announcer").Logger(),
		teamID:   teamID,
		teamName: teamName,
		userID:   userID,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start announces immediately, then on every interval tick until Stop.
func (a *Announcer) Start() {
	go func() {
		defer close(a.done)
		a.announce()
		ticker := a.clock.NewTicker(a.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Chan():
				a.announce()
			case <-a.stopCh:
				return
			}
		}
	}()
}

func (a *Announcer) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
	<-a.done
}

func (a *Announcer) announce() {
	ann := Announcement{
		TeamID:    a.teamID,
		TeamName:  a.teamName,
		UserID:    a.userID,
		Timestamp: a.clock.Now(),
	}
	data, err := json.Marshal(ann)
	if err != nil {
		a.logger.Warn().Err(err).Msg("failed to encode presence announcement")
		return
	}
	if err := a.pub.Publish(a.subject, data); err != nil {
		a.logger.Warn().Err(err).Msg("failed to publish presence announcement")
	}
}

// Tracker aggregates heartbeats into the set of currently active teams.
// One entry per team, newest timestamp wins. Presence never gates picks;
// an absent team can still pick when it is on the clock.
type Tracker struct {
	clock  clockwork.Clock
	ttl    time.Duration
	logger zerolog.Logger

	mu     sync.Mutex
	latest map[uuid.UUID]Announcement
}

func NewTracker(ttl time.Duration, clock clockwork.Clock, logger zerolog.Logger) *Tracker {
	if ttl <= 0 {
		ttl = 3 * DefaultInterval
	}
	return &Tracker{
		clock:  clock,
		ttl:    ttl,
		logger: logger.With().Str("component", "presence_tracker").Logger(),
		latest: make(map[uuid.UUID]Announcement),
	}
}

// Subscribe wires the tracker to the presence subject on a live connection.
func (t *Tracker) Subscribe(nc *nats.Conn) (*nats.Subscription, error) {
	return nc.Subscribe(DefaultSubject, func(msg *nats.Msg) {
		t.Handle(msg.Data)
	})
}

// Handle folds one heartbeat payload into the tracker. Malformed payloads
// are dropped.
func (t *Tracker) Handle(data []byte) {
	var ann Announcement
	if err := json.Unmarshal(data, &ann); err != nil {
		t.logger.Warn().Err(err).Msg("failed to decode presence announcement")
		return
	}
	if ann.TeamID == uuid.Nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.latest[ann.TeamID]; ok && existing.Timestamp.After(ann.Timestamp) {
		return
	}
	t.latest[ann.TeamID] = ann
}

// ActiveTeams returns the teams with a heartbeat within the TTL, sorted by
// team name for stable display.
func (t *Tracker) ActiveTeams() []Announcement {
	cutoff := t.clock.Now().Add(-t.ttl)

	t.mu.Lock()
	active := make([]Announcement, 0, len(t.latest))
	for id, ann := range t.latest {
		if ann.Timestamp.Before(cutoff) {
			delete(t.latest, id)
			continue
		}
		active = append(active, ann)
	}
	t.mu.Unlock()

	sort.Slice(active, func(i, j int) bool { return active[i].TeamName < active[j].TeamName })
	return active
}
