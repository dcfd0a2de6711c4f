package presence

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, ann Announcement) []byte {
	t.Helper()
	data, err := json.Marshal(ann)
	require.NoError(t, err)
	return data
}

func TestTrackerKeepsNewestPerTeam(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewTracker(time.Minute, clock, zerolog.Nop())
	teamID := uuid.New()
	now := clock.Now()

	tracker.Handle(encode(t, Announcement{TeamID: teamID, TeamName: "Alpha", UserID: "laptop", Timestamp: now}))
	tracker.Handle(encode(t, Announcement{TeamID: teamID, TeamName: "Alpha", UserID: "phone", Timestamp: now.Add(time.Second)}))
	// Delayed older heartbeat must not win.
	tracker.Handle(encode(t, Announcement{TeamID: teamID, TeamName: "Alpha", UserID: "laptop", Timestamp: now}))

	active := tracker.ActiveTeams()
	require.Len(t, active, 1)
	assert.Equal(t, "phone", active[0].UserID)
}

func TestTrackerAggregatesDistinctTeams(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewTracker(time.Minute, clock, zerolog.Nop())
	now := clock.Now()

	tracker.Handle(encode(t, Announcement{TeamID: uuid.New(), TeamName: "Bravo", Timestamp: now}))
	tracker.Handle(encode(t, Announcement{TeamID: uuid.New(), TeamName: "Alpha", Timestamp: now}))

	active := tracker.ActiveTeams()
	require.Len(t, active, 2)
	assert.Equal(t, "Alpha", active[0].TeamName)
	assert.Equal(t, "Bravo", active[1].TeamName)
}

func TestTrackerExpiresStaleEntries(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewTracker(30*time.Second, clock, zerolog.Nop())

	stale := uuid.New()
	fresh := uuid.New()
	tracker.Handle(encode(t, Announcement{TeamID: stale, TeamName: "Stale", Timestamp: clock.Now()}))
	clock.Advance(time.Minute)
	tracker.Handle(encode(t, Announcement{TeamID: fresh, TeamName: "Fresh", Timestamp: clock.Now()}))

	active := tracker.ActiveTeams()
	require.Len(t, active, 1)
	assert.Equal(t, fresh, active[0].TeamID)
}

func TestTrackerDropsMalformedPayloads(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewTracker(time.Minute, clock, zerolog.Nop())

	tracker.Handle([]byte("not json"))
	tracker.Handle(encode(t, Announcement{Timestamp: clock.Now()})) // no team id

	assert.Empty(t, tracker.ActiveTeams())
}

type chanPublisher struct {
	published chan []byte
}

func (p *chanPublisher) Publish(subject string, data []byte) error {
	p.published <- data
	return nil
}

func TestAnnouncerHeartbeats(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pub := &chanPublisher{published: make(chan []byte, 8)}
	teamID := uuid.New()
	a := NewAnnouncer(pub, teamID, "Alpha", "user-1", 10*time.Second, clock, zerolog.Nop())

	a.Start()
	defer a.Stop()

	var first Announcement
	select {
	case data := <-pub.published:
		require.NoError(t, json.Unmarshal(data, &first))
	case <-time.After(time.Second):
		t.Fatal("no initial announcement")
	}
	assert.Equal(t, teamID, first.TeamID)
	assert.Equal(t, "Alpha", first.TeamName)

	clock.BlockUntil(1)
	clock.Advance(10 * time.Second)

	select {
	case <-pub.published:
	case <-time.After(time.Second):
		t.Fatal("no heartbeat after interval")
	}
}
