package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renegades-league/draftd/internal/draft/outbox"
)

func startManager(t *testing.T) (*ConnectionManager, string) {
	t.Helper()

	cm := NewConnectionManager(DefaultConnectionConfig())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go cm.Start(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := cm.UpgradeConnection(w, r, "user-1", uuid.New()); err != nil {
			t.Errorf("upgrade failed: %v", err)
		}
	}))
	t.Cleanup(srv.Close)

	return cm, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) outbox.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev outbox.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestBroadcastReachesAllClients(t *testing.T) {
	cm, url := startManager(t)

	first := dial(t, url)
	second := dial(t, url)

	require.Eventually(t, func() bool { return cm.ConnectionCount() == 2 }, time.Second, 10*time.Millisecond)

	sent := outbox.Event{
		ID:  uuid.New(),
		Seq: 7,
		Change: outbox.Change{
			Table:     "draft_picks",
			EventType: outbox.EventUpdate,
			RowID:     uuid.New(),
		},
	}
	cm.BroadcastChange(sent)

	for _, conn := range []*websocket.Conn{first, second} {
		got := readEvent(t, conn)
		assert.Equal(t, sent.Seq, got.Seq)
		assert.Equal(t, sent.Change.Table, got.Change.Table)
		assert.Equal(t, sent.Change.RowID, got.Change.RowID)
	}
}

type fakeStateProvider struct {
	snap *StateSnapshot
}

func (f *fakeStateProvider) Snapshot(ctx context.Context) (*StateSnapshot, error) {
	return f.snap, nil
}

func TestSnapshotRequestGetsSnapshotFrame(t *testing.T) {
	cm, url := startManager(t)
	cm.SetStateProvider(&fakeStateProvider{snap: &StateSnapshot{}})

	conn := dial(t, url)
	require.Eventually(t, func() bool { return cm.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "snapshot_request"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame snapshotFrame
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, "snapshot", frame.Type)
	assert.NotEmpty(t, frame.Data)
}

func TestDisconnectUnregisters(t *testing.T) {
	cm, url := startManager(t)

	conn := dial(t, url)
	require.Eventually(t, func() bool { return cm.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return cm.ConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
}
