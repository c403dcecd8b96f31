package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	Type  string `json:"type"`
	JobID string `json:"jobId"`
	State string `json:"state"`
}

func newTestServer(t *testing.T, snapshot SnapshotFunc) (*Hub, *httptest.Server) {
	t.Helper()
	h := New(snapshot)
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return h, srv
}

func dial(t *testing.T, srv *httptest.Server, job string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?job=" + job
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestHub_SendsSnapshotThenUpdates(t *testing.T) {
	h, srv := newTestServer(t, func(_ context.Context, topic string) (interface{}, error) {
		return event{Type: "video_status", JobID: topic, State: "polling"}, nil
	})

	conn := dial(t, srv, "job-1")

	snap := readEvent(t, conn)
	assert.Equal(t, "job-1", snap.JobID)
	assert.Equal(t, "polling", snap.State)
	assert.Equal(t, 1, h.ClientCount("job-1"))

	h.Publish("job-1", event{Type: "video_status", JobID: "job-1", State: "completed"})
	h.Publish("job-2", event{Type: "video_status", JobID: "job-2", State: "failed"})

	update := readEvent(t, conn)
	assert.Equal(t, "completed", update.State)
}

func TestHub_TopicsAreIsolated(t *testing.T) {
	h, srv := newTestServer(t, nil)

	a := dial(t, srv, "job-a")
	b := dial(t, srv, "job-b")
	require.Eventually(t, func() bool {
		return h.ClientCount("job-a") == 1 && h.ClientCount("job-b") == 1
	}, 2*time.Second, 10*time.Millisecond)

	h.Publish("job-b", event{JobID: "job-b", State: "completed"})
	assert.Equal(t, "job-b", readEvent(t, b).JobID)

	a.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := a.ReadMessage()
	var netErr interface{ Timeout() bool }
	require.True(t, errors.As(err, &netErr))
	assert.True(t, netErr.Timeout())
}

func TestHub_MissingSnapshotStillSubscribes(t *testing.T) {
	h, srv := newTestServer(t, func(context.Context, string) (interface{}, error) {
		return nil, errors.New("not found")
	})

	conn := dial(t, srv, "job-x")
	require.Eventually(t, func() bool { return h.ClientCount("job-x") == 1 }, 2*time.Second, 10*time.Millisecond)

	h.Publish("job-x", event{JobID: "job-x", State: "pending"})
	assert.Equal(t, "pending", readEvent(t, conn).State)
}

func TestHub_UnknownJobIsClosed(t *testing.T) {
	h, srv := newTestServer(t, func(context.Context, string) (interface{}, error) {
		return nil, ErrUnknownTopic
	})

	conn := dial(t, srv, "job-missing")
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()

	var closeErr *websocket.CloseError
	require.True(t, errors.As(err, &closeErr))
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
	assert.Equal(t, "job not found", closeErr.Text)
	assert.Equal(t, 0, h.ClientCount("job-missing"))
}

func TestHub_DisconnectAndCleanup(t *testing.T) {
	h, srv := newTestServer(t, nil)

	conn := dial(t, srv, "job-1")
	require.Eventually(t, func() bool { return h.ClientCount("job-1") == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return h.ClientCount("job-1") == 0 }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, h.cleanupEmptyTopics())
	assert.Equal(t, 0, h.cleanupEmptyTopics())
}

func TestHub_RequiresJobParameter(t *testing.T) {
	_, srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHub_Stats(t *testing.T) {
	h, srv := newTestServer(t, nil)
	dial(t, srv, "job-1")
	require.Eventually(t, func() bool { return h.ClientCount("job-1") == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get(srv.URL + "/ws/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, float64(1), stats["activeTopics"])
	assert.Equal(t, float64(1), stats["currentClients"])
	assert.Equal(t, float64(1), stats["totalConnections"])
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	h, srv := newTestServer(t, nil)
	conn := dial(t, srv, "job-1")
	require.Eventually(t, func() bool { return h.ClientCount("job-1") == 1 }, 2*time.Second, 10*time.Millisecond)

	h.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, h.ClientCount("job-1"))
}
