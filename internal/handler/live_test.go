package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/domain"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/middleware"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/realtime"
)

// liveServer serves /ws for the user named in the X-User header
func liveServer(t *testing.T, authorizer realtime.Authorizer, origins ...string) (*httptest.Server, *realtime.Hub) {
	t.Helper()

	hub := realtime.NewHub(authorizer, nil, nil, realtime.Options{})
	live := NewLiveHandler(hub, LiveOptions{AllowedOrigins: origins}, nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := &domain.User{ID: r.Header.Get("X-User")}
		ctx := context.WithValue(r.Context(), middleware.PrincipalKey, user)
		live.Serve(w, r.WithContext(ctx))
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return srv, hub
}

func dial(t *testing.T, srv *httptest.Server, userID string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()

	if header == nil {
		header = http.Header{}
	}
	header.Set("X-User", userID)
	return websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
}

func readFrame(t *testing.T, ws *websocket.Conn, v interface{}) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, ws.ReadJSON(v))
}

func onlyAlice(_ context.Context, projectID, userID string) error {
	if projectID != "p1" {
		return domain.ErrProjectNotFound
	}
	if userID != "alice" {
		return domain.ErrForbidden
	}
	return nil
}

func TestLiveHandler_JoinReceivesEvents(t *testing.T) {
	srv, hub := liveServer(t, realtime.AuthorizerFunc(onlyAlice))

	ws, _, err := dial(t, srv, "alice", nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteJSON(ClientFrame{Type: FrameJoinRoom, ProjectID: "p1"}))
	require.Eventually(t, func() bool { return hub.RoomCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Announce("p1", domain.NewTaskEvent(domain.TaskCreated, &domain.Task{ID: "t1", ProjectID: "p1"}))

	var msg realtime.Message
	readFrame(t, ws, &msg)
	assert.Equal(t, realtime.MessageTaskEvent, msg.Type)
	assert.Equal(t, "p1", msg.ProjectID)
	assert.Equal(t, domain.TaskCreated, msg.Event.Type)
	assert.Equal(t, "t1", msg.Event.Task.ID)

	require.NoError(t, ws.WriteJSON(ClientFrame{Type: FrameLeaveRoom, ProjectID: "p1"}))
	require.Eventually(t, func() bool { return hub.RoomCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestLiveHandler_DeniedJoinGetsErrorFrame(t *testing.T) {
	srv, hub := liveServer(t, realtime.AuthorizerFunc(onlyAlice))

	ws, _, err := dial(t, srv, "mallory", nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteJSON(ClientFrame{Type: FrameJoinRoom, ProjectID: "p1"}))

	var frame ErrorFrame
	readFrame(t, ws, &frame)
	assert.Equal(t, FrameError, frame.Type)
	assert.Equal(t, string(domain.CodeForbidden), frame.Code)
	assert.Equal(t, "p1", frame.ProjectID)
	assert.Zero(t, hub.RoomCount())

	require.NoError(t, ws.WriteJSON(ClientFrame{Type: FrameJoinRoom, ProjectID: "p2"}))
	readFrame(t, ws, &frame)
	assert.Equal(t, string(domain.CodeNotFound), frame.Code)
}

func TestLiveHandler_MalformedFrames(t *testing.T) {
	srv, _ := liveServer(t, realtime.AuthorizerFunc(onlyAlice))

	ws, _, err := dial(t, srv, "alice", nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("not json")))
	var frame ErrorFrame
	readFrame(t, ws, &frame)
	assert.Equal(t, string(domain.CodeBadRequest), frame.Code)

	require.NoError(t, ws.WriteJSON(ClientFrame{Type: "subscribe", ProjectID: "p1"}))
	readFrame(t, ws, &frame)
	assert.Equal(t, string(domain.CodeBadRequest), frame.Code)
}

func TestLiveHandler_ClientCloseLeavesRooms(t *testing.T) {
	srv, hub := liveServer(t, realtime.AuthorizerFunc(onlyAlice))

	ws, _, err := dial(t, srv, "alice", nil)
	require.NoError(t, err)

	require.NoError(t, ws.WriteJSON(ClientFrame{Type: FrameJoinRoom, ProjectID: "p1"}))
	require.Eventually(t, func() bool { return hub.RoomCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, ws.Close())
	assert.Eventually(t, func() bool { return hub.RoomCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestLiveHandler_RejectsForeignOrigin(t *testing.T) {
	srv, _ := liveServer(t, realtime.AuthorizerFunc(onlyAlice), "http://localhost:5173")

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := dial(t, srv, "alice", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "http://localhost:5173")
	ws, _, err := dial(t, srv, "alice", header)
	require.NoError(t, err)
	_ = ws.Close()
}
