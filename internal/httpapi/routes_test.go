package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tugofwar/internal/arena"
	"github.com/DoyleJ11/tugofwar/internal/feed"
	"github.com/DoyleJ11/tugofwar/pkg/types"
)

func newServer(t *testing.T) (*feed.Feed, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	f := feed.New(ctx, zap.NewNop())
	srv := httptest.NewServer(SetupRoutes(f, zap.NewNop()))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return f, srv
}

func sample(rope float64) arena.Snapshot {
	return arena.Snapshot{
		Version:      4,
		RopePosition: rope,
		RoundNumber:  2,
		RoundWins:    []int{1, 0},
		TeamEffort:   []float64{300, 250},
		Players: [][]arena.PlayerView{
			{{Energy: 90, Effort: 90, Position: 1, Active: true, PID: 11}},
			{{Energy: 85, Effort: 0, Position: 1, Active: true, Recovering: true, PID: 12}},
		},
		FinalWinner: arena.NoWinner,
	}
}

func getState(t *testing.T, url string) (int, types.ServerMessage) {
	t.Helper()
	resp, err := http.Get(url + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	var msg types.ServerMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	return resp.StatusCode, msg
}

func TestHealthz(t *testing.T) {
	_, srv := newServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestState_BeforeAndAfterPublish(t *testing.T) {
	f, srv := newServer(t)

	status, msg := getState(t, srv.URL)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, types.MsgError, msg.Type)

	require.NoError(t, f.Publish(sample(-7)))
	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + "/state")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, time.Second, 10*time.Millisecond)

	_, msg = getState(t, srv.URL)
	assert.Equal(t, types.MsgStateSnapshot, msg.Type)
	assert.Equal(t, uint64(4), msg.Version)
	require.NotNil(t, msg.State)
	assert.Equal(t, -7.0, msg.State.RopePosition)
	require.Len(t, msg.State.Teams, 2)
	assert.True(t, msg.State.Teams[1].Players[0].Recovering)
	assert.Equal(t, -1, msg.State.FinalWinner)
}

func TestWS_StreamsSnapshots(t *testing.T) {
	f, srv := newServer(t)
	require.NoError(t, f.Publish(sample(1)))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() types.ServerMessage {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var msg types.ServerMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}

	first := read()
	assert.Equal(t, types.MsgStateSnapshot, first.Type)
	assert.Equal(t, 1.0, first.State.RopePosition)

	require.NoError(t, f.Publish(sample(2)))
	assert.Equal(t, 2.0, read().State.RopePosition)
}
