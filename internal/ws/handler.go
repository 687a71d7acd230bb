package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tugofwar/internal/arena"
	"github.com/DoyleJ11/tugofwar/internal/feed"
	"github.com/DoyleJ11/tugofwar/pkg/types"
)

const writeTimeout = 3 * time.Second

// Handler streams every snapshot the feed publishes to one spectator.
// Spectators only watch; anything they send is discarded.
func Handler(f *feed.Feed, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		clog := log.With(zap.String("client_id", clientID))
		out := make(chan arena.Snapshot, 8)

		select {
		case f.Inbox() <- feed.Join{ClientID: clientID, Outbox: out}:
		case <-f.Done():
			conn.Close(websocket.StatusGoingAway, "match over")
			return
		}
		defer func() {
			select {
			case f.Inbox() <- feed.Leave{ClientID: clientID}:
			case <-f.Done():
			}
		}()

		// CloseRead handles pings and close frames and cancels ctx when the
		// peer goes away.
		ctx := conn.CloseRead(r.Context())

		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-out:
				if !ok {
					conn.Close(websocket.StatusGoingAway, "feed closed")
					return
				}
				if err := write(ctx, conn, snap); err != nil {
					clog.Debug("spectator write failed", zap.Error(err))
					return
				}
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, snap arena.Snapshot) error {
	msg := types.ServerMessage{Type: types.MsgStateSnapshot, Version: snap.Version, State: snap.Wire()}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
