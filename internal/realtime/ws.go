package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// Stream upgrades to a websocket and pushes every hub event as JSON until
// the client goes away.
type Stream struct {
	Hub            *Hub
	OriginPatterns []string
	Logger         *slog.Logger
}

func (s Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// subscribe before the handshake completes so nothing published after
	// the client sees the upgrade is lost
	ch := s.Hub.Subscribe(64)
	defer s.Hub.Unsubscribe(ch)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.OriginPatterns})
	if err != nil {
		logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	// clients never send; CloseRead handles control frames and cancels ctx on close
	ctx := conn.CloseRead(r.Context())

	if err := writeEvent(ctx, conn, NewEvent(EventReady, "")); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case evt, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := writeEvent(ctx, conn, evt); err != nil {
				logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, evt ChangeEvent) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, evt)
}
