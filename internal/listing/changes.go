package listing

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"hkiapp/internal/domain"
	"hkiapp/internal/realtime"
)

// Subscribe streams change events from /api/hki/changes until ctx ends or
// the connection drops. The token travels in the query string because
// browsers cannot set headers on a websocket handshake.
func (c *APIClient) Subscribe(ctx context.Context, handle func(realtime.ChangeEvent)) error {
	u, err := url.Parse(c.BaseURL + "/api/hki/changes")
	if err != nil {
		return domain.RemoteError{Err: err}
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	if c.Token != "" {
		q := u.Query()
		q.Set("token", c.Token)
		u.RawQuery = q.Encode()
	}

	conn, resp, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return domain.RemoteError{Status: resp.StatusCode, Err: err}
		}
		return domain.RemoteError{Err: err}
	}
	defer conn.CloseNow()

	for {
		var evt realtime.ChangeEvent
		if err := wsjson.Read(ctx, conn, &evt); err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				conn.Close(websocket.StatusNormalClosure, "")
				return nil
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return domain.RemoteError{Err: err}
		}
		handle(evt)
	}
}
