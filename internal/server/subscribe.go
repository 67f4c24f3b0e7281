package server

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
)

// FeedURL turns a server address or URL into the events endpoint, optionally
// filtered to one game.
func FeedURL(addr string, gameID uint64) (string, error) {
	if !hasScheme(addr) {
		addr = "ws://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("invalid feed address: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported feed scheme %q", u.Scheme)
	}
	u.Path = "/events"
	q := url.Values{}
	if gameID != 0 {
		q.Set("game", strconv.FormatUint(gameID, 10))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func hasScheme(addr string) bool {
	u, err := url.Parse(addr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Subscribe reads envelopes from a feed and hands each to fn until the
// context is cancelled or the server closes the connection. Both of those
// return nil.
func Subscribe(ctx context.Context, feedURL string, fn func(Envelope)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, feedURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() { _ = conn.Close() }()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil
			}
			return fmt.Errorf("read feed: %w", err)
		}
		fn(env)
	}
}
