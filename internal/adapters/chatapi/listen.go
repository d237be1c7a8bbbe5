package chatapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"neobot/internal/domain"
)

const (
	readDeadline  = 60 * time.Second
	pingInterval  = 25 * time.Second
	maxBackoff    = 30 * time.Second
	startBackoff  = time.Second
	maxFrameBytes = 1 << 20
)

type eventFrame struct {
	Event *domain.Event `json:"event"`
}

// Listen подключается к websocket-потоку и доставляет события по одному
// в handle. При обрыве переподключается с экспоненциальной паузой,
// пока контекст не отменён.
func (c *Client) Listen(ctx context.Context, handle func(domain.Event)) error {
	backoff := startBackoff
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, err := c.dial(ctx)
		if err != nil {
			c.log.Warn().Err(err).Dur("backoff", backoff).Msg("chatapi: не удалось подключиться")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		c.log.Info().Str("url", c.cfg.WSURL).Msg("chatapi: подключение установлено")
		backoff = startBackoff

		err = c.readLoop(ctx, conn, handle)
		closeConn(conn)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn().Err(err).Msg("chatapi: соединение потеряно, переподключение")
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.cfg.WSURL, header)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})
	return conn, nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, handle func(domain.Event)) error {
	pingStop := make(chan struct{})
	defer close(pingStop)
	go func() {
		t := time.NewTicker(pingInterval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
			case <-pingStop:
				return
			case <-ctx.Done():
				closeConn(conn)
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))

		var frame eventFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.log.Warn().Err(err).Msg("chatapi: нечитаемый кадр пропущен")
			continue
		}
		if frame.Event == nil || frame.Event.Type == "" {
			continue
		}
		handle(*frame.Event)
	}
}

func closeConn(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing"),
		time.Now().Add(500*time.Millisecond))
	_ = conn.Close()
}
