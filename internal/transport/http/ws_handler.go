package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/gateway"
	"github.com/vovakirdan/wirechat-gateway/internal/proto"
	"github.com/vovakirdan/wirechat-gateway/internal/utils"
)

const writeTimeout = 10 * time.Second

// StatusEvicted closes a connection replaced by a newer login.
const StatusEvicted websocket.StatusCode = 4001

var errClosedByServer = errors.New("closed by server")

// WSConfig tunes websocket sessions.
type WSConfig struct {
	HandshakeTimeout time.Duration
	MaxMessageBytes  int64
	SendBuffer       int
}

// WSHandler upgrades HTTP connections and bridges them to the gateway.
type WSHandler struct {
	gw  *gateway.Gateway
	cfg WSConfig
	log *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(gw *gateway.Gateway, cfg WSConfig, logger *zerolog.Logger) stdhttp.Handler {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &WSHandler{gw: gw, cfg: cfg, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()
	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client, err := h.handshake(ctx, conn)
	if err != nil {
		h.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("ws handshake rejected")
		conn.Close(websocket.StatusPolicyViolation, "unauthorized")
		return
	}

	if err := h.gw.Connect(ctx, client); err != nil {
		if errors.Is(err, gateway.ErrShuttingDown) {
			conn.Close(websocket.StatusGoingAway, core.ReasonShutdown)
			return
		}
		h.log.Error().Err(err).Str("user_id", client.UserID()).Msg("ws connect failed")
		conn.Close(websocket.StatusInternalError, "internal error")
		return
	}
	defer h.gw.Disconnect(client)

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	status, reason := h.closeStatus(client, err)
	conn.Close(status, reason)
	cancel() // stop the other goroutine
	<-errCh
	client.Close("connection closed")
}

// handshake reads the auth frame and authenticates it.
func (h *WSHandler) handshake(ctx context.Context, conn *websocket.Conn) (*core.Client, error) {
	hctx, cancel := context.WithTimeout(ctx, h.cfg.HandshakeTimeout)
	defer cancel()

	var hs proto.Handshake
	if err := wsjson.Read(hctx, conn, &hs); err != nil {
		return nil, fmt.Errorf("read handshake: %w", err)
	}
	user, err := h.gw.Authenticate(hctx, hs.Auth.Token)
	if err != nil {
		return nil, err
	}
	return core.NewClient(utils.NewID(), user.ID, h.cfg.SendBuffer), nil
}

func (h *WSHandler) closeStatus(client *core.Client, err error) (websocket.StatusCode, string) {
	if errors.Is(err, errClosedByServer) {
		reason := client.CloseReason()
		if reason == core.ReasonShutdown {
			return websocket.StatusGoingAway, reason
		}
		return StatusEvicted, reason
	}

	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return websocket.StatusNormalClosure, "closing"
	}
	switch status := websocket.CloseStatus(err); status {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return status, "closing"
	case -1:
		h.log.Warn().Err(err).Str("user_id", client.UserID()).Msg("ws connection closed with error")
		return websocket.StatusInternalError, "connection error"
	default:
		h.log.Debug().Err(err).Str("user_id", client.UserID()).Int("status", int(status)).Msg("ws peer closed")
		return status, "closing"
	}
}

// readLoop dispatches frames in arrival order. A malformed frame is
// reported to the client and skipped.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		in, err := decodeInbound(data)
		if err != nil {
			h.log.Debug().Err(err).Str("conn_id", client.ID()).Msg("bad ws frame")
			h.gw.Hub().Send(client, core.ToastEvent(core.ToastError, "malformed frame"))
			continue
		}
		h.gw.Dispatch(ctx, client, in)
	}
}

// writeLoop drains the client queue. Once the client is closed by the
// server, events still queued (such as the eviction notice) are flushed.
func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event := <-client.Events():
			if err := h.write(ctx, conn, event); err != nil {
				return err
			}
		case <-client.Done():
			for {
				select {
				case event := <-client.Events():
					if err := h.write(ctx, conn, event); err != nil {
						return err
					}
				default:
					return errClosedByServer
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) write(ctx context.Context, conn *websocket.Conn, event core.Event) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(wctx, conn, outboundFromEvent(event)); err != nil {
		h.log.Debug().Err(err).Str("event", string(event.Name)).Msg("write ws event")
		return err
	}
	return nil
}
