package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"swiftDropWs/internal/modules/relay/domain"
	"swiftDropWs/internal/modules/relay/infrastructure"
	"swiftDropWs/internal/shared/auth"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Options tunes the per-connection resources of the websocket endpoint.
type Options struct {
	SendBuffer         int
	LocationRatePerSec float64
	LocationBurst      int
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 16
	}
	if o.LocationRatePerSec <= 0 {
		o.LocationRatePerSec = 2
	}
	if o.LocationBurst <= 0 {
		o.LocationBurst = 5
	}
	return o
}

// NewWebsocketHandler exposes the relay endpoint. The connection is upgraded
// unauthenticated; identity is established by the authenticate action over
// the socket, so the UI can show "connected but not yet authorized".
func NewWebsocketHandler(hub *infrastructure.Hub, commands *infrastructure.CommandProcessor, opts Options) func(echo.Context) error {
	opts = opts.withDefaults()
	return func(c echo.Context) error {
		peerIP := c.RealIP()
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			slog.Error("ws upgrade failed", slog.String("ip", peerIP), slog.Any("error", err))
			return err
		}

		client := infrastructure.NewClient(hub, conn, opts.SendBuffer, rate.Limit(opts.LocationRatePerSec), opts.LocationBurst, commands)
		hub.AttachClient(client)

		go client.WritePump()
		go client.ReadPump()

		client.SendMessage(domain.BuildConnectedMessage(client.SocketID(), time.Now()))

		// A token in the Authorization header or token query parameter
		// completes the handshake without waiting for an authenticate frame.
		if token := auth.ExtractToken(c.Request(), "token"); token != "" {
			commands.AuthenticateWithToken(client, token)
		}
		slog.Info("ws connected", slog.String("socketId", client.SocketID()), slog.String("ip", peerIP))
		return nil
	}
}
