// Package ws streams download progress to browser clients over a WebSocket.
package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Belphemur/TubeMP3/internal/config"
	"github.com/Belphemur/TubeMP3/internal/models"
	"github.com/Belphemur/TubeMP3/internal/reporting"
	"github.com/Belphemur/TubeMP3/internal/services"
)

// Path is where the handler is mounted on the metrics HTTP server
const Path = "/ws/download"

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	requestWait    = 30 * time.Second
	maxRequestSize = 8 << 10
)

// errorMessage is sent instead of a result when the request fails
type errorMessage struct {
	RequestID string `json:"requestId,omitempty"`
	Error     string `json:"error"`
}

// Handler upgrades GET /ws/download, reads one DownloadRequest and
// writes every DownloadEvent of that request as a JSON text message.
type Handler struct {
	downloader services.Downloader
	reporter   *reporting.Reporter
	upgrader   websocket.Upgrader
	logger     zerolog.Logger
}

// NewHandler creates a Handler. reporter may be nil.
func NewHandler(downloader services.Downloader, reporter *reporting.Reporter) *Handler {
	return &Handler{
		downloader: downloader,
		reporter:   reporter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger: config.GetLogger(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxRequestSize)

	var req models.DownloadRequest
	_ = conn.SetReadDeadline(time.Now().Add(requestWait))
	if err := conn.ReadJSON(&req); err != nil {
		h.logger.Debug().Err(err).Msg("Invalid WebSocket download request")
		h.writeError(conn, "", errors.New("expected a JSON download request"))
		h.close(conn)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.readUntilClosed(conn, cancel)

	logger := h.logger.With().Str("url", req.URL).Str("remote", r.RemoteAddr).Logger()
	logger.Info().Msg("WebSocket download started")

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	events := h.downloader.StreamDownload(ctx, req)
	requestID := ""
	for {
		select {
		case result, ok := <-events:
			if !ok {
				if ctx.Err() == nil {
					h.close(conn)
				}
				return
			}
			if result.Err != nil {
				logger.Warn().Err(result.Err).Msg("WebSocket download failed")
				h.reporter.Capture(result.Err, map[string]string{"operation": "ws_download"})
				h.writeError(conn, requestID, result.Err)
				h.close(conn)
				return
			}
			requestID = result.Value.RequestID
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(result.Value); err != nil {
				logger.Debug().Err(err).Msg("WebSocket client went away")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readUntilClosed drains control frames and cancels the request once the peer disconnects
func (h *Handler) readUntilClosed(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Msg("WebSocket closed unexpectedly")
			}
			return
		}
	}
}

func (h *Handler) writeError(conn *websocket.Conn, requestID string, err error) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteJSON(errorMessage{RequestID: requestID, Error: err.Error()})
}

func (h *Handler) close(conn *websocket.Conn) {
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
}
