package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/domain"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/middleware"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/realtime"
)

// Типы кадров протокола живого соединения
const (
	FrameJoinRoom  = "join-room"
	FrameLeaveRoom = "leave-room"
	FrameError     = "error"
)

// LiveOptions содержит таймауты WebSocket соединения
type LiveOptions struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	JoinTimeout    time.Duration
	AllowedOrigins []string
}

// ClientFrame представляет кадр, присылаемый клиентом
type ClientFrame struct {
	Type      string `json:"type"`
	ProjectID string `json:"project_id"`
}

// ErrorFrame сообщает клиенту об отклоненном кадре
type ErrorFrame struct {
	Type      string `json:"type"`
	Code      string `json:"code"`
	ProjectID string `json:"project_id,omitempty"`
}

// LiveHandler обслуживает WebSocket соединения и подписки на комнаты проектов
type LiveHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	opts     LiveOptions
	logger   *slog.Logger
}

// NewLiveHandler создает новый LiveHandler
func NewLiveHandler(hub *realtime.Hub, opts LiveOptions, logger *slog.Logger) *LiveHandler {
	if opts.WriteWait <= 0 {
		opts.WriteWait = 10 * time.Second
	}
	if opts.PongWait <= 0 {
		opts.PongWait = 60 * time.Second
	}
	if opts.PingPeriod <= 0 || opts.PingPeriod >= opts.PongWait {
		opts.PingPeriod = opts.PongWait * 9 / 10
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = 4096
	}
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	h := &LiveHandler{
		hub:    hub,
		opts:   opts,
		logger: logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin пропускает клиентов без Origin и источники из списка разрешенных
func (h *LiveHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// Serve обрабатывает GET /ws
func (h *LiveHandler) Serve(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipalFromContext(r.Context())
	if user == nil {
		RespondWithError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrader уже записал ответ с ошибкой
		h.logger.Debug("WebSocket upgrade failed", "error", err)
		return
	}

	conn := h.hub.Register(user.ID)
	replies := make(chan ErrorFrame, 8)

	h.logger.Info("Live connection opened", "conn_id", conn.ID(), "user_id", user.ID)

	go h.writePump(ws, conn, replies)
	h.readPump(context.WithoutCancel(r.Context()), ws, conn, replies)

	h.logger.Info("Live connection closed", "conn_id", conn.ID(), "user_id", user.ID)
}

// readPump читает кадры клиента до разрыва соединения
func (h *LiveHandler) readPump(ctx context.Context, ws *websocket.Conn, conn *realtime.Conn, replies chan<- ErrorFrame) {
	defer func() {
		h.hub.Disconnect(conn)
		_ = ws.Close()
	}()

	ws.SetReadLimit(h.opts.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Live connection read failed", "conn_id", conn.ID(), "error", err)
			}
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.reply(conn, replies, ErrorFrame{Type: FrameError, Code: string(domain.CodeBadRequest)})
			continue
		}

		switch frame.Type {
		case FrameJoinRoom:
			joinCtx, cancel := context.WithTimeout(ctx, h.opts.JoinTimeout)
			err := h.hub.Join(joinCtx, conn, frame.ProjectID)
			cancel()
			if err != nil {
				h.reply(conn, replies, ErrorFrame{
					Type:      FrameError,
					Code:      string(domain.MapErrorToCode(err)),
					ProjectID: frame.ProjectID,
				})
			}

		case FrameLeaveRoom:
			h.hub.Leave(conn, frame.ProjectID)

		default:
			h.reply(conn, replies, ErrorFrame{Type: FrameError, Code: string(domain.CodeBadRequest)})
		}
	}
}

// reply передает кадр ошибки писателю, не блокируясь на закрытом соединении
func (h *LiveHandler) reply(conn *realtime.Conn, replies chan<- ErrorFrame, frame ErrorFrame) {
	select {
	case replies <- frame:
	case <-conn.Done():
	default:
		h.logger.Debug("Dropping error frame", "conn_id", conn.ID(), "code", frame.Code)
	}
}

// writePump единственный писатель в WebSocket: события комнат, ошибки и ping
func (h *LiveHandler) writePump(ws *websocket.Conn, conn *realtime.Conn, replies <-chan ErrorFrame) {
	ticker := time.NewTicker(h.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case msg := <-conn.Messages():
			_ = ws.SetWriteDeadline(time.Now().Add(h.opts.WriteWait))
			if err := ws.WriteJSON(msg); err != nil {
				return
			}

		case frame := <-replies:
			_ = ws.SetWriteDeadline(time.Now().Add(h.opts.WriteWait))
			if err := ws.WriteJSON(frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(h.opts.WriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-conn.Done():
			_ = ws.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(h.opts.WriteWait),
			)
			return
		}
	}
}
