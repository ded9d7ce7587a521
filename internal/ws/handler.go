// Package ws is the websocket transport: it upgrades connections, decodes
// inbound frames, and dispatches events into the owning room session.
package ws

import (
	"errors"
	"log/slog"
	"math"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/Devansh-Ruia/Pulse/internal/domain"
	"github.com/Devansh-Ruia/Pulse/internal/metrics"
	"github.com/Devansh-Ruia/Pulse/internal/room"
)

// Sentiment flood guard: a continuous gauge needs no more than a few readings
// per second per connection; excess readings are dropped silently.
const (
	sentimentRate  rate.Limit = 10
	sentimentBurst            = 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Dashboards are served cross-origin
	},
}

// envelope is the inbound frame: one message type per frame, unused fields
// zero-valued.
type envelope struct {
	Type          string  `json:"type"`
	RoomID        string  `json:"roomId"`
	ParticipantID string  `json:"participantId"`
	Role          string  `json:"role"`
	Value         float64 `json:"value"`
	Amount        float64 `json:"amount"`
	TransactionID string  `json:"transactionId"`
}

type Handler struct {
	registry *room.Registry
}

func NewHandler(registry *room.Registry) *Handler {
	return &Handler{registry: registry}
}

// HandleConnection upgrades the request and runs the read pump until the
// connection closes.
func (h *Handler) HandleConnection(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "websocket upgrade failed")
	}
	h.readPump(conn)
	return nil
}

// readPump drives one connection's state machine: unjoined until a valid join,
// then joined until an explicit leave or the connection closes, then departed
// (terminal). Events from one connection are processed in arrival order.
func (h *Handler) readPump(conn *websocket.Conn) {
	var (
		sess          *room.Session
		participantID string
		departed      bool
		limiter       = rate.NewLimiter(sentimentRate, sentimentBurst)
	)

	defer func() {
		if sess != nil && !departed {
			sess.Disconnect(conn, participantID)
		}
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			// Transient parse errors must not kill the session.
			slog.Warn("Dropping malformed frame", "error", err)
			metrics.FramesDropped.WithLabelValues("malformed").Inc()
			continue
		}

		switch env.Type {
		case domain.TypeJoin:
			if sess != nil || departed {
				if sess != nil {
					sess.Reject(conn, "already joined")
				}
				continue
			}
			if env.ParticipantID == "" {
				slog.Warn("Dropping join without participantId")
				metrics.FramesDropped.WithLabelValues("malformed").Inc()
				continue
			}

			target, ok := h.registry.GetRoom(env.RoomID)
			if !ok {
				// Usage error: report and close, the client must not retry.
				writeError(conn, "Room not found")
				return
			}
			if err := target.Join(conn, env.ParticipantID, env.Role); err != nil {
				writeError(conn, joinErrorText(err))
				return
			}
			sess, participantID = target, env.ParticipantID

		case domain.TypeSentiment:
			if sess == nil {
				continue
			}
			if math.IsNaN(env.Value) || env.Value < 0 || env.Value > 1 {
				slog.Warn("Dropping out-of-range sentiment", "value", env.Value, "participant_id", participantID)
				metrics.FramesDropped.WithLabelValues("out_of_range").Inc()
				continue
			}
			if !limiter.Allow() {
				metrics.FramesDropped.WithLabelValues("throttled").Inc()
				continue
			}
			sess.Sentiment(participantID, env.Value)

		case domain.TypeTip:
			if sess == nil {
				continue
			}
			if env.Amount <= 0 || math.IsInf(env.Amount, 0) || math.IsNaN(env.Amount) {
				sess.Reject(conn, "invalid tip amount")
				continue
			}
			if env.TransactionID == "" {
				sess.Reject(conn, "transactionId required")
				continue
			}
			sess.Tip(conn, participantID, env.Amount, env.TransactionID)

		case domain.TypeLeave:
			if sess == nil {
				continue
			}
			sess.Leave(conn, participantID)
			departed = true

		default:
			slog.Warn("Dropping unrecognized frame", "type", env.Type)
			metrics.FramesDropped.WithLabelValues("unrecognized").Inc()
		}
	}
}

// writeError writes directly to the connection. Only safe before a join
// attaches a writer goroutine to the connection.
func writeError(conn *websocket.Conn, message string) {
	data, err := json.Marshal(domain.ErrorMessage{Type: domain.TypeError, Message: message})
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func joinErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyJoined):
		return "User already in room"
	case errors.Is(err, domain.ErrRoomFull):
		return "Room is full"
	case errors.Is(err, domain.ErrRoomClosed):
		return "Room is closed"
	default:
		return "Join failed"
	}
}
