package httpserver

import (
	"math"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Devansh-Ruia/Pulse/internal/errors"
)

type createRoomRequest struct {
	Title             string `json:"title"`
	HostID            string `json:"hostId"`
	PayoutDestination string `json:"payoutDestination"`
}

type createRoomResponse struct {
	RoomID string `json:"roomId"`
}

func (s *Server) handleCreateRoom(c echo.Context) error {
	var req createRoomRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError("invalid request body")
	}
	if req.Title == "" || req.HostID == "" || req.PayoutDestination == "" {
		return errors.ValidationError("missing required fields")
	}

	sess, err := s.registry.CreateRoom(req.Title, req.HostID, req.PayoutDestination)
	if err != nil {
		return errors.InternalError("failed to create room", err)
	}

	return c.JSON(http.StatusCreated, createRoomResponse{RoomID: sess.Info().ID})
}

func (s *Server) handleGetRoomSummary(c echo.Context) error {
	roomID := c.Param("roomId")
	summary, ok := s.registry.Summary(roomID)
	if !ok {
		return errors.NotFoundError("room not found").WithContext("room_id", roomID)
	}
	return c.JSON(http.StatusOK, summary)
}

type authorizeTipRequest struct {
	Amount float64 `json:"amount"`
}

// handleAuthorizeTip proxies a tip authorization to the payment bridge. The
// returned transaction reference is what the client attaches to its tip frame;
// the session engine records it without re-verification.
func (s *Server) handleAuthorizeTip(c echo.Context) error {
	roomID := c.Param("roomId")
	sess, ok := s.registry.GetRoom(roomID)
	if !ok {
		return errors.NotFoundError("room not found").WithContext("room_id", roomID)
	}

	var req authorizeTipRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError("invalid request body")
	}
	if req.Amount <= 0 || math.IsInf(req.Amount, 0) || math.IsNaN(req.Amount) {
		return errors.ValidationError("amount must be a positive finite number")
	}

	auth, err := s.authorizer.Authorize(c.Request().Context(), sess.Info().PayoutDestination, req.Amount)
	if err != nil {
		return errors.ExternalError("payment authorization failed", err)
	}

	return c.JSON(http.StatusOK, auth)
}
