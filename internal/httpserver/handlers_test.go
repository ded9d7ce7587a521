package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Devansh-Ruia/Pulse/internal/config"
	"github.com/Devansh-Ruia/Pulse/internal/domain"
	"github.com/Devansh-Ruia/Pulse/internal/errors"
	"github.com/Devansh-Ruia/Pulse/internal/room"
	"github.com/Devansh-Ruia/Pulse/internal/ws"
)

type authorizerFunc func(ctx context.Context, recipient string, amount float64) (domain.Authorization, error)

func (f authorizerFunc) Authorize(ctx context.Context, recipient string, amount float64) (domain.Authorization, error) {
	return f(ctx, recipient, amount)
}

func newTestServer(t *testing.T, authorizer domain.Authorizer) *Server {
	t.Helper()

	registry := room.NewRegistry(clockwork.NewRealClock(), room.Options{})
	t.Cleanup(registry.Close)

	cfg := &config.Config{Port: "0"}
	return NewServer(cfg, registry, ws.NewHandler(registry), authorizer)
}

func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return errors.Middleware()(handler)(c)
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

// --- handleCreateRoom tests ---

func TestHandleCreateRoom_Success(t *testing.T) {
	srv := newTestServer(t, authorizerFunc(nil))

	req := jsonRequest(http.MethodPost, "/api/rooms",
		`{"title":"Launch Party","hostId":"host_1","payoutDestination":"wallet_xyz"}`)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	err := srv.handleCreateRoom(c)
	assert.NoError(t, err)
	assert.Equal(t, 201, rec.Code)
	assert.Contains(t, rec.Body.String(), "roomId")
	assert.Equal(t, 1, srv.registry.Len())
}

func TestHandleCreateRoom_MissingFields(t *testing.T) {
	srv := newTestServer(t, authorizerFunc(nil))

	req := jsonRequest(http.MethodPost, "/api/rooms", `{"title":"Launch Party"}`)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	_ = callHandler(srv.handleCreateRoom, c)
	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, 0, srv.registry.Len())
}

func TestHandleCreateRoom_MalformedBody(t *testing.T) {
	srv := newTestServer(t, authorizerFunc(nil))

	req := jsonRequest(http.MethodPost, "/api/rooms", `{not json`)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	_ = callHandler(srv.handleCreateRoom, c)
	assert.Equal(t, 400, rec.Code)
}

// --- handleGetRoomSummary tests ---

func TestHandleGetRoomSummary_NotFound(t *testing.T) {
	srv := newTestServer(t, authorizerFunc(nil))

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/ZZZZZZ", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	c.SetParamNames("roomId")
	c.SetParamValues("ZZZZZZ")

	_ = callHandler(srv.handleGetRoomSummary, c)
	assert.Equal(t, 404, rec.Code)
	assert.Contains(t, rec.Body.String(), `"room_id":"ZZZZZZ"`)
}

func TestHandleGetRoomSummary_Success(t *testing.T) {
	srv := newTestServer(t, authorizerFunc(nil))

	sess, err := srv.registry.CreateRoom("Launch Party", "host_1", "wallet_xyz")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/"+sess.Info().ID, nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	c.SetParamNames("roomId")
	c.SetParamValues(sess.Info().ID)

	err = srv.handleGetRoomSummary(c)
	assert.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "Launch Party")
	assert.Contains(t, rec.Body.String(), `"participantCount":0`)
}

// --- handleAuthorizeTip tests ---

func TestHandleAuthorizeTip_Success(t *testing.T) {
	var gotRecipient string
	var gotAmount float64
	authorizer := authorizerFunc(func(_ context.Context, recipient string, amount float64) (domain.Authorization, error) {
		gotRecipient = recipient
		gotAmount = amount
		return domain.Authorization{Success: true, TransactionID: "tx_abc"}, nil
	})

	srv := newTestServer(t, authorizer)
	sess, err := srv.registry.CreateRoom("Launch Party", "host_1", "wallet_xyz")
	require.NoError(t, err)

	req := jsonRequest(http.MethodPost, "/api/rooms/"+sess.Info().ID+"/tips/authorize", `{"amount":5}`)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	c.SetParamNames("roomId")
	c.SetParamValues(sess.Info().ID)

	err = srv.handleAuthorizeTip(c)
	assert.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "tx_abc")
	assert.Equal(t, "wallet_xyz", gotRecipient)
	assert.Equal(t, 5.0, gotAmount)
}

func TestHandleAuthorizeTip_UnknownRoom(t *testing.T) {
	srv := newTestServer(t, authorizerFunc(nil))

	req := jsonRequest(http.MethodPost, "/api/rooms/ZZZZZZ/tips/authorize", `{"amount":5}`)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	c.SetParamNames("roomId")
	c.SetParamValues("ZZZZZZ")

	_ = callHandler(srv.handleAuthorizeTip, c)
	assert.Equal(t, 404, rec.Code)
	assert.Contains(t, rec.Body.String(), `"room_id":"ZZZZZZ"`)
}

func TestHandleAuthorizeTip_InvalidAmount(t *testing.T) {
	srv := newTestServer(t, authorizerFunc(nil))
	sess, err := srv.registry.CreateRoom("Launch Party", "host_1", "wallet_xyz")
	require.NoError(t, err)

	for _, body := range []string{`{"amount":0}`, `{"amount":-3}`} {
		req := jsonRequest(http.MethodPost, "/api/rooms/"+sess.Info().ID+"/tips/authorize", body)
		rec := httptest.NewRecorder()
		c := srv.echo.NewContext(req, rec)
		c.SetParamNames("roomId")
		c.SetParamValues(sess.Info().ID)

		_ = callHandler(srv.handleAuthorizeTip, c)
		assert.Equal(t, 400, rec.Code, "body %s", body)
	}
}

func TestHandleAuthorizeTip_BridgeError(t *testing.T) {
	authorizer := authorizerFunc(func(_ context.Context, _ string, _ float64) (domain.Authorization, error) {
		return domain.Authorization{}, fmt.Errorf("bridge unreachable")
	})

	srv := newTestServer(t, authorizer)
	sess, err := srv.registry.CreateRoom("Launch Party", "host_1", "wallet_xyz")
	require.NoError(t, err)

	req := jsonRequest(http.MethodPost, "/api/rooms/"+sess.Info().ID+"/tips/authorize", `{"amount":5}`)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	c.SetParamNames("roomId")
	c.SetParamValues(sess.Info().ID)

	_ = callHandler(srv.handleAuthorizeTip, c)
	assert.Equal(t, 502, rec.Code)
}
