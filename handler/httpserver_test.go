package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"mechanic-assistant/internal/domain"
	"mechanic-assistant/internal/usecase"
)

func newTestServer(t *testing.T, chat *stubChat, auth *stubAuth) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h, err := NewHandler(chat, auth, WithInsecureCookies())
	require.NoError(t, err)
	srv := httptest.NewServer(NewEngine(h))
	t.Cleanup(srv.Close)
	return srv
}

func TestEngine_Health(t *testing.T) {
	srv := newTestServer(t, &stubChat{}, &stubAuth{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestEngine_ForwardsChatToHandler(t *testing.T) {
	chat := &stubChat{out: usecase.ChatOutput{Response: "Replace the serpentine belt."}}
	srv := newTestServer(t, chat, &stubAuth{})

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/chat", strings.NewReader(`{"message":"Squealing on cold start"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Correlation-Id", "local-1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.Equal(t, "local-1", resp.Header.Get("X-Correlation-Id"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.JSONEq(t, `{"response":"Replace the serpentine belt."}`, string(body))
	require.Equal(t, "Squealing on cold start", chat.in.Message)
}

func TestEngine_SessionCookieRoundTrip(t *testing.T) {
	auth := &stubAuth{
		out: usecase.AuthOutput{
			Email:   "a@b.co",
			Session: domain.Session{Token: "tok-1", Email: "a@b.co", ExpiresAt: time.Now().Add(time.Hour)},
		},
		status: usecase.AuthStatus{Authenticated: true, Email: "a@b.co"},
	}
	srv := newTestServer(t, &stubChat{}, auth)

	resp, err := http.Post(srv.URL+"/api/auth/login", "application/json", strings.NewReader(`{"email":"a@b.co","password":"pw"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "tok-1", cookies[0].Value)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/auth/status", nil)
	require.NoError(t, err)
	req.AddCookie(cookies[0])
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "tok-1", auth.token)
}

func TestEngine_CORSPreflight(t *testing.T) {
	srv := newTestServer(t, &stubChat{}, &stubAuth{})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestEngine_UnknownRoute(t *testing.T) {
	srv := newTestServer(t, &stubChat{}, &stubAuth{})

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Correlation-Id"))
}
