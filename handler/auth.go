package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"mechanic-assistant/internal/domain"
	"mechanic-assistant/internal/usecase"
)

const sessionCookieName = "session"

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
}

func (h *Handler) handleRegister(ctx context.Context, req *request) response {
	in, bad := decodeCredentials(req.body)
	if bad != nil {
		return *bad
	}
	out, err := h.auth.Register(ctx, in)
	if err != nil {
		return authError(req, err)
	}
	return response{
		status:  http.StatusCreated,
		body:    authResponse{Authenticated: true, Email: out.Email},
		cookies: []*http.Cookie{h.sessionCookie(out.Session)},
	}
}

func (h *Handler) handleLogin(ctx context.Context, req *request) response {
	in, bad := decodeCredentials(req.body)
	if bad != nil {
		return *bad
	}
	out, err := h.auth.Login(ctx, in)
	if err != nil {
		return authError(req, err)
	}
	return response{
		status:  http.StatusOK,
		body:    authResponse{Authenticated: true, Email: out.Email},
		cookies: []*http.Cookie{h.sessionCookie(out.Session)},
	}
}

func (h *Handler) handleLogout(ctx context.Context, req *request) response {
	if err := h.auth.Logout(ctx, sessionToken(req.headers)); err != nil {
		return authError(req, err)
	}
	return response{
		status:  http.StatusOK,
		body:    authResponse{Authenticated: false},
		cookies: []*http.Cookie{h.expiredCookie()},
	}
}

func (h *Handler) handleStatus(ctx context.Context, req *request) response {
	st, err := h.auth.Status(ctx, sessionToken(req.headers))
	if err != nil {
		slog.Error("auth status check failed", "correlation_id", req.correlationID, "err", err)
		return response{status: http.StatusInternalServerError, body: authResponse{Authenticated: false}}
	}
	if !st.Authenticated {
		return response{status: http.StatusUnauthorized, body: authResponse{Authenticated: false}}
	}
	return response{status: http.StatusOK, body: authResponse{Authenticated: true, Email: st.Email}}
}

func authError(req *request, err error) response {
	code, usecaseErr := errorCode(err)
	switch code {
	case usecase.ErrorInvalidInput:
		return response{status: http.StatusBadRequest, body: errorResponse{Error: usecaseErr.Details}}
	case usecase.ErrorEmailTaken:
		return response{status: http.StatusConflict, body: errorResponse{Error: "Email already registered"}}
	case usecase.ErrorInvalidCredentials:
		return response{status: http.StatusUnauthorized, body: errorResponse{Error: "Invalid email or password"}}
	default:
		slog.Error("auth request failed", "correlation_id", req.correlationID, "err", err)
		return response{status: http.StatusInternalServerError, body: errorResponse{Error: "Internal server error"}}
	}
}

func decodeCredentials(body []byte) (usecase.Credentials, *response) {
	if !json.Valid(body) {
		return usecase.Credentials{}, &response{status: http.StatusBadRequest, body: errorResponse{Error: "Invalid JSON in request body"}}
	}
	var in credentialsRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return usecase.Credentials{}, &response{status: http.StatusBadRequest, body: errorResponse{Error: "Email and password are required"}}
	}
	return usecase.Credentials{Email: in.Email, Password: in.Password}, nil
}

func (h *Handler) sessionCookie(s domain.Session) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *Handler) expiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

// sessionToken reads the session cookie from the Cookie header.
func sessionToken(headers map[string]string) string {
	raw := header(headers, "Cookie")
	if raw == "" {
		return ""
	}
	r := http.Request{Header: http.Header{"Cookie": {raw}}}
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
