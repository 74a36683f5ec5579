package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"mechanic-assistant/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// ChatUseCase is the chat behaviour the handler depends on.
type ChatUseCase interface {
	CheckConfig() error
	Reply(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

// AuthUseCase is the account behaviour the handler depends on.
type AuthUseCase interface {
	Register(ctx context.Context, in usecase.Credentials) (usecase.AuthOutput, error)
	Login(ctx context.Context, in usecase.Credentials) (usecase.AuthOutput, error)
	Logout(ctx context.Context, token string) error
	Status(ctx context.Context, token string) (usecase.AuthStatus, error)
}

type Handler struct {
	chat          ChatUseCase
	auth          AuthUseCase
	secureCookies bool
	routes        map[string]route
}

type Option func(*Handler)

// WithInsecureCookies drops the Secure flag from session cookies so they
// survive plain-HTTP local development.
func WithInsecureCookies() Option {
	return func(h *Handler) { h.secureCookies = false }
}

type route struct {
	method string
	serve  func(ctx context.Context, req *request) response
}

// request is the part of a proxy event the endpoint handlers read.
type request struct {
	correlationID string
	headers       map[string]string
	body          []byte
}

type response struct {
	status  int
	body    any
	cookies []*http.Cookie
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHandler(chat ChatUseCase, auth AuthUseCase, opts ...Option) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	if auth == nil {
		return nil, errors.New("handler: auth use case must not be nil")
	}
	h := &Handler{chat: chat, auth: auth, secureCookies: true}
	for _, opt := range opts {
		opt(h)
	}
	h.routes = map[string]route{
		"/api/chat":          {method: http.MethodPost, serve: h.handleChat},
		"/api/auth/register": {method: http.MethodPost, serve: h.handleRegister},
		"/api/auth/login":    {method: http.MethodPost, serve: h.handleLogin},
		"/api/auth/logout":   {method: http.MethodPost, serve: h.handleLogout},
		"/api/auth/status":   {method: http.MethodGet, serve: h.handleStatus},
		"/api/plans":         {method: http.MethodGet, serve: h.handlePlans},
	}
	return h, nil
}

// Handle is the Lambda entrypoint for API Gateway proxy events.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (resp events.APIGatewayProxyResponse, err error) {
	started := time.Now()
	req := &request{
		correlationID: correlationID(event.Headers),
		headers:       event.Headers,
	}
	path := strings.TrimSuffix(event.Path, "/")

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while handling request", "correlation_id", req.correlationID, "path", path, "panic", r)
			resp = h.render(req, internalErrorResponse())
			err = nil
		}
		slog.Info("request completed",
			"correlation_id", req.correlationID,
			"method", event.HTTPMethod,
			"path", path,
			"status", resp.StatusCode,
			"duration_ms", time.Since(started).Milliseconds(),
		)
	}()

	rt, ok := h.routes[path]
	if !ok {
		return h.render(req, response{status: http.StatusNotFound, body: errorResponse{Error: "Not found"}}), nil
	}
	if event.HTTPMethod != rt.method {
		out := h.render(req, response{status: http.StatusMethodNotAllowed, body: errorResponse{Error: "Method not allowed"}})
		out.Headers["Allow"] = rt.method
		return out, nil
	}

	body, decodeErr := eventBody(event)
	if decodeErr != nil {
		return h.render(req, response{status: http.StatusBadRequest, body: errorResponse{Error: "Invalid JSON in request body"}}), nil
	}
	req.body = body

	return h.render(req, rt.serve(ctx, req)), nil
}

func (h *Handler) render(req *request, r response) events.APIGatewayProxyResponse {
	payload, err := json.Marshal(r.body)
	if err != nil {
		slog.Error("failed to encode response", "correlation_id", req.correlationID, "err", err)
		r.status = http.StatusInternalServerError
		payload = []byte(`{"error":"Internal server error"}`)
	}
	out := events.APIGatewayProxyResponse{
		StatusCode: r.status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: req.correlationID,
		},
		Body: string(payload),
	}
	if len(r.cookies) > 0 {
		setCookies := make([]string, 0, len(r.cookies))
		for _, c := range r.cookies {
			setCookies = append(setCookies, c.String())
		}
		out.MultiValueHeaders = map[string][]string{"Set-Cookie": setCookies}
	}
	return out
}

func eventBody(event events.APIGatewayProxyRequest) ([]byte, error) {
	if !event.IsBase64Encoded {
		return []byte(event.Body), nil
	}
	return base64.StdEncoding.DecodeString(event.Body)
}

func correlationID(headers map[string]string) string {
	if id := strings.TrimSpace(header(headers, correlationHeader)); id != "" {
		return id
	}
	return newUUID()
}

// header looks up name case-insensitively.
func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// errorCode extracts the use-case code, treating unknown errors as internal.
func errorCode(err error) (usecase.ErrorCode, *usecase.Error) {
	var usecaseErr *usecase.Error
	if errors.As(err, &usecaseErr) {
		return usecaseErr.Code, usecaseErr
	}
	return usecase.ErrorInternal, nil
}

var newUUID = func() string {
	return uuid.NewString()
}
