package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"mechanic-assistant/internal/domain"
	"mechanic-assistant/internal/usecase"
)

const genericApology = "I apologize, but something went wrong. Please try again."

type chatResponse struct {
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
	Details  string `json:"details,omitempty"`
}

type chatFailure struct {
	status int
	label  string
	reply  string
}

var chatFailures = map[usecase.ErrorCode]chatFailure{
	usecase.ErrorRateLimited: {
		status: http.StatusTooManyRequests,
		label:  "Rate limited",
		reply:  "I'm receiving too many requests right now. Please try again in a few moments.",
	},
	usecase.ErrorQuotaExhausted: {
		status: http.StatusServiceUnavailable,
		label:  "Quota exhausted",
		reply:  "The AI service has reached its usage limit. Please try again later or contact support.",
	},
	usecase.ErrorUnavailable: {
		status: http.StatusServiceUnavailable,
		label:  "Service unavailable",
		reply:  "I apologize, but the AI service is currently unavailable. Please contact support.",
	},
	usecase.ErrorNetwork: {
		status: http.StatusServiceUnavailable,
		label:  "Network error",
		reply:  "I'm having trouble connecting right now. Please check your internet connection and try again.",
	},
	usecase.ErrorProcessing: {
		status: http.StatusInternalServerError,
		label:  "Processing error",
		reply:  "I apologize, but I encountered an issue processing your request. Please try again or rephrase your question.",
	},
}

func (h *Handler) handleChat(ctx context.Context, req *request) response {
	if err := h.chat.CheckConfig(); err != nil {
		return h.chatError(req, err)
	}

	if !json.Valid(req.body) {
		return response{status: http.StatusBadRequest, body: chatResponse{Error: "Invalid JSON in request body"}}
	}
	message, ok, history := decodeChatBody(req.body)
	if !ok {
		return response{status: http.StatusBadRequest, body: chatResponse{Error: "Message is required"}}
	}

	out, err := h.chat.Reply(ctx, usecase.ChatInput{Message: message, History: history})
	if err != nil {
		return h.chatError(req, err)
	}
	return response{status: http.StatusOK, body: chatResponse{Response: out.Response}}
}

func (h *Handler) chatError(req *request, err error) response {
	code, usecaseErr := errorCode(err)
	switch code {
	case usecase.ErrorMissingConfig:
		slog.Error("chat provider is not configured", "correlation_id", req.correlationID, "credential", usecaseErr.Details)
		return response{status: http.StatusInternalServerError, body: chatResponse{Error: "Missing " + usecaseErr.Details}}
	case usecase.ErrorMessageRequired:
		return response{status: http.StatusBadRequest, body: chatResponse{Error: "Message is required"}}
	}

	failure, known := chatFailures[code]
	if !known || usecaseErr == nil {
		slog.Error("chat request failed", "correlation_id", req.correlationID, "err", err)
		return internalErrorResponse()
	}

	attrs := []any{"correlation_id", req.correlationID, "code", string(code), "reason", usecaseErr.Reason}
	if f := usecaseErr.Failure; f != nil {
		attrs = append(attrs,
			"provider_status", f.StatusCode,
			"provider_message", f.LogMessage(),
			"provider_body", f.Body,
			"error_type", f.ErrorType,
		)
	}
	slog.Error("chat provider request failed", attrs...)

	return response{status: failure.status, body: chatResponse{
		Response: failure.reply,
		Error:    failure.label,
		Details:  usecaseErr.Details,
	}}
}

func internalErrorResponse() response {
	return response{status: http.StatusInternalServerError, body: chatResponse{
		Response: genericApology,
		Error:    "Internal server error",
	}}
}

// decodeChatBody pulls message and chatHistory out of an already valid JSON
// body. ok is false when message is missing, not a string or empty. History
// is read leniently: anything but an array yields none, and entries that are
// not {role, content} string objects are skipped.
func decodeChatBody(body []byte) (message string, ok bool, history []domain.ChatTurn) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", false, nil
	}

	raw := fields["message"]
	if len(raw) == 0 || raw[0] != '"' {
		return "", false, nil
	}
	if err := json.Unmarshal(raw, &message); err != nil || message == "" {
		return "", false, nil
	}
	return message, true, decodeHistory(fields["chatHistory"])
}

func decodeHistory(raw json.RawMessage) []domain.ChatTurn {
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	turns := make([]domain.ChatTurn, 0, len(items))
	for _, item := range items {
		if len(item) == 0 || item[0] != '{' {
			continue
		}
		var turn domain.ChatTurn
		if err := json.Unmarshal(item, &turn); err != nil {
			continue
		}
		turns = append(turns, turn)
	}
	return turns
}
