package usecase

import (
	"context"
	"errors"
	"strings"

	"mechanic-assistant/internal/domain"
)

// LLMClient generates a reply for one request. The API key is passed per call.
type LLMClient interface {
	Generate(ctx context.Context, apiKey string, in domain.GenerateRequest) (string, error)
}

// ChatConfig is the provider configuration injected at construction.
type ChatConfig struct {
	// CredentialName names the credential in client-facing errors.
	CredentialName string
	// Credential may be empty; every request then fails with ErrorMissingConfig.
	Credential string
	Model      string
}

type ChatService struct {
	llm            LLMClient
	credentialName string
	credential     string
	model          string
}

type ChatInput struct {
	Message string
	History []domain.ChatTurn
}

type ChatOutput struct {
	Response string
}

func NewChatService(llm LLMClient, cfg ChatConfig) (*ChatService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	name := strings.TrimSpace(cfg.CredentialName)
	if name == "" {
		return nil, errors.New("usecase: credential name must not be empty")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	return &ChatService{
		llm:            llm,
		credentialName: name,
		credential:     strings.TrimSpace(cfg.Credential),
		model:          model,
	}, nil
}

// CheckConfig fails when the provider credential is not configured. Details
// carries the credential name, never its value.
func (s *ChatService) CheckConfig() error {
	if s.credential == "" {
		e := newError(ErrorMissingConfig, "missing_credential", nil)
		e.Details = s.credentialName
		return e
	}
	return nil
}

// Reply normalizes the history, calls the provider once and classifies any
// provider failure.
func (s *ChatService) Reply(ctx context.Context, in ChatInput) (ChatOutput, error) {
	if err := s.CheckConfig(); err != nil {
		return ChatOutput{}, err
	}
	if in.Message == "" {
		return ChatOutput{}, newError(ErrorMessageRequired, "empty_message", nil)
	}

	text, err := s.llm.Generate(ctx, s.credential, domain.GenerateRequest{
		Model:             s.model,
		SystemInstruction: buildSystemInstruction(),
		Temperature:       temperature,
		MaxOutputTokens:   maxOutputTokens,
		History:           NormalizeHistory(in.History),
		Message:           in.Message,
	})
	if err != nil {
		failure := ExtractFailure(err, s.credential)
		code := Classify(failure)
		return ChatOutput{}, &Error{
			Code:    code,
			Reason:  classifyReason(code),
			Details: failure.Details(),
			Failure: &failure,
			Err:     err,
		}
	}
	return ChatOutput{Response: text}, nil
}
