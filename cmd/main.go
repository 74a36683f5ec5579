package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"mechanic-assistant/handler"
	"mechanic-assistant/internal/integrations/gemini"
	"mechanic-assistant/internal/integrations/paramstore"
	"mechanic-assistant/internal/repository"
	"mechanic-assistant/internal/usecase"
)

const credentialName = "GEMINI_API_KEY"

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	usersTable := mustEnv("USERS_TABLE")
	apiKey := os.Getenv(credentialName)
	apiKeyParam := os.Getenv("GEMINI_API_KEY_PARAM")
	model := os.Getenv("GEMINI_MODEL")
	baseURL := os.Getenv("GEMINI_BASE_URL")
	sessionTTL := time.Duration(envInt("SESSION_TTL_HOURS", 168)) * time.Hour
	localAddr := os.Getenv("LOCAL_ADDR")

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	if apiKey == "" && apiKeyParam != "" {
		ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
		if err != nil {
			slog.Error("failed to create SSM client", "err", err)
			os.Exit(1)
		}
		// A missing key is reported per request, so startup continues.
		apiKey, err = ssmClient.GetToken(ctx, apiKeyParam)
		if err != nil {
			slog.Error("failed to load provider credential", "param", apiKeyParam, "err", err)
		}
	}

	store, err := repository.New(awsdynamodb.NewFromConfig(cfg), usersTable)
	if err != nil {
		slog.Error("failed to create user store", "err", err)
		os.Exit(1)
	}

	var geminiOpts []gemini.Option
	if baseURL != "" {
		geminiOpts = append(geminiOpts, gemini.WithBaseURL(baseURL))
	}
	geminiClient := gemini.NewClient(geminiOpts...)

	// ---- Use cases ----
	chatService, err := usecase.NewChatService(geminiClient, usecase.ChatConfig{
		CredentialName: credentialName,
		Credential:     apiKey,
		Model:          model,
	})
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}
	if err := chatService.CheckConfig(); err != nil {
		slog.Warn("provider credential is not configured; chat requests will fail", "credential", credentialName)
	}

	authService, err := usecase.NewAuthService(store, store, sessionTTL)
	if err != nil {
		slog.Error("failed to create auth service", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	if localAddr != "" {
		h, err := handler.NewHandler(chatService, authService, handler.WithInsecureCookies())
		if err != nil {
			slog.Error("failed to create handler", "err", err)
			os.Exit(1)
		}
		slog.Info("serving locally", "addr", localAddr)
		if err := handler.NewEngine(h).Run(localAddr); err != nil {
			slog.Error("local server stopped", "err", err)
			os.Exit(1)
		}
		return
	}

	h, err := handler.NewHandler(chatService, authService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
