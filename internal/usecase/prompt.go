package usecase

import "strings"

const (
	defaultModel    = "gemini-2.5-flash"
	temperature     = 0.7
	maxOutputTokens = 1000
)

func buildSystemInstruction() string {
	return strings.Join([]string{
		"You are an experienced automotive mechanic and diagnostic specialist.",
		"",
		"Style rules:",
		styleRules(),
	}, "\n")
}

func styleRules() string {
	return strings.Join([]string{
		"- Respond in plain text only",
		"- Do not use Markdown formatting (no **, ###, bullets, or numbered lists)",
		"- Do not introduce yourself or repeat your name/role unless the user explicitly asks who you are",
		"- Provide clear, concise, and complete responses",
		"- Keep responses focused and under 300 words while ensuring all important information is included",
		"- Break down complex explanations into digestible points using simple paragraphs",
	}, "\n")
}
