package ai

import (
	"context"
	"fmt"
)

// Completer is the contract for a chat-completion provider. It allows
// swapping providers (OpenAI, Gemini, ...) without touching the gateway.
type Completer interface {
	// Complete sends the messages to the given model and returns the
	// aggregated text of the first candidate. An empty string with a nil
	// error means the model genuinely produced nothing.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CompletionRequest is a provider-neutral completion call. A nil Temperature
// means the parameter must be omitted entirely, which reasoning-style models
// require.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature *float32
}

// UpstreamError is an explicit provider-side failure: an HTTP status and a
// truncated diagnostic. It never carries user content, and it is never
// retried against the fallback model.
type UpstreamError struct {
	Status int
	Detail string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream completion error (status %d): %s", e.Status, e.Detail)
}

const maxErrDetail = 200

func truncateDetail(s string) string {
	if len(s) > maxErrDetail {
		return s[:maxErrDetail]
	}
	return s
}
