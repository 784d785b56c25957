// Package agent talks to the remote language-model agent that interprets
// user commands, and turns its replies into canonical intent records.
//
// A Backend performs one remote call for a transcript. The Recognizer owns a
// conversation transcript, drives the Backend, and runs the extraction,
// repair and normalization chain over the reply. Recognize never fails: when
// the backend or the payload is unusable it degrades to keyword matching.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/Liu-design-beep/smartclip/internal/smartclip/intent"
)

// ErrNotConfigured is returned by constructors when credentials are missing.
var ErrNotConfigured = errors.New("agent: credentials not configured")

// Backend is a remote agent. Call sends the full transcript, last turn being
// the newest user message, and returns the agent's reply text.
type Backend interface {
	// Name labels metrics and logs ("dashscope", "openai").
	Name() string
	Call(ctx context.Context, transcript []intent.Turn) (*Reply, error)
}

// Reply is a successful agent response.
type Reply struct {
	Text      string
	RequestID string
	Usage     Usage
}

// Usage reports token accounting when the backend provides it.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// StatusError is a non-OK response from the remote agent.
type StatusError struct {
	HTTPStatus int
	Code       string
	Message    string
	RequestID  string
}

func (e *StatusError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("agent: status %d %s: %s (request %s)", e.HTTPStatus, e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("agent: status %d %s: %s", e.HTTPStatus, e.Code, e.Message)
}
