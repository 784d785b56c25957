package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/Liu-design-beep/smartclip/common/redact"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/intent"
)

const (
	defaultCompatBase  = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	defaultCompatModel = "qwen-plus"
)

// OpenAICompatConfig configures a chat-completions endpoint. DashScope's
// compatible mode, OpenAI itself and local gateways all qualify.
type OpenAICompatConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAICompat sends the transcript to a chat-completions model, preceded by
// a system prompt that describes the expected JSON payload. It is used when
// no Bailian application (with its own platform-side prompt) is available.
type OpenAICompat struct {
	llm   *openai.LLM
	model string
	key   string
}

// NewOpenAICompat builds the langchaingo client for cfg.
func NewOpenAICompat(cfg OpenAICompatConfig) (*OpenAICompat, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultCompatBase
	}
	if cfg.Model == "" {
		cfg.Model = defaultCompatModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultCallTimeout
	}
	llm, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("openai: new client: %w", err)
	}
	return &OpenAICompat{llm: llm, model: cfg.Model, key: cfg.APIKey}, nil
}

func (o *OpenAICompat) Name() string { return "openai" }

const systemPrompt = `You are the command interpreter of SmartClip, a notebook that keeps a few
named text documents. Read the conversation and classify the user's latest message.

Reply with exactly one JSON object and nothing else:
{
  "intent_type": "ADD" | "EDIT" | "MOVE" | "DELETE" | "QUERY" | "SET_ACTIVE" | "HELP" |
                 "EXIT" | "CONFIRM" | "CANCEL" | "RESET_CONVERSATION" | "UNKNOWN",
  "target_document": "<document title, or null for the active document>",
  "content_to_process": "<text to add, or a short reply to show the user>",
  "target_location_raw": "start" | "end" | "<text of the line to insert after>" | null,
  "context_dependency": "<what earlier turn this refers to, or null>",
  "confirmation_needed": true | false,
  "system_action_required": "<empty string unless the user asks for a system action>"
}

Rules:
- DELETE means clearing a whole document; always set confirmation_needed to true for it.
- "确认", "是", "好的" answering a pending question is CONFIRM; "取消", "不" is CANCEL.
- QUERY means showing a document's contents.
- Use single braces. Do not wrap the object in a code fence.`

func (o *OpenAICompat) Call(ctx context.Context, transcript []intent.Turn) (*Reply, error) {
	msgs := make([]llms.MessageContent, 0, len(transcript)+1)
	msgs = append(msgs, llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt))
	for _, t := range transcript {
		role := schema.ChatMessageTypeHuman
		if t.Role == intent.RoleAssistant {
			role = schema.ChatMessageTypeAI
		}
		msgs = append(msgs, llms.TextParts(role, t.Text))
	}

	resp, err := o.llm.GenerateContent(ctx, msgs, llms.WithTemperature(0))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("openai: %w", ctxErr)
		}
		return nil, &StatusError{Code: "CompletionFailed", Message: redact.String(err.Error(), o.key)}
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: no choices returned")
	}

	choice := resp.Choices[0]
	reply := &Reply{Text: choice.Content}
	reply.Usage.InputTokens = intInfo(choice.GenerationInfo, "PromptTokens")
	reply.Usage.OutputTokens = intInfo(choice.GenerationInfo, "CompletionTokens")
	return reply, nil
}

func intInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
