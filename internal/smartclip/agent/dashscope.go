package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Liu-design-beep/smartclip/common/redact"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/intent"
)

const (
	defaultDashScopeBase = "https://dashscope.aliyuncs.com"
	defaultCallTimeout   = 30 * time.Second
	maxErrorBody         = 4 << 10
)

// DashScopeConfig holds the settings of a Bailian application endpoint.
type DashScopeConfig struct {
	// APIKey is the DashScope API key sent as a bearer token.
	APIKey string
	// AppID identifies the agent application whose prompt and model are
	// configured on the platform side.
	AppID string
	// BaseURL defaults to the public DashScope endpoint.
	BaseURL string
	// Timeout bounds a single HTTP exchange. Defaults to 30s.
	Timeout time.Duration
}

// DashScope calls the application completion API.
type DashScope struct {
	cfg    DashScopeConfig
	client *http.Client
}

// NewDashScope returns a backend for cfg, or ErrNotConfigured when the key or
// application ID is missing.
func NewDashScope(cfg DashScopeConfig) (*DashScope, error) {
	if cfg.APIKey == "" || cfg.AppID == "" {
		return nil, ErrNotConfigured
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultDashScopeBase
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultCallTimeout
	}
	return &DashScope{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

func (d *DashScope) Name() string { return "dashscope" }

type dsMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type dsRequest struct {
	Input struct {
		Messages []dsMessage `json:"messages"`
	} `json:"input"`
	Parameters map[string]any `json:"parameters"`
}

type dsResponse struct {
	Output struct {
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
		SessionID    string `json:"session_id"`
	} `json:"output"`
	Usage struct {
		Models []struct {
			ModelID      string `json:"model_id"`
			InputTokens  int    `json:"input_tokens"`
			OutputTokens int    `json:"output_tokens"`
		} `json:"models"`
	} `json:"usage"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func (d *DashScope) Call(ctx context.Context, transcript []intent.Turn) (*Reply, error) {
	var body dsRequest
	body.Parameters = map[string]any{}
	body.Input.Messages = make([]dsMessage, 0, len(transcript))
	for _, t := range transcript {
		body.Input.Messages = append(body.Input.Messages, dsMessage{Role: string(t.Role), Content: t.Text})
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("dashscope: marshal request: %w", err)
	}

	url := d.cfg.BaseURL + "/api/v1/apps/" + d.cfg.AppID + "/completion"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("dashscope: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dashscope: %s", redact.String(err.Error(), d.cfg.APIKey))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("dashscope: read response: %w", err)
	}

	var out dsResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode != http.StatusOK {
		se := &StatusError{HTTPStatus: resp.StatusCode, Code: out.Code, Message: out.Message, RequestID: out.RequestID}
		if decodeErr != nil || se.Message == "" {
			se.Message = strings.TrimSpace(string(truncate(raw, maxErrorBody)))
		}
		se.Message = redact.String(se.Message, d.cfg.APIKey)
		return nil, se
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("dashscope: decode response: %w", decodeErr)
	}

	reply := &Reply{Text: out.Output.Text, RequestID: out.RequestID}
	for _, m := range out.Usage.Models {
		reply.Usage.InputTokens += m.InputTokens
		reply.Usage.OutputTokens += m.OutputTokens
	}
	return reply, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
