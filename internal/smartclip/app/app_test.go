package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Liu-design-beep/smartclip/internal/smartclip/agent"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/app"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Agent:    config.AgentConfig{Provider: config.ProviderDashScope, Timeout: time.Second},
		HTTPAddr: "127.0.0.1:0",
		Documents: config.DocumentsConfig{
			Backend:      config.BackendFile,
			Dir:          filepath.Join(dir, "documents"),
			DatabasePath: filepath.Join(dir, "smartclip.db"),
		},
		SessionTTL:    time.Hour,
		ChatRateLimit: 10,
		CORSOrigins:   []string{"*"},
	}
}

func TestNewBackend(t *testing.T) {
	b, err := app.NewBackend(config.AgentConfig{Provider: config.ProviderDashScope, APIKey: "k"})
	if !errors.Is(err, agent.ErrNotConfigured) || b != nil {
		t.Errorf("missing app id: got %v, %v", b, err)
	}

	b, err = app.NewBackend(config.AgentConfig{Provider: config.ProviderDashScope, APIKey: "k", AppID: "a", Timeout: time.Second})
	if err != nil || b.Name() != "dashscope" {
		t.Errorf("dashscope: got %v, %v", b, err)
	}

	b, err = app.NewBackend(config.AgentConfig{Provider: config.ProviderOpenAI, APIKey: "k", Model: "qwen-plus", Timeout: time.Second})
	if err != nil || b == nil {
		t.Errorf("openai: got %v, %v", b, err)
	}
}

func TestOpenStore(t *testing.T) {
	cfg := testConfig(t)
	for _, backend := range []string{config.BackendFile, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			dc := cfg.Documents
			dc.Backend = backend
			s, err := app.OpenStore(context.Background(), dc)
			if err != nil {
				t.Fatalf("OpenStore: %v", err)
			}
			defer s.Close()
			titles, err := s.Titles(context.Background())
			if err != nil || len(titles) != 1 {
				t.Errorf("titles: got %v, %v", titles, err)
			}
		})
	}
	if _, err := app.OpenStore(context.Background(), config.DocumentsConfig{Backend: "tape"}); err == nil {
		t.Error("unknown backend accepted")
	}
}

func TestApp_UnconfiguredAgentNotUnderstood(t *testing.T) {
	a, err := app.New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"text": "帮助"}`))
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}
	var resp struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Content != "抱歉，我没有理解您的指令。请尝试使用更清晰的表达。" {
		t.Errorf("content: got %q", resp.Content)
	}
}

func TestApp_MessagesFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.MessagesFile = filepath.Join(t.TempDir(), "messages.yaml")
	if err := os.WriteFile(cfg.MessagesFile, []byte("not_understood: \"自定义\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := app.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	s, _ := a.Sessions().GetOrCreate("")
	r, err := a.Dispatcher().Handle(context.Background(), s, "help")
	if err != nil || r.Content != "自定义" {
		t.Errorf("reply: got %+v, %v", r, err)
	}
}

func TestApp_ServeAndShutdown(t *testing.T) {
	a, err := app.New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health: got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
