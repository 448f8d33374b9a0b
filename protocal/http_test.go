package protocal

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"support-desk/configs"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
)

func testConfig(t *testing.T) *configs.Config {
	t.Helper()
	docsPath := filepath.Join(t.TempDir(), "docs.json")
	docs := `[{"title":"Refund Policy","content":"Refunds within 30 days."}]`
	if err := os.WriteFile(docsPath, []byte(docs), 0o644); err != nil {
		t.Fatalf("failed to write docs: %v", err)
	}

	return &configs.Config{
		App:       configs.App{Env: "test", Port: "0"},
		Database:  configs.Database{Driver: "memory"},
		LLM:       configs.LLM{Mode: "demo", HistoryWindow: 10, MaxTokens: 500, Temperature: 0.7},
		Docs:      configs.Docs{Path: docsPath},
		RateLimit: configs.RateLimit{Window: time.Minute, Max: 100},
	}
}

func startServer(t *testing.T, cfg *configs.Config) *server {
	t.Helper()
	srv, err := newServer(cfg)
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}
	t.Cleanup(srv.close)
	return srv
}

func call(t *testing.T, app *fiber.App, method, path, body string) (int, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(raw)
}

func TestServerChatAndMetrics(t *testing.T) {
	srv := startServer(t, testConfig(t))

	status, body := call(t, srv.app, "POST", "/api/chat", `{"sessionId":"s1","message":"Can I get a refund?"}`)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var reply struct {
		Reply      string `json:"reply"`
		TokensUsed int    `json:"tokensUsed"`
	}
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		t.Fatalf("failed to decode %s: %v", body, err)
	}
	if reply.Reply != "Refunds within 30 days." || reply.TokensUsed != 38 {
		t.Errorf("unexpected reply %+v", reply)
	}

	status, body = call(t, srv.app, "GET", "/metrics", "")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 from metrics, got %d", status)
	}
	if !strings.Contains(body, `support_desk_chat_requests_total{outcome="ok"} 1`) {
		t.Errorf("expected chat counter in metrics, got:\n%s", body)
	}

	status, _ = call(t, srv.app, "GET", "/health", "")
	if status != fiber.StatusOK {
		t.Errorf("expected healthy store, got %d", status)
	}
}

func TestServerRateLimitsAPI(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Max = 2
	srv := startServer(t, cfg)

	for i := 0; i < 2; i++ {
		if status, _ := call(t, srv.app, "GET", "/api/sessions", ""); status != fiber.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, status)
		}
	}

	status, body := call(t, srv.app, "GET", "/api/sessions", "")
	if status != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", status)
	}
	if !strings.Contains(body, rateLimitMessage) {
		t.Errorf("unexpected body %s", body)
	}

	// outside /api the limiter does not apply
	if status, _ := call(t, srv.app, "GET", "/health", ""); status != fiber.StatusOK {
		t.Errorf("expected health to bypass limiter, got %d", status)
	}
}

func TestServerRateLimitStateInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Addr = mr.Addr()
	srv := startServer(t, cfg)

	if status, _ := call(t, srv.app, "GET", "/api/sessions", ""); status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}

	found := false
	for _, key := range mr.Keys() {
		if strings.HasPrefix(key, "support-desk:limiter:") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected limiter keys in redis, got %v", mr.Keys())
	}
}

func TestServerLineWebhookOnlyWhenConfigured(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		srv := startServer(t, testConfig(t))

		status, _ := call(t, srv.app, "POST", "/webhook/line", `{"events":[]}`)

		if status != fiber.StatusNotFound {
			t.Errorf("expected 404, got %d", status)
		}
	})

	t.Run("enabled rejects unsigned requests", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Line = configs.Line{ChannelSecret: "secret", ChannelToken: "token"}
		srv := startServer(t, cfg)

		status, _ := call(t, srv.app, "POST", "/webhook/line", `{"events":[]}`)

		if status != fiber.StatusBadRequest {
			t.Errorf("expected 400, got %d", status)
		}
	})
}

func TestServerServesClientWithFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>client</html>"), 0o644); err != nil {
		t.Fatalf("failed to write index: %v", err)
	}
	cfg := testConfig(t)
	cfg.App.StaticDir = dir
	srv := startServer(t, cfg)

	status, body := call(t, srv.app, "GET", "/chat/history", "")
	if status != fiber.StatusOK || !strings.Contains(body, "client") {
		t.Errorf("expected index fallback, got %d %s", status, body)
	}

	status, _ = call(t, srv.app, "GET", "/api/unknown", "")
	if status != fiber.StatusNotFound {
		t.Errorf("expected api miss to stay 404, got %d", status)
	}
}

func TestServerSQLiteStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database = configs.Database{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "chat.db")}
	srv := startServer(t, cfg)

	if status, body := call(t, srv.app, "POST", "/api/chat", `{"sessionId":"s1","message":"hello"}`); status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	status, body := call(t, srv.app, "GET", "/api/conversations/s1", "")
	if status != fiber.StatusOK || strings.Count(body, `"role"`) != 2 {
		t.Errorf("expected two stored turns, got %d %s", status, body)
	}
}

func TestNewServerRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *configs.Config)
	}{
		{name: "unknown driver", mutate: func(cfg *configs.Config) { cfg.Database.Driver = "mongo" }},
		{name: "external without credential", mutate: func(cfg *configs.Config) {
			cfg.LLM.Mode = "external"
			cfg.LLM.Provider = "openai"
			cfg.LLM.APIKey = "your-api-key"
		}},
		{name: "unknown mode", mutate: func(cfg *configs.Config) { cfg.LLM.Mode = "magic" }},
		{name: "redis unreachable", mutate: func(cfg *configs.Config) { cfg.Redis.Addr = "127.0.0.1:1" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)

			if _, err := newServer(cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewServerSelectsExternalProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Mode = "auto"
	cfg.LLM.Provider = "lmstudio"
	cfg.LLM.BaseURL = "http://127.0.0.1:1"
	cfg.LLM.Timeout = time.Second

	srv := startServer(t, cfg)

	if srv.app == nil {
		t.Fatal("expected app to be built")
	}
}
