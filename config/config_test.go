package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/haowjy/meridian-stream"
	"github.com/haowjy/meridian-stream/providertest"
)

// isolate clears discovery inputs so tests see only what they set up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("MERIDIAN_STREAM_CONFIG", "")
	for _, env := range defaultKeyEnv {
		t.Setenv(env, "")
	}
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.UserAgent != llmprovider.DefaultUserAgent {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
	if cfg.Timeout != 120*time.Second {
		t.Errorf("Timeout = %s, want 2m0s", cfg.Timeout)
	}
	if cfg.Observability.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.Observability.LogLevel)
	}
	for _, id := range []llmprovider.ProviderID{
		llmprovider.ProviderAnthropic,
		llmprovider.ProviderOpenAI,
		llmprovider.ProviderCohere,
		llmprovider.ProviderOpenRouter,
	} {
		p, ok := cfg.Provider(id)
		if !ok {
			t.Errorf("Provider(%s) missing from defaults", id)
			continue
		}
		if p.APIKeyEnv != defaultKeyEnv[id] {
			t.Errorf("Provider(%s).APIKeyEnv = %q", id, p.APIKeyEnv)
		}
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults error = %v", err)
	}
}

func TestLoad_NoFile(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "  sk-env\n")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	p, _ := cfg.Provider(llmprovider.ProviderOpenAI)
	if p.APIKey != "sk-env" {
		t.Errorf("openai APIKey = %q, want sk-env", p.APIKey)
	}
	p, _ = cfg.Provider(llmprovider.ProviderCohere)
	if p.APIKey != "" {
		t.Errorf("cohere APIKey = %q, want empty", p.APIKey)
	}
}

func TestLoad_MergesYAML(t *testing.T) {
	dir := isolate(t)
	t.Setenv("CUSTOM_ANTHROPIC_KEY", "sk-ant-custom")
	keyFile := writeFile(t, dir, "cohere.key", "co-file-key\n")

	path := writeFile(t, dir, "custom.yaml", `
timeout: 30s
user_agent: my-app/1.0
observability:
  log_level: debug
  metrics:
    enabled: true
providers:
  - id: anthropic
    api_key_env: CUSTOM_ANTHROPIC_KEY
    base_url: https://proxy.internal/anthropic
  - id: cohere
    api_key_file: `+keyFile+`
  - id: openrouter
    disabled: true
    referer: https://example.com
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %s, want 30s", cfg.Timeout)
	}
	if cfg.UserAgent != "my-app/1.0" {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
	if !cfg.Observability.Metrics.Enabled || cfg.Observability.LogLevel != "debug" {
		t.Errorf("Observability = %+v", cfg.Observability)
	}
	if len(cfg.Providers) != 4 {
		t.Fatalf("len(Providers) = %d, want 4", len(cfg.Providers))
	}

	anthropic, _ := cfg.Provider(llmprovider.ProviderAnthropic)
	if anthropic.APIKey != "sk-ant-custom" || anthropic.BaseURL != "https://proxy.internal/anthropic" {
		t.Errorf("anthropic = %+v", anthropic)
	}
	cohere, _ := cfg.Provider(llmprovider.ProviderCohere)
	if cohere.APIKey != "co-file-key" {
		t.Errorf("cohere APIKey = %q, want co-file-key", cohere.APIKey)
	}
	if cohere.APIKeyEnv != "COHERE_API_KEY" {
		t.Errorf("cohere APIKeyEnv = %q, default should survive the merge", cohere.APIKeyEnv)
	}
	openrouter, _ := cfg.Provider(llmprovider.ProviderOpenRouter)
	if !openrouter.Disabled || openrouter.Referer != "https://example.com" {
		t.Errorf("openrouter = %+v", openrouter)
	}
}

func TestLoad_ConfigFromEnv(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "elsewhere.yaml", "timeout: 5s\n")
	t.Setenv("MERIDIAN_STREAM_CONFIG", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %s, want 5s", cfg.Timeout)
	}
}

func TestLoad_DiscoversWorkingDirFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, dir, "meridian-stream.yaml", "user_agent: discovered/1\n")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.UserAgent != "discovered/1" {
		t.Errorf("UserAgent = %q, want discovered/1", cfg.UserAgent)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown provider",
			yaml:    "providers:\n  - id: mistral\n",
			wantErr: `unknown provider "mistral"`,
		},
		{
			name:    "invalid base url",
			yaml:    "providers:\n  - id: openai\n    base_url: not-a-url\n",
			wantErr: "providers[1].base_url",
		},
		{
			name:    "bad log level",
			yaml:    "observability:\n  log_level: verbose\n",
			wantErr: "observability.log_level",
		},
		{
			name:    "negative timeout",
			yaml:    "timeout: -1s\n",
			wantErr: "timeout must be >= 0",
		},
		{
			name:    "missing key file",
			yaml:    "providers:\n  - id: cohere\n    api_key_file: /nonexistent/cohere.key\n",
			wantErr: "providers[cohere].api_key_file",
		},
		{
			name:    "malformed yaml",
			yaml:    "providers: [\n",
			wantErr: "loading config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			path := writeFile(t, dir, "config.yaml", tt.yaml)

			_, err := Load(path)
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_DuplicateProvider(t *testing.T) {
	cfg := Defaults()
	cfg.Providers = append(cfg.Providers, ProviderConfig{ID: llmprovider.ProviderOpenAI})

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), `duplicate provider "openai"`) {
		t.Errorf("Validate() error = %v, want duplicate provider", err)
	}
}

func TestMergeProviders_KeepsDefaultsOrder(t *testing.T) {
	merged := mergeProviders(Defaults().Providers, []ProviderConfig{
		{ID: llmprovider.ProviderCohere, BaseURL: "https://cohere.proxy"},
		{ID: "custom"},
	})

	var ids []string
	for _, p := range merged {
		ids = append(ids, p.ID.String())
	}
	if got := strings.Join(ids, ","); got != "anthropic,openai,cohere,openrouter,custom" {
		t.Errorf("ids = %s", got)
	}
	if merged[2].BaseURL != "https://cohere.proxy" || merged[2].APIKeyEnv != "COHERE_API_KEY" {
		t.Errorf("cohere = %+v", merged[2])
	}
}

func TestLoadEnv(t *testing.T) {
	dir := isolate(t)
	writeFile(t, dir, ".env", "OPENAI_API_KEY=sk-dotenv\nMERIDIAN_STREAM_TEST_VAR=from-file\n")
	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	t.Chdir(nested)

	// OPENAI_API_KEY is set (empty) by isolate, so the file must not override it
	t.Setenv("MERIDIAN_STREAM_TEST_VAR", "")
	os.Unsetenv("MERIDIAN_STREAM_TEST_VAR")

	path := LoadEnv()
	if path != filepath.Join(dir, ".env") {
		t.Errorf("LoadEnv() = %q, want %q", path, filepath.Join(dir, ".env"))
	}
	if got := os.Getenv("MERIDIAN_STREAM_TEST_VAR"); got != "from-file" {
		t.Errorf("MERIDIAN_STREAM_TEST_VAR = %q, want from-file", got)
	}
	if got := os.Getenv("OPENAI_API_KEY"); got != "" {
		t.Errorf("OPENAI_API_KEY = %q, existing value should win", got)
	}
}

func TestBuild(t *testing.T) {
	cfg := Defaults()
	cfg.Observability.Metrics.Enabled = true
	for i := range cfg.Providers {
		switch cfg.Providers[i].ID {
		case llmprovider.ProviderCohere:
			cfg.Providers[i].Disabled = true
		case llmprovider.ProviderOpenAI:
			cfg.Providers[i].APIKey = "sk-built"
			cfg.Providers[i].Organization = "org-1"
		}
	}

	reg := prometheus.NewRegistry()
	rt, err := cfg.Build(reg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	got := rt.Registry.Providers()
	want := []llmprovider.ProviderID{llmprovider.ProviderAnthropic, llmprovider.ProviderOpenAI, llmprovider.ProviderOpenRouter}
	if len(got) != len(want) {
		t.Fatalf("Providers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Providers()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if _, err := rt.Registry.Get(llmprovider.ProviderCohere); !errors.Is(err, llmprovider.ErrUnknownProvider) {
		t.Errorf("Get(cohere) error = %v, want not found", err)
	}

	auth, ok := rt.Registry.Credential(llmprovider.ProviderOpenAI)
	if !ok || auth.APIKey != "sk-built" || auth.Organization != "org-1" {
		t.Errorf("Credential(openai) = (%+v, %v)", auth, ok)
	}

	if rt.Metrics == nil {
		t.Fatal("Metrics should be set when enabled")
	}
	if rt.HTTPClient.Timeout != 0 {
		t.Errorf("HTTPClient.Timeout = %s, want none so streams are not cut off", rt.HTTPClient.Timeout)
	}

	adapter, err := rt.Registry.ForModel("gpt-4o")
	if err != nil {
		t.Fatalf("ForModel(gpt-4o) error = %v", err)
	}
	req, err := adapter.NewRequest(t.Context(), "https://api.openai.com/v1/chat/completions", "POST", `{}`, false)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer sk-built" {
		t.Errorf("Authorization = %q", got)
	}
	if got := req.Header.Get("User-Agent"); got != llmprovider.DefaultUserAgent {
		t.Errorf("User-Agent = %q", got)
	}
}

func TestBuild_CustomCatalog(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "models.yaml", `
providers:
  openai:
    my-finetune:
      context_window: 16000
      features: {streaming: true}
`)

	cfg := Defaults()
	cfg.Catalog = path
	rt, err := cfg.Build(nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if rt.Metrics != nil {
		t.Error("Metrics should be nil when disabled")
	}

	adapter, err := rt.Registry.ForModel("my-finetune")
	if err != nil {
		t.Fatalf("ForModel(my-finetune) error = %v", err)
	}
	if adapter.ID() != llmprovider.ProviderOpenAI {
		t.Errorf("ForModel(my-finetune) = %s, want openai", adapter.ID())
	}
}

func TestBuild_BadCatalog(t *testing.T) {
	cfg := Defaults()
	cfg.Catalog = filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := cfg.Build(nil); err == nil {
		t.Error("Build() expected error for missing catalog")
	}
}

// slowStreamServer sends one OpenAI chunk per fragment, pausing between them.
func slowStreamServer(t *testing.T, fragments []string, pause time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		flusher.Flush()

		lines := providertest.OpenAIStream(fragments, "stop")
		for _, line := range lines {
			if strings.HasPrefix(line, "data:") {
				select {
				case <-time.After(pause):
				case <-r.Context().Done():
					return
				}
			}
			fmt.Fprintln(w, line)
			flusher.Flush()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func buildOpenAI(t *testing.T, baseURL string, timeout time.Duration) (*Runtime, llmprovider.Adapter) {
	t.Helper()
	cfg := Defaults()
	cfg.Timeout = timeout
	for i := range cfg.Providers {
		if cfg.Providers[i].ID == llmprovider.ProviderOpenAI {
			cfg.Providers[i].BaseURL = baseURL
			cfg.Providers[i].APIKey = "sk-test"
		}
	}
	rt, err := cfg.Build(nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	adapter, err := rt.Registry.Get(llmprovider.ProviderOpenAI)
	if err != nil {
		t.Fatalf("Get(openai) error = %v", err)
	}
	return rt, adapter
}

func TestBuild_TimeoutDoesNotCutStreams(t *testing.T) {
	fragments := []string{"one", " two", " three", " four", " five"}
	srv := slowStreamServer(t, fragments, 100*time.Millisecond)
	rt, adapter := buildOpenAI(t, srv.URL, 250*time.Millisecond)

	url, err := adapter.BuildURL(llmprovider.EndpointChat, "")
	if err != nil {
		t.Fatalf("BuildURL() error = %v", err)
	}
	req, err := adapter.NewRequest(t.Context(), url, http.MethodPost, `{"model":"gpt-4o"}`, true)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	resp, err := llmprovider.Send(rt.HTTPClient, adapter.ID(), req)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	aggregate, err := adapter.DecodeStream(resp, llmprovider.ShapeChat).Collect()
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if got, want := aggregate.Text(0), providertest.Join(fragments); got != want {
		t.Errorf("text = %q, want %q", got, want)
	}
}

func TestBuild_TimeoutBoundsResponseHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	rt, adapter := buildOpenAI(t, srv.URL, 100*time.Millisecond)

	req, err := adapter.NewRequest(t.Context(), srv.URL+"/chat/completions", http.MethodPost, `{}`, true)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}

	start := time.Now()
	if _, err := llmprovider.Send(rt.HTTPClient, adapter.ID(), req); err == nil {
		t.Fatal("Send() expected a timeout error, got nil")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Send() returned after %s, want about 100ms", elapsed)
	}
}
