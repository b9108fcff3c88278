package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/ppiankov/truthlens/internal/logging"
	"github.com/ppiankov/truthlens/internal/model"
)

func TestLoadConfig_Defaults(t *testing.T) {
	v := viper.New()
	if err := configureViper(v, filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for an explicit config path that does not exist")
	}

	v = viper.New()
	t.Setenv("HOME", t.TempDir())
	if err := configureViper(v, ""); err != nil {
		t.Fatalf("configureViper: %v", err)
	}

	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	def := model.DefaultConfig()
	if cfg.Server.Addr != def.Server.Addr {
		t.Errorf("addr = %q, want %q", cfg.Server.Addr, def.Server.Addr)
	}
	if cfg.Pipeline.StepTimeout != 30*time.Second {
		t.Errorf("step timeout = %v", cfg.Pipeline.StepTimeout)
	}
	if cfg.Verification.Provider != "perplexity" || cfg.Verification.SearchRecency != "month" {
		t.Errorf("verification = %+v", cfg.Verification)
	}
	if cfg.History.Key != "crisis-verifier-history" {
		t.Errorf("history key = %q", cfg.History.Key)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `analysis:
  provider: anthropic
  model: claude-3-5-haiku-20241022
pipeline:
  parallel: true
  step_timeout: 45s
verification:
  enabled: false
events:
  brokers: [k1:9092, k2:9092]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TRUTHLENS_SERVER_ADDR", ":9999")
	t.Setenv("TRUTHLENS_ANALYSIS_API_KEY", "from-env")

	v := viper.New()
	if err := configureViper(v, path); err != nil {
		t.Fatalf("configureViper: %v", err)
	}
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Analysis.Provider != "anthropic" || cfg.Analysis.Model != "claude-3-5-haiku-20241022" {
		t.Errorf("analysis = %+v", cfg.Analysis)
	}
	if cfg.Analysis.APIKey != "from-env" {
		t.Errorf("api key = %q, want env override", cfg.Analysis.APIKey)
	}
	if !cfg.Pipeline.Parallel || cfg.Pipeline.StepTimeout != 45*time.Second {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Verification.Enabled {
		t.Error("verification should be disabled by the file")
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("addr = %q, want env override", cfg.Server.Addr)
	}
	if len(cfg.Events.Brokers) != 2 {
		t.Errorf("brokers = %v", cfg.Events.Brokers)
	}
	// untouched sections keep their defaults
	if cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("cache ttl = %v", cfg.Cache.TTL)
	}
}

func TestApplyEnvFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		preset   string
		env      map[string]string
		wantKey  string
		wantBase string
	}{
		{"openai key", "openai", "", map[string]string{"OPENAI_API_KEY": "sk-1"}, "sk-1", ""},
		{"lovable fallback", "openai", "", map[string]string{"LOVABLE_API_KEY": "lv-1"}, "lv-1", ""},
		{"explicit key wins", "openai", "cfg", map[string]string{"OPENAI_API_KEY": "sk-1"}, "cfg", ""},
		{"anthropic", "claude", "", map[string]string{"ANTHROPIC_API_KEY": "sk-ant"}, "sk-ant", ""},
		{"perplexity", "perplexity", "", map[string]string{"PERPLEXITY_API_KEY": "pplx"}, "pplx", ""},
		{"ollama base", "ollama", "", map[string]string{"OLLAMA_BASE_URL": "http://gpu:11434"}, "", "http://gpu:11434"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"OPENAI_API_KEY", "LOVABLE_API_KEY", "ANTHROPIC_API_KEY", "PERPLEXITY_API_KEY", "OLLAMA_BASE_URL"} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			pc := model.ProviderConfig{Provider: tt.provider, APIKey: tt.preset}
			fallback(&pc)

			if pc.APIKey != tt.wantKey {
				t.Errorf("key = %q, want %q", pc.APIKey, tt.wantKey)
			}
			if pc.BaseURL != tt.wantBase {
				t.Errorf("base = %q, want %q", pc.BaseURL, tt.wantBase)
			}
		})
	}
}

func TestRedact(t *testing.T) {
	cfg := *model.DefaultConfig()
	cfg.Analysis.APIKey = "secret"
	cfg.Verification.APIKey = "secret"
	cfg.Cache.RedisPassword = "secret"

	var b strings.Builder
	if err := writeConfig(&b, redact(cfg)); err != nil {
		t.Fatalf("writeConfig: %v", err)
	}
	if strings.Contains(b.String(), "secret") {
		t.Errorf("secret leaked:\n%s", b.String())
	}
	if cfg.Analysis.APIKey != "secret" {
		t.Error("redact must not modify its input")
	}
}

func TestInitConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := initConfigFile(path); err != nil {
		t.Fatalf("initConfigFile: %v", err)
	}
	if err := initConfigFile(path); err == nil {
		t.Error("expected refusal to overwrite an existing file")
	}

	v := viper.New()
	if err := configureViper(v, path); err != nil {
		t.Fatalf("written file does not load: %v", err)
	}
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
}

func TestReadContent(t *testing.T) {
	got, err := readContent("plain", strings.NewReader("ignored"))
	if err != nil || got != "plain" {
		t.Errorf("readContent(plain) = %q, %v", got, err)
	}

	got, err = readContent("-", strings.NewReader("  from stdin\n"))
	if err != nil || got != "from stdin" {
		t.Errorf("readContent(-) = %q, %v", got, err)
	}
}

func TestResolveEntry(t *testing.T) {
	entries := []model.HistoryEntry{
		{ID: "abc123"},
		{ID: "abd456"},
		{ID: "ffff"},
	}

	tests := []struct {
		prefix  string
		want    string
		wantErr bool
	}{
		{"abc123", "abc123", false},
		{"abd", "abd456", false},
		{"ab", "", true},
		{"zzz", "", true},
	}

	for _, tt := range tests {
		got, err := resolveEntry(entries, tt.prefix)
		if tt.wantErr {
			if err == nil {
				t.Errorf("resolveEntry(%q): expected error", tt.prefix)
			}
			continue
		}
		if err != nil || got.ID != tt.want {
			t.Errorf("resolveEntry(%q) = %q, %v", tt.prefix, got.ID, err)
		}
	}
}

func testConfig(t *testing.T) *model.Config {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Analysis.Provider = "ollama"
	cfg.Analysis.Model = "llama3.1:8b"
	cfg.Analysis.BaseURL = "http://127.0.0.1:1"
	cfg.Verification.Enabled = false
	cfg.History.Backend = "sqlite"
	cfg.History.Path = ":memory:"
	return cfg
}

func TestNewApp(t *testing.T) {
	cfg := testConfig(t)

	a, err := newApp(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer func() { _ = a.Close() }()

	if a.verifier != nil {
		t.Error("verifier should be nil when verification is disabled")
	}
	if a.history == nil || a.runner == nil || a.analyzer == nil {
		t.Fatalf("missing components: %+v", a)
	}
	if len(a.observers()) != 1 {
		t.Errorf("expected only the history observer, got %d", len(a.observers()))
	}
}

func TestNewApp_Errors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.Provider = "nope"
	if _, err := newApp(context.Background(), cfg, logging.Discard()); err == nil {
		t.Error("expected error for unknown analysis provider")
	}

	cfg = testConfig(t)
	cfg.History.Backend = "floppy"
	if _, err := newApp(context.Background(), cfg, logging.Discard()); err == nil {
		t.Error("expected error for unknown history backend")
	}
}

func TestNewVerifier(t *testing.T) {
	logger := log.New(os.Stderr)
	logger.SetLevel(log.FatalLevel)

	cfg := testConfig(t)
	cfg.Verification.Enabled = true
	cfg.Verification.APIKey = ""
	t.Setenv("PERPLEXITY_API_KEY", "")
	if v := newVerifier(cfg, logger); v != nil {
		t.Error("verifier without a key should be disabled")
	}

	cfg.Verification.APIKey = "pplx-test"
	if v := newVerifier(cfg, logger); v == nil {
		t.Error("expected a verifier when a key is configured")
	}
}
