package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/typeassist/internal/app"
	"github.com/MrWong99/typeassist/internal/config"
	"github.com/MrWong99/typeassist/internal/userdict"
	"github.com/MrWong99/typeassist/pkg/provider/llm"
	llmmock "github.com/MrWong99/typeassist/pkg/provider/llm/mock"
)

// garbage is far from every dictionary word, so it always escalates.
const garbage = "qxzvjk wpfgzt hjqxvw"

// testConfig returns a config with a file-backed user dictionary under a
// temp dir and no remote cooldown.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.ListenAddr = "127.0.0.1:0"
	cfg.Correction.Cooldown = 0
	cfg.Correction.RetryDelay = time.Millisecond
	cfg.Cache.JanitorInterval = 0
	cfg.UserDictionary = config.UserDictConfig{
		Store: config.StoreFile,
		Path:  filepath.Join(t.TempDir(), "user.json"),
	}
	return cfg
}

func respond(text string) *llmmock.Provider {
	return &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{"corrected_text":"` + text + `","corrections":[]}`},
	}
}

func newApp(t *testing.T, cfg *config.Config, providers *app.Providers, opts ...app.Option) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), cfg, providers, opts...)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Shutdown(ctx)
	})
	return a
}

func postCorrect(t *testing.T, srv *httptest.Server, body string) map[string]any {
	t.Helper()
	resp, err := http.Post(srv.URL+"/v1/correct", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /v1/correct: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /v1/correct status = %d", resp.StatusCode)
	}
	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return got
}

func TestNew_ServesLocalCorrections(t *testing.T) {
	t.Parallel()
	a := newApp(t, testConfig(t), nil)
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	got := postCorrect(t, srv, `{"text":"teh cat sat","mode":"spelling"}`)
	if got["corrected_text"] != "the cat sat" {
		t.Errorf("corrected_text = %v", got["corrected_text"])
	}

	resp, err := http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var ready struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ready); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || ready.Checks["dictionary"] != "ok" || ready.Checks["user_dictionary"] != "ok" {
		t.Errorf("readyz = %d %+v", resp.StatusCode, ready)
	}
	if _, ok := ready.Checks["backend"]; ok {
		t.Error("backend check registered without any provider")
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/metrics status = %d", resp.StatusCode)
	}
}

func TestNew_FailsOverAcrossProviders(t *testing.T) {
	t.Parallel()
	primary := &llmmock.Provider{CompleteErr: &llm.StatusError{StatusCode: http.StatusUnauthorized, Err: errors.New("bad key")}}
	secondary := respond("The quick brown fox.")

	cfg := testConfig(t)
	a := newApp(t, cfg, &app.Providers{LLM: []app.NamedProvider{
		{Name: "openai", LLM: primary},
		{Name: "anthropic", LLM: secondary},
	}})
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	got := postCorrect(t, srv, `{"text":"`+garbage+`","mode":"comprehensive","language":"English"}`)
	if got["corrected_text"] != "The quick brown fox." {
		t.Errorf("corrected_text = %v", got["corrected_text"])
	}
	if len(primary.Calls()) == 0 {
		t.Error("primary provider was never tried")
	}
	calls := secondary.Calls()
	if len(calls) != 1 {
		t.Fatalf("secondary calls = %d, want 1", len(calls))
	}
	if msg := calls[0].Req.Messages[0].Content; msg != garbage {
		t.Errorf("secondary received %q, want the original chunk", msg)
	}
	if st := a.Orchestrator().Stats(); st.RemoteCalls != 1 || st.RemoteFailures != 0 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestNew_RestoresAndSavesUserDictionary(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	store := userdict.NewFileStore(cfg.UserDictionary.Path)
	if err := store.Save(context.Background(), &userdict.UserDictionary{
		Words:       []string{"kubectl"},
		Frequencies: map[string]int{"kubectl": 4},
	}); err != nil {
		t.Fatal(err)
	}

	a := newApp(t, cfg, nil)
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/predict?prefix=kub&n=3")
	if err != nil {
		t.Fatal(err)
	}
	var pred struct {
		Predictions []struct {
			Word string `json:"word"`
		} `json:"predictions"`
	}
	err = json.NewDecoder(resp.Body).Decode(&pred)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if len(pred.Predictions) == 0 || pred.Predictions[0].Word != "kubectl" {
		t.Errorf("predictions for kub = %+v, want the restored word", pred.Predictions)
	}

	resp, err = http.Post(srv.URL+"/v1/words", "application/json", strings.NewReader(`{"word":"helm"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("POST /v1/words status = %d", resp.StatusCode)
	}

	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	d, err := store.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(strings.Join(d.Words, ","), "helm") || d.Frequencies["kubectl"] != 4 {
		t.Errorf("saved user dictionary = %+v", d)
	}
}

func TestNew_LoadsDictionaryDirAndCorrections(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "general.txt"), []byte("recieve\treceive\t0.95\nnot a valid line\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	corrections := filepath.Join(dir, "custom.tsv")
	if err := os.WriteFile(corrections, []byte("zorp\tzap\t1.00\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(t)
	cfg.Dictionary.Dir = dir
	cfg.Dictionary.CorrectionsFile = corrections
	a := newApp(t, cfg, nil)

	sugg := a.Orchestrator().GetSuggestions("recieve", "", "")
	if len(sugg) == 0 || sugg[0].Word != "receive" {
		t.Errorf("suggestions for recieve = %+v", sugg)
	}
	sugg = a.Orchestrator().GetSuggestions("zorp", "", "")
	if len(sugg) == 0 || sugg[0].Word != "zap" {
		t.Errorf("suggestions for zorp = %+v", sugg)
	}
}

func TestNew_InvalidLayout(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Keyboard.Layout = "colemak"
	if _, err := app.New(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for unknown keyboard layout")
	}
}

func TestApplyConfig(t *testing.T) {
	t.Parallel()
	var level slog.LevelVar
	cfg := testConfig(t)
	a := newApp(t, cfg, nil, app.WithLevelVar(&level))

	next := *cfg
	next.Server.LogLevel = config.LogDebug
	next.Correction.Thresholds.Medium = 0.95
	next.Correction.EscalationRatio = 0.6
	a.ApplyConfig(cfg, &next)

	if level.Level() != slog.LevelDebug {
		t.Errorf("level = %v, want debug", level.Level())
	}
	got := a.Orchestrator().Config()
	if got.Thresholds.Medium != 0.95 || got.EscalationRatio != 0.6 {
		t.Errorf("orchestrator config not updated: %+v", got)
	}

	bad := next
	bad.Correction.Workers = 0
	a.ApplyConfig(&next, &bad)
	bad.Correction.EscalationRatio = 0.7
	a.ApplyConfig(&next, &bad)
	if a.Orchestrator().Config().Workers == 0 {
		t.Error("invalid reload was applied")
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	t.Parallel()
	a := newApp(t, testConfig(t), nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("healthz status = %d", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never answered: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   config.LogLevel
		want slog.Level
	}{
		{config.LogDebug, slog.LevelDebug},
		{config.LogInfo, slog.LevelInfo},
		{config.LogWarn, slog.LevelWarn},
		{config.LogError, slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := app.SlogLevel(tt.in); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
