package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testRequest(user string) Request {
	return Request{Messages: []Message{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleUser, Content: "example question"},
		{Role: RoleAssistant, Content: "example answer"},
		{Role: RoleUser, Content: user},
	}}
}

func newOpenAIServer(t *testing.T, handler http.HandlerFunc) (*OpenAI, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	g, err := NewOpenAI(Config{
		APIKey:      "sk-test",
		BaseURL:     ts.URL + "/v1",
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		Timeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewOpenAI() error = %v", err)
	}
	return g, ts
}

func TestOpenAIGenerateSendsPromptAndReturnsText(t *testing.T) {
	var got struct {
		Model       string    `json:"model"`
		Temperature float64   `json:"temperature"`
		Messages    []Message `json:"messages"`
	}
	g, _ := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q, want /v1/chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Zdravo! Šta te zanima?"},"finish_reason":"stop"}]}`)
	})

	resp, err := g.Generate(context.Background(), testRequest("Zdravo"))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Text != "Zdravo! Šta te zanima?" {
		t.Fatalf("Text = %q", resp.Text)
	}
	if resp.Provider != ProviderOpenAI {
		t.Fatalf("Provider = %q, want %q", resp.Provider, ProviderOpenAI)
	}
	if got.Model != "gpt-4o-mini" {
		t.Fatalf("model = %q, want gpt-4o-mini", got.Model)
	}
	if got.Temperature < 0.69 || got.Temperature > 0.71 {
		t.Fatalf("temperature = %v, want 0.7", got.Temperature)
	}
	if len(got.Messages) != 4 || got.Messages[0].Role != RoleSystem || got.Messages[3].Content != "Zdravo" {
		t.Fatalf("messages = %+v", got.Messages)
	}
}

func TestOpenAIGenerateSendsZeroTemperature(t *testing.T) {
	var body map[string]json.RawMessage
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`)
	}))
	defer ts.Close()

	g, err := NewOpenAI(Config{APIKey: "sk-test", BaseURL: ts.URL + "/v1", Temperature: 0})
	if err != nil {
		t.Fatalf("NewOpenAI() error = %v", err)
	}
	if _, err := g.Generate(context.Background(), testRequest("hi")); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	raw, ok := body["temperature"]
	if !ok {
		t.Fatalf("request body has no temperature key: %v", body)
	}
	var temp float64
	if err := json.Unmarshal(raw, &temp); err != nil {
		t.Fatalf("temperature = %s: %v", raw, err)
	}
	if temp <= 0 || temp > 1e-6 {
		t.Fatalf("temperature = %v, want near-zero positive value", temp)
	}
}

func TestOpenAIGenerateClassifiesStatusErrors(t *testing.T) {
	cases := []struct {
		status    int
		want      ErrorKind
		retryable bool
	}{
		{http.StatusUnauthorized, KindAuth, false},
		{http.StatusTooManyRequests, KindRateLimit, true},
		{http.StatusServiceUnavailable, KindUnavailable, true},
		{http.StatusBadRequest, KindUpstream, false},
	}
	for _, tc := range cases {
		g, _ := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tc.status)
			fmt.Fprint(w, `{"error":{"message":"nope","type":"invalid_request_error","code":"x"}}`)
		})
		_, err := g.Generate(context.Background(), testRequest("hi"))
		var genErr *GenerationError
		if !errors.As(err, &genErr) {
			t.Fatalf("status %d: error = %T %v, want *GenerationError", tc.status, err, err)
		}
		if genErr.Kind != tc.want {
			t.Fatalf("status %d: Kind = %q, want %q", tc.status, genErr.Kind, tc.want)
		}
		if genErr.Retryable != tc.retryable {
			t.Fatalf("status %d: Retryable = %v, want %v", tc.status, genErr.Retryable, tc.retryable)
		}
		if genErr.Status != tc.status {
			t.Fatalf("Status = %d, want %d", genErr.Status, tc.status)
		}
	}
}

func TestOpenAIGenerateNoChoicesIsMalformed(t *testing.T) {
	g, _ := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	})
	_, err := g.Generate(context.Background(), testRequest("hi"))
	var genErr *GenerationError
	if !errors.As(err, &genErr) || genErr.Kind != KindMalformed {
		t.Fatalf("error = %v, want malformed GenerationError", err)
	}
}

func TestOpenAIGenerateTimeout(t *testing.T) {
	g, _ := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server watches for the client disconnect.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := g.Generate(ctx, testRequest("hi"))
	var genErr *GenerationError
	if !errors.As(err, &genErr) || genErr.Kind != KindTimeout {
		t.Fatalf("error = %v, want timeout GenerationError", err)
	}
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	if _, err := NewOpenAI(Config{APIKey: "  "}); err == nil {
		t.Fatalf("NewOpenAI() expected error without API key")
	}
}

func TestNewResolvesModes(t *testing.T) {
	cases := []struct {
		cfg  Config
		want string
	}{
		{Config{Mode: ""}, ProviderMock},
		{Config{Mode: "auto", APIKey: "sk-test"}, ProviderOpenAI},
		{Config{Mode: "auto", HTTPURL: "http://localhost:9/gen"}, ProviderHTTP},
		{Config{Mode: "MOCK"}, ProviderMock},
		{Config{Mode: "http", HTTPURL: "http://localhost:9/gen"}, ProviderHTTP},
	}
	for _, tc := range cases {
		g, err := New(tc.cfg)
		if err != nil {
			t.Fatalf("New(%+v) error = %v", tc.cfg, err)
		}
		if got := ProviderName(g); got != tc.want {
			t.Fatalf("New(%+v) provider = %q, want %q", tc.cfg, got, tc.want)
		}
	}

	if _, err := New(Config{Mode: "openai"}); err == nil {
		t.Fatalf("New(openai) expected error without key")
	}
	if _, err := New(Config{Mode: "http"}); err == nil {
		t.Fatalf("New(http) expected error without url")
	}
	if _, err := New(Config{Mode: "wat"}); err == nil {
		t.Fatalf("New(wat) expected error")
	}
}

func TestMockEchoesLastUserMessage(t *testing.T) {
	resp, err := NewMock().Generate(context.Background(), testRequest("Koliko traje kurs?"))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(resp.Text, "Koliko traje kurs?") {
		t.Fatalf("Text = %q, want echo of user message", resp.Text)
	}
}

func TestMockHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMock().Generate(ctx, testRequest("x"))
	var genErr *GenerationError
	if !errors.As(err, &genErr) || genErr.Kind != KindCanceled {
		t.Fatalf("error = %v, want canceled GenerationError", err)
	}
}

func TestClassifyKeepsExistingGenerationError(t *testing.T) {
	orig := &GenerationError{Kind: KindAuth, Provider: "x", Err: errors.New("bad key")}
	if got := classify("y", fmt.Errorf("wrapped: %w", orig)); got != orig {
		t.Fatalf("classify() = %+v, want original error", got)
	}
}
