package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ravel-run/agentgraph/llm"
)

func newTestProvider(t *testing.T, srv *httptest.Server) *Provider {
	t.Helper()
	p := New(srv.URL, "llama3.2")
	return p
}

func TestNewDefaultsBaseURL(t *testing.T) {
	p := New("", "llama3.2")
	if p.baseURL != defaultBaseURL {
		t.Fatalf("expected default base URL, got %q", p.baseURL)
	}
}

func TestProviderNameAndModel(t *testing.T) {
	p := New("http://x", "llama3.2")
	if p.ProviderName() != "ollama" {
		t.Fatalf("unexpected provider name: %q", p.ProviderName())
	}
	if p.ModelName() != "llama3.2" {
		t.Fatalf("unexpected model name: %q", p.ModelName())
	}
}

func TestEnsureModelSkipsPullWhenPresent(t *testing.T) {
	var pullCalled bool
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"models": []map[string]string{{"name": "llama3.2"}},
		})
	})
	mux.HandleFunc("/api/pull", func(w http.ResponseWriter, r *http.Request) {
		pullCalled = true
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := newTestProvider(t, srv)
	if err := p.ensureModel(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pullCalled {
		t.Fatal("expected no pull when model already present")
	}
	if !p.verified {
		t.Fatal("expected verified flag set")
	}
}

func TestEnsureModelPullsWhenAbsent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"models": []map[string]string{}})
	})
	mux.HandleFunc("/api/pull", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"status":"pulling"}`)
		fmt.Fprintln(w, `{"status":"success"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := newTestProvider(t, srv)
	if err := p.ensureModel(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.verified {
		t.Fatal("expected verified flag set after pull")
	}
}

func TestEnsureModelPullFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"models": []map[string]string{}})
	})
	mux.HandleFunc("/api/pull", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"error":"no such model"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := newTestProvider(t, srv)
	if err := p.ensureModel(context.Background()); err == nil {
		t.Fatal("expected an error when the pull reports a failure")
	}
}

func TestCompleteReturnsUsageAndContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"models": []map[string]string{{"name": "llama3.2"}}})
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"message":           map[string]string{"content": "hi"},
			"done":              true,
			"prompt_eval_count": 3,
			"eval_count":        4,
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := newTestProvider(t, srv)
	resp, err := p.Complete(context.Background(), llm.Request{Messages: []llm.Message{{Role: llm.RoleUser, Content: "hello"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hi" || resp.Usage.TotalTokens != 7 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestStreamDeliversFinalChunkWithUsage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"models": []map[string]string{{"name": "llama3.2"}}})
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprintln(w, `{"message":{"content":"he"},"done":false}`)
		flusher.Flush()
		fmt.Fprintln(w, `{"message":{"content":"llo"},"done":true,"prompt_eval_count":1,"eval_count":2}`)
		flusher.Flush()
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := newTestProvider(t, srv)
	out := make(chan llm.StreamChunk, 10)
	if err := p.Stream(context.Background(), llm.Request{}, out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var chunks []llm.StreamChunk
	for c := range out {
		chunks = append(chunks, c)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	last := chunks[len(chunks)-1]
	if last.FinishReason != llm.FinishStop || last.Usage == nil || last.Usage.TotalTokens != 3 {
		t.Fatalf("unexpected final chunk: %+v", last)
	}
}

func TestCapabilities(t *testing.T) {
	p := New("http://x", "m")
	if !p.SupportsStreaming() {
		t.Fatal("expected streaming support")
	}
	if p.SupportsFunctionCalling() {
		t.Fatal("expected no function-calling support")
	}
	if p.MaxContextLength() <= 0 {
		t.Fatal("expected a positive max context length")
	}
	prompt, completion := p.CostPerToken()
	if prompt != 0 || completion != 0 {
		t.Fatalf("expected zero cost for a local model, got %v/%v", prompt, completion)
	}
}
