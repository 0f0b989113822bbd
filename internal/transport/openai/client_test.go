package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/GitHub-HackDay/sumview/internal/domain"
	"github.com/GitHub-HackDay/sumview/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterProviderMetrics()
	os.Exit(m.Run())
}

func testClient(baseURL string) *Client {
	return NewClient(&Config{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		MaxRetries: 1,
		Logger:     zap.NewNop(),
	})
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`},
		{"surrounding whitespace", "  \n{\"a\":1}\n  ", `{"a":1}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractJSON(tc.in); got != tc.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestIsPermanent(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"bad request", &openai.APIError{HTTPStatusCode: 400}, true},
		{"unauthorized", &openai.APIError{HTTPStatusCode: 401}, true},
		{"rate limited", &openai.APIError{HTTPStatusCode: 429}, false},
		{"server error", &openai.APIError{HTTPStatusCode: 500}, false},
		{"request error 404", &openai.RequestError{HTTPStatusCode: 404}, true},
		{"network error", errors.New("connection refused"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isPermanent(tc.err); got != tc.want {
				t.Errorf("isPermanent = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseAPIError_WrapsProviderError(t *testing.T) {
	cases := []error{
		&openai.APIError{HTTPStatusCode: 502, Message: "bad gateway"},
		&openai.RequestError{HTTPStatusCode: 503, Body: []byte(`{"detail":"overloaded"}`)},
		errors.New("dial tcp: connection refused"),
	}

	for _, cause := range cases {
		err := parseAPIError("summarize", cause)
		if !errors.Is(err, domain.ErrProviderError) {
			t.Errorf("parseAPIError(%v) does not wrap provider error: %v", cause, err)
		}
	}
}

func TestEmbedder_Embed(t *testing.T) {
	expectedVec := []float32{0.1, 0.2, 0.3, 0.4}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "test-model",
			"data": []map[string]any{
				{"object": "embedding", "embedding": expectedVec, "index": 0},
			},
			"usage": map[string]int{"prompt_tokens": 10, "total_tokens": 10},
		})
	}))
	defer server.Close()

	emb := NewEmbedder(testClient(server.URL), "test-model", 4)

	vec, err := emb.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != len(expectedVec) {
		t.Fatalf("expected %d dimensions, got %d", len(expectedVec), len(vec))
	}
	for i, v := range vec {
		if v != expectedVec[i] {
			t.Errorf("vec[%d] = %f, expected %f", i, v, expectedVec[i])
		}
	}
}

func TestEmbedder_APIErrorIsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "invalid input",
				"type":    "invalid_request_error",
			},
		})
	}))
	defer server.Close()

	emb := NewEmbedder(testClient(server.URL), "test-model", 4)

	_, err := emb.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if !errors.Is(err, domain.ErrProviderError) {
		t.Errorf("expected provider error, got %v", err)
	}
}

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 50, "completion_tokens": 30, "total_tokens": 80},
		})
	}))
}

func TestSummarizer_ParsesFencedJSON(t *testing.T) {
	reply := "```json\n" + `{
		"summary": "A short recap.",
		"article": "A longer writeup.",
		"key_points": ["first", "second"]
	}` + "\n```"

	server := chatServer(t, reply)
	defer server.Close()

	s := NewSummarizer(testClient(server.URL), "test-model")

	summary, err := s.Summarize(context.Background(), "the transcript")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary.Summary != "A short recap." {
		t.Errorf("summary = %q", summary.Summary)
	}
	if summary.Article != "A longer writeup." {
		t.Errorf("article = %q", summary.Article)
	}
	if len(summary.KeyPoints) != 2 || summary.KeyPoints[0] != "first" {
		t.Errorf("key points = %v", summary.KeyPoints)
	}
}

func TestSummarizer_MalformedReplyIsProviderError(t *testing.T) {
	server := chatServer(t, "not json at all")
	defer server.Close()

	s := NewSummarizer(testClient(server.URL), "test-model")

	_, err := s.Summarize(context.Background(), "the transcript")
	if !errors.Is(err, domain.ErrProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestGenerator_ParsesQuestions(t *testing.T) {
	reply := `[
		{"prompt": "What is discussed?", "options": ["a", "b", "c", "d"], "answer": "b"},
		{"prompt": "", "options": ["x"], "answer": "x"}
	]`

	server := chatServer(t, reply)
	defer server.Close()

	g := NewGenerator(testClient(server.URL), "test-model")

	questions, err := g.Generate(context.Background(), "the transcript", []string{"point one"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("expected 1 question after filtering, got %d", len(questions))
	}
	q := questions[0]
	if q.Prompt != "What is discussed?" || q.Answer != "b" || len(q.Options) != 4 {
		t.Errorf("question = %+v", q)
	}
}

func TestGenerator_EmptyResultIsProviderError(t *testing.T) {
	server := chatServer(t, "[]")
	defer server.Close()

	g := NewGenerator(testClient(server.URL), "test-model")

	_, err := g.Generate(context.Background(), "the transcript", nil)
	if !errors.Is(err, domain.ErrProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
}
