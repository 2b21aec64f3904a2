package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCompleteSuccess(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		fmt.Fprint(w, `{
			"choices": [{"message": {"content": "  Ahoy!  "}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
		}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", 5*time.Second, testLogger())
	out, err := c.Complete(context.Background(), "be a pirate", "say hi", "test-model")
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if out != "Ahoy!" {
		t.Errorf("out = %q, want trimmed content", out)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != "test-model" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 ||
		gotReq.Messages[0].Role != "system" || gotReq.Messages[0].Content != "be a pirate" ||
		gotReq.Messages[1].Role != "user" || gotReq.Messages[1].Content != "say hi" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
}

func TestCompleteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", 5*time.Second, testLogger())
	_, err := c.Complete(context.Background(), "s", "u", "m")
	if err == nil {
		t.Fatal("Complete() returned nil error on a 429 response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error = %v, want the status code surfaced", err)
	}
}

func TestCompleteAPIErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": {"message": "model not found", "type": "invalid_request_error"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", 5*time.Second, testLogger())
	_, err := c.Complete(context.Background(), "s", "u", "m")
	if err == nil || !strings.Contains(err.Error(), "model not found") {
		t.Errorf("error = %v, want the API error message surfaced", err)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices": []}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", 5*time.Second, testLogger())
	if _, err := c.Complete(context.Background(), "s", "u", "m"); err == nil {
		t.Error("Complete() returned nil error for a response with no choices")
	}
}

func TestCompleteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", 5*time.Second, testLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Complete(ctx, "s", "u", "m")
	if err == nil {
		t.Fatal("Complete() returned nil error after context deadline")
	}
	if time.Since(start) > time.Second {
		t.Error("Complete() did not honor the context deadline")
	}
}

func TestCompletePreconditions(t *testing.T) {
	c := New("http://unused.invalid", "", time.Second, testLogger())
	if _, err := c.Complete(context.Background(), "s", "u", "m"); err == nil {
		t.Error("Complete() with no API key should fail without a request")
	}

	c = New("http://unused.invalid", "key", time.Second, testLogger())
	if _, err := c.Complete(context.Background(), "s", "u", ""); err == nil {
		t.Error("Complete() with no model should fail without a request")
	}
}
