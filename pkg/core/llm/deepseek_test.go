package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDeepSeekProviderSendsChatRequest(t *testing.T) {
	var got DeepSeekRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"Revenue grew."}}]}`))
	}))
	defer srv.Close()

	p := &DeepSeekProvider{APIKey: "test-key", BaseURL: srv.URL}
	out, err := p.GenerateResponse(context.Background(), "question", "system", map[string]interface{}{
		"response_format": map[string]interface{}{"type": "json_object"},
		"temperature":     0.0,
	})
	if err != nil {
		t.Fatalf("GenerateResponse failed: %v", err)
	}
	if out != "Revenue grew." {
		t.Errorf("unexpected output %q", out)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "question" {
		t.Errorf("unexpected messages %+v", got.Messages)
	}
	if got.ResponseFormat.Type != "json_object" {
		t.Errorf("expected json_object format, got %s", got.ResponseFormat.Type)
	}
	if got.Model != "deepseek-chat" {
		t.Errorf("expected default model, got %s", got.Model)
	}
}

func TestDeepSeekProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := &DeepSeekProvider{APIKey: "k", BaseURL: srv.URL}
	_, err := p.GenerateResponse(context.Background(), "q", "s", nil)
	if err == nil || !strings.Contains(err.Error(), "status=429") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestDeepSeekProviderRequiresKey(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")
	p := &DeepSeekProvider{BaseURL: "http://unused.test"}
	if _, err := p.GenerateResponse(context.Background(), "q", "s", nil); err == nil {
		t.Errorf("expected missing key error")
	}
}

func TestProviderFunc(t *testing.T) {
	var p Provider = ProviderFunc(func(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error) {
		return systemPrompt + "|" + prompt, nil
	})
	out, _ := p.GenerateResponse(context.Background(), "b", "a", nil)
	if out != "a|b" {
		t.Errorf("got %q", out)
	}
}
