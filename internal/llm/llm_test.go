package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxpilot/internal/apierror"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newGroqServer(t *testing.T, status int, content string) (*Groq, *chatRequest) {
	t.Helper()
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"error":{"message":"model overloaded","type":"server_error"}}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   DefaultModel,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)

	g := NewGroq("test-key", nil,
		option.WithBaseURL(srv.URL),
		option.WithHTTPClient(srv.Client()),
		option.WithMaxRetries(0),
	)
	return g, &got
}

func TestGroq_Generate(t *testing.T) {
	g, req := newGroqServer(t, http.StatusOK, "Here is your summary.")

	out, err := g.Generate(context.Background(), "Summarize this email content: hello")
	require.NoError(t, err)
	assert.Equal(t, "Here is your summary.", out)

	assert.Equal(t, DefaultModel, req.Model)
	assert.InDelta(t, 0.7, req.Temperature, 1e-9)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, systemPrompt, req.Messages[0].Content)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, "Summarize this email content: hello", req.Messages[1].Content)
}

func TestGroq_EmptyAnswer(t *testing.T) {
	g, _ := newGroqServer(t, http.StatusOK, "")

	out, err := g.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "No response generated.", out)
}

func TestGroq_Error(t *testing.T) {
	g, _ := newGroqServer(t, http.StatusBadRequest, "")

	_, err := g.Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apierror.StatusOf(err))
	assert.Contains(t, err.Error(), "Groq API error: ")
}

func TestNew_WithoutKey(t *testing.T) {
	g := New("  ", nil)
	out, err := g.Generate(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, OfflineReply, out)

	_, ok := New("key", nil).(*Groq)
	assert.True(t, ok)
}

func TestFunc(t *testing.T) {
	var seen string
	g := Func(func(_ context.Context, p string) (string, error) {
		seen = p
		return "ok", nil
	})
	out, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, "prompt", seen)
}
