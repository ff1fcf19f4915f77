package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"templatefill-backend/internal/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*SuggestClient, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := NewSuggestClient(Config{APIKey: "test-key", BaseURL: server.URL + "/", Timeout: 2 * time.Second})
	require.NoError(t, err)
	return client, &calls
}

func reply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "cmpl-1",
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	return string(b)
}

var input = llm.SuggestInput{
	Fields:   []string{"full_name", "company_name"},
	Context:  llm.BuildContext("NDA Agreement", []string{"full_name", "company_name"}),
	UserData: map[string]string{"userContext": "Jane Doe signs for Acme"},
}

func TestSuggestSendsOriginalRequestShape(t *testing.T) {
	var got map[string]any
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(reply(`{"auto_filled_data":{"full_name":"Jane Doe","company_name":"Acme"}}`)))
	})

	res, err := client.Suggest(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, map[string]string{"full_name": "Jane Doe", "company_name": "Acme"}, res.ValuesByField)
	assert.Equal(t, llm.DefaultFont, res.Font)

	assert.Equal(t, DefaultModel, got["model"])
	assert.InDelta(t, 0.3, got["temperature"], 0.0001)
	assert.Equal(t, float64(2000), got["max_tokens"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	msgs, _ := got["messages"].([]any)
	require.Len(t, msgs, 2)
}

func TestSuggestStripsReasoningAndFences(t *testing.T) {
	content := "<think>the user wants an NDA</think>\n```json\n{\"auto_filled_data\":{\"full_name\":\"Jane Doe\"}}\n```"
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(reply(content)))
	})

	res, err := client.Suggest(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", res.ValuesByField["full_name"])
}

func TestSuggestFailuresAreUnavailableAndNotRetried(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{name: "server error", handler: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("upstream exploded"))
		}},
		{name: "error envelope", handler: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
		}},
		{name: "no choices", handler: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}},
		{name: "empty content", handler: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(reply("   ")))
		}},
		{name: "prose content", handler: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(reply("I cannot help with that.")))
		}},
		{name: "schema mismatch", handler: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(reply(`{"values":{"full_name":"x"}}`)))
		}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			client, calls := newTestClient(t, tt.handler)
			_, err := client.Suggest(context.Background(), input)
			if !errors.Is(err, llm.ErrSuggestionUnavailable) {
				t.Fatalf("expected ErrSuggestionUnavailable, got %v", err)
			}
			if calls.Load() != 1 {
				t.Fatalf("expected exactly one request, got %d", calls.Load())
			}
		})
	}
}

func TestSuggestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewSuggestClient(Config{APIKey: "k", BaseURL: url})
	require.NoError(t, err)
	_, err = client.Suggest(context.Background(), input)
	assert.ErrorIs(t, err, llm.ErrSuggestionUnavailable)
}

func TestNewSuggestClientRequiresKey(t *testing.T) {
	_, err := NewSuggestClient(Config{APIKey: " "})
	assert.Error(t, err)
}

func TestJSONPayload(t *testing.T) {
	tests := map[string]string{
		`{"a":1}`:                         `{"a":1}`,
		"```\n{\"a\":1}\n```":             `{"a":1}`,
		"<think>\nhmm\n</think>{\"a\":1}": `{"a":1}`,
	}
	for in, want := range tests {
		if got := jsonPayload(in); got != want {
			t.Fatalf("jsonPayload(%q) = %q, want %q", in, got, want)
		}
	}
}
