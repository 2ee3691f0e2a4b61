package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kawamasaya/well-board/internal/model"
	"github.com/kawamasaya/well-board/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewGateway(&config.ScoringConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "test-model",
		Timeout: 2 * time.Second,
	})
}

func chatReply(content string) []byte {
	resp := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	}
	data, _ := json.Marshal(resp)
	return data
}

var (
	questions = model.JSONMap{"q1": "How was your workload today?"}
	answers   = model.JSONMap{"q1": "Busy but manageable."}
)

func TestScoreSuccess(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write(chatReply(`{"stress_score": 42, "stress_reason": "busy day", "motivation_score": 77, "motivation_reason": "good progress"}`))
	})

	result := gateway.Score(context.Background(), questions, answers)

	assert.Equal(t, 42, result.StressScore)
	assert.Equal(t, 77, result.MotivationScore)
	assert.Equal(t, "busy day", result.StressReason)
	assert.Equal(t, "good progress", result.MotivationReason)
	assert.Equal(t, model.ScoreStatusScored, result.Status)
}

func TestScoreParsesFencedJSON(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatReply("```json\n{\"stress_score\": 10, \"stress_reason\": \"ok\", \"motivation_score\": 20, \"motivation_reason\": \"ok\"}\n```"))
	})

	result := gateway.Score(context.Background(), questions, answers)

	assert.Equal(t, 10, result.StressScore)
	assert.Equal(t, 20, result.MotivationScore)
	assert.Equal(t, model.ScoreStatusScored, result.Status)
}

func TestScoreClampsOutOfRange(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatReply(`{"stress_score": 150, "stress_reason": "x", "motivation_score": -5, "motivation_reason": "y"}`))
	})

	result := gateway.Score(context.Background(), questions, answers)

	assert.Equal(t, 100, result.StressScore)
	assert.Equal(t, 0, result.MotivationScore)
}

func TestScoreEmptyAnswersSkipsCall(t *testing.T) {
	called := false
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	result := gateway.Score(context.Background(), questions, nil)

	assert.False(t, called, "empty answers must skip the external call")
	assert.Equal(t, 0, result.StressScore)
	assert.Equal(t, 0, result.MotivationScore)
	assert.Equal(t, model.ScoreStatusSkipped, result.Status)
	assert.Empty(t, result.StressReason, "a skip is not an error")
}

func TestScoreFallbackOnMalformedReply(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "reply is not JSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write(chatReply("I think the scores should be about fifty."))
			},
		},
		{
			name: "response body is not JSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>gateway timeout</html>"))
			},
		},
		{
			name: "empty choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"choices": []}`))
			},
		},
		{
			name: "server error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := newTestGateway(t, tt.handler)

			result := gateway.Score(context.Background(), questions, answers)

			assert.Equal(t, 0, result.StressScore)
			assert.Equal(t, 0, result.MotivationScore)
			assert.Equal(t, "calculation error", result.StressReason)
			assert.Equal(t, "calculation error", result.MotivationReason)
			assert.Equal(t, model.ScoreStatusFailed, result.Status)
		})
	}
}

func TestScoreFallbackOnNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	gateway := NewGateway(&config.ScoringConfig{
		BaseURL: server.URL,
		Timeout: time.Second,
	})
	server.Close() // connection refused from here on

	result := gateway.Score(context.Background(), questions, answers)

	assert.Equal(t, model.ScoreStatusFailed, result.Status)
	assert.Equal(t, "calculation error", result.StressReason)
}

func TestScoreHonorsTimeout(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write(chatReply(`{"stress_score": 1, "stress_reason": "", "motivation_score": 1, "motivation_reason": ""}`))
	})
	gateway.client.Timeout = 50 * time.Millisecond

	start := time.Now()
	result := gateway.Score(context.Background(), questions, answers)

	assert.Less(t, time.Since(start), 400*time.Millisecond, "the call must be bounded by the client timeout")
	assert.Equal(t, model.ScoreStatusFailed, result.Status)
}

func TestBuildPromptContainsQuestionsAndAnswers(t *testing.T) {
	prompt := buildPrompt(
		model.JSONMap{"q1": "workload?", "q2": "mood?"},
		model.JSONMap{"q1": "heavy", "q2": "fine"},
	)

	require.Contains(t, prompt, "q1: workload?")
	require.Contains(t, prompt, "q2: mood?")
	require.Contains(t, prompt, "q1: heavy")
	require.Contains(t, prompt, "q2: fine")
	require.Contains(t, prompt, `"stress_score"`)

	// Key order is stable so repeated scoring of one entry sends one prompt.
	assert.Equal(t, prompt, buildPrompt(
		model.JSONMap{"q2": "mood?", "q1": "workload?"},
		model.JSONMap{"q2": "fine", "q1": "heavy"},
	))
}

func TestParseScoresRejectsGarbage(t *testing.T) {
	for _, text := range []string{"", "no braces here", "{broken", "}{"} {
		_, err := parseScores(text)
		assert.Error(t, err, "input %q", text)
	}
}

func TestFlattenOrdersKeys(t *testing.T) {
	got := flatten(model.JSONMap{"b": "2", "a": "1", "c": "3"})
	assert.Equal(t, "a: 1\nb: 2\nc: 3", got)
	assert.False(t, strings.HasSuffix(got, "\n"))
}
