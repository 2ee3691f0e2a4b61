// Package scoring calls the external AI text-scoring service that turns
// a day's question/answer text into stress and motivation scores.
//
// The gateway never propagates a failure: any network, status, parse or
// shape error is logged and replaced by default zero scores so that
// entry persistence is never blocked by the scorer.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/kawamasaya/well-board/internal/model"
	"github.com/kawamasaya/well-board/pkg/config"
	"github.com/kawamasaya/well-board/pkg/logger"
	"github.com/kawamasaya/well-board/prometheus"
	"go.uber.org/zap"
)

// Result is the outcome of a scoring attempt. Scores are always in
// [0,100]. Status records whether the scorer ran, was skipped because
// there were no answers, or failed and fell back to defaults.
type Result struct {
	StressScore      int
	MotivationScore  int
	StressReason     string
	MotivationReason string
	Status           string
}

// Scorer computes stress and motivation scores for an entry.
type Scorer interface {
	Score(ctx context.Context, questions, answers model.JSONMap) Result
}

const fallbackReason = "calculation error"

// failedResult is returned for every failure mode.
func failedResult() Result {
	return Result{
		StressScore:      0,
		MotivationScore:  0,
		StressReason:     fallbackReason,
		MotivationReason: fallbackReason,
		Status:           model.ScoreStatusFailed,
	}
}

// Gateway calls a chat-completions style HTTP endpoint and parses the
// strict-JSON score object out of the model's reply.
type Gateway struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewGateway builds a gateway from config. The client timeout bounds the
// synchronous call made on the entry-write path.
func NewGateway(cfg *config.ScoringConfig) *Gateway {
	return &Gateway{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Score implements Scorer. An empty answer set skips the external call
// entirely and returns zero scores without treating it as an error.
func (g *Gateway) Score(ctx context.Context, questions, answers model.JSONMap) (result Result) {
	log := logger.FromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			// Unexpected failure; carries a stack trace, unlike the
			// expected API/parse errors.
			log.Error("unexpected panic in AI score calculation",
				zap.Any("panic", r), zap.Stack("stack"))
			prometheus.RecordScoring(model.ScoreStatusFailed)
			result = failedResult()
		}
	}()

	if len(answers) == 0 {
		prometheus.RecordScoring(model.ScoreStatusSkipped)
		return Result{Status: model.ScoreStatusSkipped}
	}

	start := time.Now()
	text, err := g.converse(ctx, buildPrompt(questions, answers))
	prometheus.ScoringDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		log.Error("AI score calculation failed", zap.Error(err))
		prometheus.RecordScoring(model.ScoreStatusFailed)
		return failedResult()
	}

	parsed, err := parseScores(text)
	if err != nil {
		log.Error("AI score response unusable", zap.Error(err))
		prometheus.RecordScoring(model.ScoreStatusFailed)
		return failedResult()
	}

	prometheus.RecordScoring(model.ScoreStatusScored)
	return Result{
		StressScore:      clamp(parsed.StressScore),
		MotivationScore:  clamp(parsed.MotivationScore),
		StressReason:     parsed.StressReason,
		MotivationReason: parsed.MotivationReason,
		Status:           model.ScoreStatusScored,
	}
}

// buildPrompt renders the fixed scoring instruction with the flattened
// question and answer text. The instruction demands a bare JSON object
// with no surrounding explanation.
func buildPrompt(questions, answers model.JSONMap) string {
	return fmt.Sprintf(`以下の質問と回答から、ストレス度とモチベーション度をそれぞれ0-100で採点し、JSON形式で出力してください。説明不要です。
- ストレス度: ストレスが高い場合は数値を高く採点する
- モチベーション度: モチベーションが高い場合は数値を高く採点する
- 各項目について「reason」は30字以内で簡潔に

質問:
%s

回答:
%s

出力形式:
{"stress_score": 数値, "stress_reason": "ストレス説明", "motivation_score": 数値, "motivation_reason": "モチベーション説明"}`,
		flatten(questions), flatten(answers))
}

// flatten renders a keyed map as "key: value" lines in key order.
func flatten(m model.JSONMap) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s: %s", k, m[k])
	}
	return sb.String()
}

// converse sends one user message and returns the model's reply text.
func (g *Gateway) converse(ctx context.Context, prompt string) (string, error) {
	body := map[string]interface{}{
		"model": g.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  512,
		"temperature": 0,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("scoring call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("scoring status %d: %s", resp.StatusCode, data)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("empty choices")
	}
	return result.Choices[0].Message.Content, nil
}

type scorePayload struct {
	StressScore      int    `json:"stress_score"`
	StressReason     string `json:"stress_reason"`
	MotivationScore  int    `json:"motivation_score"`
	MotivationReason string `json:"motivation_reason"`
}

// parseScores extracts the strict-JSON score object from the reply text.
// Models occasionally wrap the object in markdown fences, so the text is
// trimmed to the outermost braces before decoding.
func parseScores(text string) (*scorePayload, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object in reply")
	}

	var parsed scorePayload
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("parse scores: %w", err)
	}
	return &parsed, nil
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
