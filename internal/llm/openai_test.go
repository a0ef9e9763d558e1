package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/casestrength/internal/logger"
	"github.com/ppiankov/casestrength/internal/model"
)

func sampleResult() model.CaseStrengthResult {
	return model.CaseStrengthResult{
		NoticeType:           model.NoticeMoneyRecovery,
		Score:                19,
		Confidence:           model.ConfidenceHigh,
		StrengthFactors:      []string{"Money lent as a loan is a clear debt"},
		RiskFactors:          []string{"Nothing in writing records the debt", "Cash paid without a receipt"},
		RecommendationBucket: model.BucketWeak,
		Recommendation: model.Recommendation{
			Primary: model.CallToAction{Label: "Explore alternative remedies", Action: "explore-alternatives"},
		},
	}
}

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if assert.Len(t, req.Messages, 2) {
			assert.Contains(t, req.Messages[1].Content, "19/100")
		}

		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:    "chatcmpl-123",
			Model: "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			}},
			Usage: openai.Usage{TotalTokens: 120},
		})
	}))
}

func newTestProvider(t *testing.T, url string) *OpenAIProvider {
	t.Helper()
	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: url, Timeout: 5})
	require.NoError(t, err)
	return provider
}

func TestOpenAIProvider_Narrate_Success(t *testing.T) {
	server := chatServer(t, "  Your case scored 19/100. Without written proof, mediation may work better.  ")
	defer server.Close()

	resp, err := newTestProvider(t, server.URL).Narrate(context.Background(), NarrateRequest{Result: sampleResult()})
	require.NoError(t, err)
	assert.Equal(t, "Your case scored 19/100. Without written proof, mediation may work better.", resp.Text)
	assert.Equal(t, 120, resp.TokensUsed)
}

func TestOpenAIProvider_Narrate_RejectsWrongScore(t *testing.T) {
	server := chatServer(t, "Your case scores 65 out of 100, so send a notice.")
	defer server.Close()

	_, err := newTestProvider(t, server.URL).Narrate(context.Background(), NarrateRequest{Result: sampleResult()})
	assert.True(t, errors.Is(err, ErrScoreMismatch), "got %v", err)
}

func TestOpenAIProvider_Narrate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "Internal Server Error", "type": "server_error"}}`))
	}))
	defer server.Close()

	_, err := newTestProvider(t, server.URL).Narrate(context.Background(), NarrateRequest{Result: sampleResult()})
	assert.Error(t, err)
}

func TestOpenAIProvider_Narrate_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{malformed json`))
	}))
	defer server.Close()

	_, err := newTestProvider(t, server.URL).Narrate(context.Background(), NarrateRequest{Result: sampleResult()})
	assert.Error(t, err)
}

func TestOpenAIProvider_Narrate_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := newTestProvider(t, server.URL).Narrate(ctx, NarrateRequest{Result: sampleResult()})
	assert.Error(t, err)
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider(Config{})
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{})
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = NewProvider(Config{Provider: "OpenAI", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	p, err = NewProvider(Config{Provider: "ollama", Model: "llama3.1:8b"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	_, err = NewProvider(Config{Provider: "ollama"})
	assert.Error(t, err, "ollama needs a model")

	_, err = NewProvider(Config{Provider: "gemini"})
	assert.Error(t, err)
}

func TestCheckNarrative(t *testing.T) {
	result := sampleResult()

	tests := []struct {
		text    string
		wantErr bool
	}{
		{"Your case is weak at 19/100.", false},
		{"The score of 19 reflects missing documents.", false},
		{"With 2 risks, consult a lawyer.", false},
		{"Only 3 out of 100 such cases settle without a notice.", false},
		{"Roughly 3 out of 100 disputes reach court; your score is 19/100.", false},
		{"Strength factors include 2 witnesses.", false},
		{"This strengthens 4 of your points.", false},
		{"This is a 40/100 case.", true},
		{"Your case scored 55 out of 100.", true},
		{"Score: 72. Send a notice.", true},
		{"Your case strength is 45 out of 100.", true},
	}

	for _, tt := range tests {
		err := CheckNarrative(tt.text, result)
		if tt.wantErr {
			assert.True(t, errors.Is(err, ErrScoreMismatch), tt.text)
		} else {
			assert.NoError(t, err, tt.text)
		}
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(sampleResult())

	for _, want := range []string{
		"money recovery dispute",
		"19/100",
		"Confidence: high",
		"Explore alternative remedies",
		"- Nothing in writing records the debt",
		"state it exactly as 19/100",
	} {
		assert.Contains(t, prompt, want)
	}

	empty := sampleResult()
	empty.StrengthFactors = nil
	assert.Contains(t, BuildPrompt(empty), "- (none)")
}

type stubProvider struct {
	text string
	err  error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Narrate(context.Context, NarrateRequest) (*NarrateResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &NarrateResponse{Text: s.text, Model: "stub-1"}, nil
}

func TestNarrator(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, "debug")

	disabled, err := NewNarrator(Config{}, log)
	require.NoError(t, err)
	assert.False(t, disabled.Enabled())
	assert.Empty(t, disabled.Narrate(context.Background(), sampleResult()))

	ok := NewNarratorWithProvider(&stubProvider{text: "Plain words."}, log)
	assert.Equal(t, "Plain words.", ok.Narrate(context.Background(), sampleResult()))

	failing := NewNarratorWithProvider(&stubProvider{err: errors.New("boom")}, log)
	assert.Empty(t, failing.Narrate(context.Background(), sampleResult()))
	assert.True(t, strings.Contains(buf.String(), "boom"), "failure is logged")
}
