// Package llm writes an optional plain-language narrative for a result.
// The narrative is advisory text only: it never feeds back into the score,
// and a narrative that contradicts the computed score is rejected.
package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/casestrength/internal/model"
)

// ErrScoreMismatch is returned when a narrative states a score other than the computed one
var ErrScoreMismatch = errors.New("narrative contradicts computed score")

// Provider generates narrative text
type Provider interface {
	// Name returns the provider name
	Name() string

	// Narrate explains a result in plain language
	Narrate(ctx context.Context, req NarrateRequest) (*NarrateResponse, error)
}

// NarrateRequest is the input for one narrative
type NarrateRequest struct {
	Result    model.CaseStrengthResult
	Prompt    string // Overrides BuildPrompt when set
	Model     string
	MaxTokens int
}

// NarrateResponse is a checked narrative
type NarrateResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds provider configuration
type Config struct {
	Provider  string // "openai", "ollama", "" (disabled)
	Model     string
	APIKey    string
	BaseURL   string
	Timeout   int // seconds
	MaxTokens int
}

// ConfigFromModel converts the application config section
func ConfigFromModel(c model.LLMConfig) Config {
	return Config{
		Provider:  c.Provider,
		Model:     c.Model,
		APIKey:    c.APIKey,
		BaseURL:   c.BaseURL,
		Timeout:   c.Timeout,
		MaxTokens: c.MaxTokens,
	}
}

const systemPrompt = "You explain legal case-strength assessments to non-lawyers in India. " +
	"You never give legal advice and never change or re-estimate the score you are given."

// BuildPrompt describes a result for the model
func BuildPrompt(result model.CaseStrengthResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "A questionnaire for a %s dispute produced this assessment.\n\n", strings.ReplaceAll(string(result.NoticeType), "-", " "))
	fmt.Fprintf(&b, "- Case strength: %d/100\n", result.Score)
	fmt.Fprintf(&b, "- Confidence: %s\n", result.Confidence)
	fmt.Fprintf(&b, "- Recommendation: %s\n", result.Recommendation.Primary.Label)

	b.WriteString("\nStrengths:\n")
	writeList(&b, result.StrengthFactors)
	b.WriteString("\nRisks:\n")
	writeList(&b, result.RiskFactors)

	b.WriteString("\nRULES:\n")
	fmt.Fprintf(&b, "1. If you mention the score, state it exactly as %d/100.\n", result.Score)
	b.WriteString("2. Only discuss the strengths and risks listed above.\n")
	b.WriteString("3. Do not promise an outcome.\n")
	b.WriteString("\nWrite 3-4 sentences explaining what the assessment means and what the person could do next.")

	return b.String()
}

func writeList(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString("- (none)\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

// Numbers count as scores in N/100 notation, or when they directly follow
// score wording ("scored 55 out of 100", "strength is 40"). Other counts such
// as "3 out of 100 cases" are left alone.
var scorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{1,3})\s*/\s*100\b`),
	regexp.MustCompile(`(?i)\b(?:score[sd]?|strength|rated|rating)\b(?:\s*:|\s+(?:is|was|of|at|stands|sits|comes|came|to|about|around|only|just))*\s*(\d{1,3})\b`),
}

// CheckNarrative rejects text that states any score other than the result's
func CheckNarrative(text string, result model.CaseStrengthResult) error {
	for _, re := range scorePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if n != result.Score {
				return fmt.Errorf("%w: says %d, computed %d", ErrScoreMismatch, n, result.Score)
			}
		}
	}
	return nil
}
