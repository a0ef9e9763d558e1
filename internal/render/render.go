// Package render formats results for terminals, files and other programs.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/casestrength/internal/model"
)

// Format is an output format
type Format string

const (
	FormatConsole  Format = "console"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts a format name or common alias
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "console", "text":
		return FormatConsole, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: console, json, yaml, markdown)", s)
	}
}

// Report is what gets rendered: a result plus its optional narrative
type Report struct {
	Source    string                   `json:"source,omitempty" yaml:"source,omitempty"` // Answer file, for batch output
	Result    model.CaseStrengthResult `json:"result" yaml:"result"`
	Narrative string                   `json:"narrative,omitempty" yaml:"narrative,omitempty"`
}

// Options tune rendering
type Options struct {
	Contributions bool // Include the per-question breakdown
}

// Renderer writes reports in one format
type Renderer struct {
	format Format
	opts   Options
}

// New creates a renderer
func New(format Format, opts Options) *Renderer {
	return &Renderer{format: format, opts: opts}
}

// Render writes a report to w
func (r *Renderer) Render(w io.Writer, report Report) error {
	if !r.opts.Contributions {
		report.Result.Contributions = nil
	}

	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(report))
		return err
	default:
		_, err := io.WriteString(w, Console(report))
		return err
	}
}

// WriteFile renders a report to path, creating parent directories
func (r *Renderer) WriteFile(path string, report Report) error {
	var buf bytes.Buffer
	if err := r.Render(&buf, report); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Extension returns the file extension for a format
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	case FormatMarkdown:
		return ".md"
	default:
		return ".txt"
	}
}

// Markdown formats a report as a Markdown document
func Markdown(report Report) string {
	res := report.Result
	var b strings.Builder

	fmt.Fprintf(&b, "# Case strength: %s\n\n", title(res.NoticeType))
	if report.Source != "" {
		fmt.Fprintf(&b, "_Answers: `%s`_\n\n", report.Source)
	}
	fmt.Fprintf(&b, "**Score:** %d/100  \n", res.Score)
	fmt.Fprintf(&b, "**Confidence:** %s  \n", res.Confidence)
	fmt.Fprintf(&b, "**Recommendation:** %s (%s)\n\n", res.Recommendation.Primary.Label, res.RecommendationBucket)

	if res.Recommendation.Headline != "" {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", res.Recommendation.Headline, res.Recommendation.Summary)
	}

	b.WriteString("## Strengths\n\n")
	writeMarkdownList(&b, res.StrengthFactors)
	b.WriteString("## Risks\n\n")
	writeMarkdownList(&b, res.RiskFactors)

	if len(res.Contributions) > 0 {
		b.WriteString("## Breakdown\n\n| Question | Answer | Weight |\n|---|---|---:|\n")
		for _, c := range res.Contributions {
			answer := c.AnswerLabel
			if answer == "" {
				answer = string(c.Answer)
			}
			fmt.Fprintf(&b, "| %s | %s | %+d |\n", c.QuestionID, answer, c.Weight)
		}
		b.WriteString("\n")
	}

	if report.Narrative != "" {
		fmt.Fprintf(&b, "## In plain words\n\n%s\n\n", report.Narrative)
	}

	fmt.Fprintf(&b, "Next: **%s** · %s\n", res.Recommendation.Primary.Label, res.Recommendation.Secondary.Label)
	return b.String()
}

func writeMarkdownList(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString("_None_\n\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

// Console formats a report for a terminal; colour follows color.NoColor
func Console(report Report) string {
	res := report.Result
	var b strings.Builder

	bold := color.New(color.Bold)
	bucket := bucketColor(res.RecommendationBucket)

	if report.Source != "" {
		fmt.Fprintf(&b, "%s\n", report.Source)
	}
	fmt.Fprintf(&b, "%s  %s\n", bold.Sprint(title(res.NoticeType)), bucket.Sprintf("%d/100", res.Score))
	fmt.Fprintf(&b, "%s %s  (confidence: %s)\n", bar(res.Score, 30), bucket.Sprint(strings.ToUpper(string(res.RecommendationBucket))), res.Confidence)

	if res.Recommendation.Headline != "" {
		fmt.Fprintf(&b, "\n%s\n%s\n", bold.Sprint(res.Recommendation.Headline), res.Recommendation.Summary)
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	if len(res.StrengthFactors) > 0 {
		b.WriteString("\nStrengths:\n")
		for _, f := range res.StrengthFactors {
			fmt.Fprintf(&b, "  %s %s\n", green.Sprint("+"), f)
		}
	}
	if len(res.RiskFactors) > 0 {
		b.WriteString("\nRisks:\n")
		for _, f := range res.RiskFactors {
			fmt.Fprintf(&b, "  %s %s\n", red.Sprint("-"), f)
		}
	}

	if len(res.Contributions) > 0 {
		b.WriteString("\nBreakdown:\n")
		for _, c := range res.Contributions {
			fmt.Fprintf(&b, "  %-24s %+3d  %s\n", c.QuestionID, c.Weight, c.AnswerLabel)
		}
	}

	if report.Narrative != "" {
		fmt.Fprintf(&b, "\n%s\n", report.Narrative)
	}

	fmt.Fprintf(&b, "\nNext: %s  |  %s\n", bold.Sprint(res.Recommendation.Primary.Label), res.Recommendation.Secondary.Label)
	return b.String()
}

func bucketColor(b model.Bucket) *color.Color {
	switch b {
	case model.BucketStrong:
		return color.New(color.FgGreen, color.Bold)
	case model.BucketModerate:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func bar(score, width int) string {
	filled := score * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// title turns "money-recovery" into "Money Recovery"
func title(t model.NoticeType) string {
	words := strings.Split(string(t), "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
